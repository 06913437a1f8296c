package dna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		seq  string
		want uint64
	}{
		{"A", 0},
		{"T", 3},
		{"ACGT", 0b00011011},
		{"acgt", 0b00011011},
		{"NNCG", 0b00000110},
	}
	for _, tt := range tests {
		t.Run(tt.seq, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode([]byte(tt.seq)))
		})
	}

	assert.Equal(t, "ACGTTGCA", string(Decode(Encode([]byte("ACGTTGCA")), 8)))
}

func TestComplement(t *testing.T) {
	assert.Equal(t, "ACGTN", string(ReverseComplement([]byte("NACGT"))))
	assert.Equal(t, byte('T'), Complement('a'))
	assert.Equal(t, T, CompCode('A'))
	assert.Equal(t, G, CompCode('C'))
}

func TestIsBase(t *testing.T) {
	for _, b := range []byte("ACGTacgt") {
		assert.True(t, IsBase(b), string(b))
	}
	for _, b := range []byte("NnRY-. ") {
		assert.False(t, IsBase(b), string(b))
	}
}

func TestBisulfite(t *testing.T) {
	assert.Equal(t, "TTGATG", string(Bisulfite([]byte("CTGACG"))))
}

func TestReverseComplementBits(t *testing.T) {
	for _, seq := range []string{"A", "AC", "ACGTTGCAAC", "GATTACAGATTACAGATTACAGATTACAGATT"} {
		k := len(seq)
		want := Encode(ReverseComplement([]byte(seq)))
		assert.Equal(t, want, ReverseComplementBits(Encode([]byte(seq)), k), seq)
	}
}

func TestReduce(t *testing.T) {
	assert.Equal(t, Encode([]byte("ATGTTT")), Reduce(Encode([]byte("ACGTCT"))))
	assert.Equal(t, Reduce(Encode([]byte("CCGG"))), Reduce(Encode([]byte("TTGG"))))
}

func TestKmerMask(t *testing.T) {
	assert.Equal(t, uint64(0xF), KmerMask(2))
	assert.Equal(t, ^uint64(0), KmerMask(32))
}

func TestMatches(t *testing.T) {
	ref := Encode([]byte("ACGTCA"))
	full := KmerMask(6)

	t.Run("Exact", func(t *testing.T) {
		assert.True(t, Matches(ref, ref, full))
	})

	t.Run("Converted", func(t *testing.T) {
		read := Encode(Bisulfite([]byte("ACGTCA")))
		assert.True(t, Matches(ref, read, full))
	})

	t.Run("ReferenceTReadC", func(t *testing.T) {
		read := Encode([]byte("ACGCCA"))
		assert.False(t, Matches(ref, read, full))
	})

	t.Run("ReferenceCReadA", func(t *testing.T) {
		read := Encode([]byte("AAGTCA"))
		assert.False(t, Matches(ref, read, full))
	})

	t.Run("PartialSpan", func(t *testing.T) {
		// Only the first four bases exist in the reference.
		partial := Encode([]byte("ACGT")) << 4
		span := KmerMask(4) << 4
		read := Encode([]byte("ATGTGG"))
		require.True(t, Matches(partial, read, span))
	})
}
