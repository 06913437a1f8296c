package genome

import (
	"math/rand"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metal/dna"
)

func randomSeq(r *rand.Rand, n int) []byte {
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = "ACGT"[r.Intn(4)]
	}
	return seq
}

func TestPack(t *testing.T) {
	seq := []byte("ACGTNacgtGATTACA")
	c := Pack(seq)

	assert.Equal(t, len(seq), c.Len())
	assert.Equal(t, "ACGTNACGTGATTACA", c.String())
	assert.Len(t, c.Words(), 1)
	assert.Equal(t, []uint32{4}, c.Ambiguous().ToArray())
	plain := Pack([]byte("ACGT"))
	assert.Nil(t, plain.Ambiguous())
}

func TestNextAmbiguous(t *testing.T) {
	c := Pack([]byte("ACNNGTACGTNA"))

	tests := []struct{ pos, want int }{
		{0, 2}, {2, 2}, {3, 3}, {4, 10}, {10, 10}, {11, 12}, {12, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.NextAmbiguous(tt.pos), "pos %d", tt.pos)
	}

	plain := Pack([]byte("ACGT"))
	assert.Equal(t, 4, plain.NextAmbiguous(0))
}

func TestKmer(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	seq := randomSeq(r, 301)
	c := Pack(seq)

	for _, k := range []int{1, 7, 20, 31, 32} {
		for pos := 0; pos+k <= len(seq); pos += 13 {
			bits, span := c.Kmer(pos, k)
			require.Equal(t, dna.Encode(seq[pos:pos+k]), bits, "k=%d pos=%d", k, pos)
			require.Equal(t, dna.KmerMask(k), span)

			rev, rspan := c.KmerRev(pos, k)
			require.Equal(t, dna.Encode(dna.ReverseComplement(seq[pos:pos+k])), rev)
			require.Equal(t, dna.KmerMask(k), rspan)
		}
	}
}

func TestKmer_PartialAtEnd(t *testing.T) {
	c := Pack([]byte("GATTACA"))

	bits, span := c.Kmer(4, 5)
	assert.Equal(t, dna.Encode([]byte("ACA"))<<4, bits)
	assert.Equal(t, dna.KmerMask(3)<<4, span)

	rev, rspan := c.KmerRev(4, 5)
	assert.Equal(t, dna.Encode([]byte("TGT")), rev)
	assert.Equal(t, dna.KmerMask(3), rspan)
}

func TestKmer_OutOfRange(t *testing.T) {
	c := Pack([]byte("ACGT"))
	assert.Panics(t, func() { c.Kmer(4, 2) })
	assert.Panics(t, func() { c.Kmer(-1, 2) })
}

func TestFromWords(t *testing.T) {
	orig := Pack([]byte("ACGTACGTACGTACGTACGTACGTACGTACGTAC"))

	c, err := FromWords(orig.Words(), orig.Len(), nil)
	require.NoError(t, err)
	assert.Equal(t, orig.String(), c.String())

	_, err = FromWords(orig.Words(), 100, nil)
	assert.Error(t, err)

	amb := roaring.BitmapOf(3, 7)
	c, err = FromWords(orig.Words(), orig.Len(), amb)
	require.NoError(t, err)
	assert.Equal(t, "ACGNACGNACGTACGTACGTACGTACGTACGTAC", c.String())

	_, err = FromWords(orig.Words(), orig.Len(), roaring.BitmapOf(uint32(orig.Len())))
	assert.Error(t, err)

	c, err = FromWords(orig.Words(), orig.Len(), roaring.New())
	require.NoError(t, err)
	assert.Nil(t, c.Ambiguous())
}

func TestGenome(t *testing.T) {
	g := New([][]byte{[]byte("ACGT"), []byte("GGGGGG")})

	assert.Equal(t, 2, g.NumChroms())
	assert.Equal(t, 10, g.TotalLen())
	assert.Equal(t, "GGGGGG", g.Chrom(1).String())
	assert.Equal(t, int64(16), g.SizeBytes())
}
