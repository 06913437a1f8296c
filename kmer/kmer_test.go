package kmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKmer_Fields(t *testing.T) {
	tests := []struct {
		name    string
		meta    uint64
		offset  uint32
		start   bool
		forward bool
	}{
		{"Zero", 0, 0, false, false},
		{"Forward", 12345, 449, false, true},
		{"Start", 7, 4000, true, false},
		{"Max", MaxMeta, MaxOffset, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New(tt.meta, tt.offset, tt.start, tt.forward)
			assert.Equal(t, tt.meta, k.Meta())
			assert.Equal(t, tt.offset, k.Offset())
			assert.Equal(t, tt.start, k.IsStart())
			assert.Equal(t, tt.forward, k.IsForward())
		})
	}
}

func TestKmer_OutOfRange(t *testing.T) {
	assert.Panics(t, func() { New(MaxMeta+1, 0, false, true) })
	assert.Panics(t, func() { New(0, MaxOffset+1, false, true) })
	assert.Panics(t, func() { NewSmall(MaxSmallMeta+1, 0, true) })
}

func TestKmer_Group(t *testing.T) {
	a := New(3, 10, false, true)
	b := New(3, 99, false, true)
	c := New(3, 10, false, false)

	assert.Equal(t, a.Group(), b.Group())
	assert.NotEqual(t, a.Group(), c.Group())
	assert.Equal(t, uint32(0), a.Group().Offset())
}

func TestSmall_RoundTrip(t *testing.T) {
	k := New(MaxSmallMeta, MaxSmallOffset, true, true)
	s, ok := k.Small()
	require.True(t, ok)
	assert.Equal(t, k, s.Kmer())

	_, ok = New(1, 1, false, true).Small()
	assert.False(t, ok)

	_, ok = New(MaxSmallMeta+1, 1, true, true).Small()
	assert.False(t, ok)
}

func TestKmer_String(t *testing.T) {
	assert.Equal(t, "start:2@17+", New(2, 17, true, true).String())
	assert.Equal(t, "meta:5@0-", New(5, 0, false, false).String())
}
