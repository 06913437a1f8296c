package match

import (
	"iter"

	"github.com/hupe1980/metal/kmer"
)

// Seed is one candidate: an index entry and the strand it was hashed from.
type Seed struct {
	Kmer    kmer.Kmer
	Forward bool
}

// SeedList holds the seeds of one read orientation grouped by k-mer offset.
// The zero value is an empty list with no offsets.
type SeedList struct {
	// bounds[o]..bounds[o+1] delimits the seeds of offset o
	bounds []int32
	seeds  []Seed
}

// NumOffsets returns the number of k-mer offsets, L-k+1 for a read of
// length L, or zero.
func (s SeedList) NumOffsets() int {
	if len(s.bounds) == 0 {
		return 0
	}
	return len(s.bounds) - 1
}

// Len returns the total number of seeds.
func (s SeedList) Len() int { return len(s.seeds) }

// At returns the seeds of offset o. The slice must not be modified.
func (s SeedList) At(o int) []Seed {
	return s.seeds[s.bounds[o]:s.bounds[o+1]]
}

// All yields every seed with its offset, offsets ascending.
func (s SeedList) All() iter.Seq2[int, Seed] {
	return func(yield func(int, Seed) bool) {
		for o := 0; o < s.NumOffsets(); o++ {
			for _, sd := range s.At(o) {
				if !yield(o, sd) {
					return
				}
			}
		}
	}
}

// seedBuilder accumulates a SeedList offset by offset.
type seedBuilder struct {
	bounds []int32
	seeds  []Seed
}

func (b *seedBuilder) reset() {
	b.bounds = append(b.bounds[:0], 0)
	b.seeds = b.seeds[:0]
}

func (b *seedBuilder) add(sd Seed) { b.seeds = append(b.seeds, sd) }

// endOffset closes the current offset.
func (b *seedBuilder) endOffset() {
	b.bounds = append(b.bounds, int32(len(b.seeds)))
}

// list returns the built list, backed by the builder's buffers.
func (b *seedBuilder) list() SeedList {
	return SeedList{bounds: b.bounds, seeds: b.seeds}
}

// clone copies the built list into freshly allocated memory.
func (b *seedBuilder) clone() SeedList {
	out := SeedList{bounds: make([]int32, len(b.bounds))}
	copy(out.bounds, b.bounds)
	if len(b.seeds) > 0 {
		out.seeds = make([]Seed, len(b.seeds))
		copy(out.seeds, b.seeds)
	}
	return out
}
