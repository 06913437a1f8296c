package index

import (
	"slices"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/metal/dna"
	"github.com/hupe1980/metal/internal/nthash"
	"github.com/hupe1980/metal/kmer"
)

type groupKey struct {
	group   kmer.Kmer
	reduced uint64
}

// filter removes repeats and redundant entries bucket by bucket and
// compacts the table in place, keeping the order of survivors.
//
// Repeats: in a bucket with more than KmerCutoff entries, every reduced
// k-mer occurring more than KmerCutoff times is dropped and its raw hash
// recorded in the filtered set. Skipped for lossless indexes.
//
// Redundancy: an entry whose (meta-CpG, start flag, strand, reduced k-mer)
// was already seen in the bucket is dropped.
func (ix *Index) filter() {
	k, cutoff := ix.params.KmerLen, ix.params.KmerCutoff
	buckets := len(ix.tabIndex) - 1

	strands := bitset.New(uint(len(ix.kmers)))
	occurrences := make(map[uint64]int)
	seen := make(map[groupKey]struct{})
	var reduced []uint64

	var w uint64
	for b := 0; b < buckets; b++ {
		lo, hi := ix.tabIndex[b], ix.tabIndex[b+1]
		ix.tabIndex[b] = w
		n := int(hi - lo)
		if n == 0 {
			continue
		}

		reduced = reduced[:0]
		for i := lo; i < hi; i++ {
			bits, _ := ix.ReferenceKmer(ix.kmers[i], ix.strands.Test(uint(i)))
			reduced = append(reduced, dna.Reduce(bits))
		}

		repeats := !ix.params.Lossless && n > cutoff
		if repeats {
			clear(occurrences)
			for _, r := range reduced {
				occurrences[r]++
			}
			for r, c := range occurrences {
				if c > cutoff {
					ix.filtered.Add(nthash.Forward(r, k))
				}
			}
		}
		if n > 1 {
			clear(seen)
		}

		for j, i := 0, lo; i < hi; i, j = i+1, j+1 {
			r := reduced[j]
			if repeats && occurrences[r] > cutoff {
				ix.blacklisted++
				continue
			}
			if n > 1 {
				key := groupKey{group: ix.kmers[i].Group(), reduced: r}
				if _, dup := seen[key]; dup {
					ix.redundant++
					continue
				}
				seen[key] = struct{}{}
			}
			ix.kmers[w] = ix.kmers[i]
			if ix.strands.Test(uint(i)) {
				strands.Set(uint(w))
			}
			w++
		}
	}
	ix.tabIndex[buckets] = w

	if w < uint64(len(ix.kmers)) {
		ix.kmers = slices.Clip(ix.kmers[:w])
		compact := bitset.New(uint(w))
		strands.Copy(compact)
		strands = compact
	}
	ix.strands = strands
}
