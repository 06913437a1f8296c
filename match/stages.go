package match

import (
	"github.com/hupe1980/metal/dna"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/internal/nthash"
)

// hashes fills sc.hf and sc.hr with the reduced forward and reverse hashes
// of every k-mer window of seq, and sc.amb with the windows that contain a
// non-ACGT symbol. len(seq) must be at least k.
func hashes(sc *scratch, seq []byte, k int) {
	n := len(seq) - k + 1
	sc.hf, sc.hr = grow(sc.hf, n), grow(sc.hr, n)
	sc.amb = grow(sc.amb, n)

	last := -1
	for i, b := range seq {
		if !dna.IsBase(b) {
			last = i
		}
		if p := i - k + 1; p >= 0 {
			sc.amb[p] = last >= p
		}
	}

	r := nthash.NewRoller(dna.Encode(seq[:k]), k)
	for p := 0; ; p++ {
		sc.hf[p], sc.hr[p] = r.Hashes()
		if p == n-1 {
			return
		}
		r.Next(dna.Code(seq[p]), dna.Code(seq[p+k]))
	}
}

// seed collects the bucket contents for each offset of one orientation.
// The read's own orientation looks up Hf at offset o; the reverse
// complement at offset o is the window L-k-o of the read, whose Hf is
// that window's Hr. Windows with an ambiguous base get no seeds.
func seed(ix *index.Index, sc *scratch, reverse bool) {
	b := &sc.seeded
	b.reset()
	n := len(sc.hf)
	for o := 0; o < n; o++ {
		w, h := o, sc.hf[o]
		if reverse {
			w = n - 1 - o
			h = sc.hr[w]
		}
		if sc.amb[w] {
			b.endOffset()
			continue
		}
		lo, hi := ix.Lookup(ix.Bucket(h))
		for i := lo; i < hi; i++ {
			e, forward := ix.Entry(i)
			b.add(Seed{Kmer: e, Forward: forward})
		}
		b.endOffset()
	}
}

// prune keeps the seeds of meta-CpGs referenced by at least threshold
// distinct offsets.
func prune(ix *index.Index, sc *scratch, threshold int) {
	in := sc.seeded.list()
	for o := 0; o < in.NumOffsets(); o++ {
		for _, sd := range in.At(o) {
			sc.tally(ix.MetaID(sd.Kmer), o)
		}
	}

	out := &sc.pruned
	out.reset()
	for o := 0; o < in.NumOffsets(); o++ {
		for _, sd := range in.At(o) {
			if int(sc.counts[ix.MetaID(sd.Kmer)]) >= threshold {
				out.add(sd)
			}
		}
		out.endOffset()
	}
	sc.clear()
}

// verify keeps the seeds whose reference k-mer matches the read k-mer at
// their offset. The read k-mer is kept in a shift register: left to right
// over seq, or right to left over its complement for the reverse
// orientation.
func verify(ix *index.Index, sc *scratch, seq []byte, k int, reverse bool) {
	in := sc.pruned.list()
	out := &sc.verified
	out.reset()

	L := len(seq)
	mask := dna.KmerMask(k)
	var reg uint64
	for i := 0; i < k-1; i++ {
		if reverse {
			reg = reg<<2 | dna.CompCode(seq[L-1-i])
		} else {
			reg = reg<<2 | dna.Code(seq[i])
		}
	}

	for o := 0; o < in.NumOffsets(); o++ {
		if reverse {
			reg = (reg<<2 | dna.CompCode(seq[L-k-o])) & mask
		} else {
			reg = (reg<<2 | dna.Code(seq[o+k-1])) & mask
		}
		for _, sd := range in.At(o) {
			ref, span := ix.ReferenceKmer(sd.Kmer, sd.Forward)
			if dna.Matches(ref, reg, span) {
				out.add(sd)
			}
		}
		out.endOffset()
	}
}
