package match

import (
	"cmp"
	"slices"

	"github.com/hupe1980/metal/index"
)

// Candidate is a placement of a read implied by its verified seeds.
type Candidate struct {
	// Reverse is set when the reverse complement of the read matched.
	Reverse bool
	Chrom   int
	// Pos is the forward-strand start of the placement.
	Pos int
	// Forward is set when the matched orientation equals the forward
	// reference strand.
	Forward bool
	// Seeds is the number of verified seeds supporting the placement.
	Seeds int
}

type placement struct {
	reverse, forward bool
	chrom, pos       int
}

// Candidates collapses the seeds of a result into placements of a read of
// length readLen, most supported first.
func Candidates(ix *index.Index, r Result, readLen int) []Candidate {
	if r.Len() == 0 {
		return nil
	}
	k := ix.Params().KmerLen
	support := make(map[placement]int)
	for _, reverse := range []bool{false, true} {
		l := r.Forward
		if reverse {
			l = r.Reverse
		}
		for o, sd := range l.All() {
			chrom, pos := ix.Resolve(sd.Kmer)
			p := placement{reverse: reverse, forward: sd.Forward, chrom: chrom}
			if sd.Forward {
				p.pos = pos - o
			} else {
				p.pos = pos + k + o - readLen
			}
			support[p]++
		}
	}

	out := make([]Candidate, 0, len(support))
	for p, n := range support {
		out = append(out, Candidate{Reverse: p.reverse, Chrom: p.chrom, Pos: p.pos, Forward: p.forward, Seeds: n})
	}
	slices.SortFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Seeds, a.Seeds); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Chrom, b.Chrom); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Pos, b.Pos); c != 0 {
			return c
		}
		if a.Reverse != b.Reverse {
			return boolCmp(a.Reverse, b.Reverse)
		}
		return boolCmp(a.Forward, b.Forward)
	})
	return out
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
