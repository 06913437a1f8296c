package index

import (
	"cmp"
	"slices"
)

// CpG is the position of the C of a CG dinucleotide.
type CpG struct {
	Chrom uint16
	Pos   uint32
}

// Compare orders CpGs by chromosome, then position.
func (c CpG) Compare(o CpG) int {
	if r := cmp.Compare(c.Chrom, o.Chrom); r != 0 {
		return r
	}
	return cmp.Compare(c.Pos, o.Pos)
}

// MetaCpG is a run of CpGs, Start..End inclusive, whose read windows are
// hashed together.
type MetaCpG struct {
	Start uint32
	End   uint32
}

// Len returns the number of CpGs in the group.
func (m MetaCpG) Len() int { return int(m.End-m.Start) + 1 }

// IsStartCpG reports whether a CpG at pos belongs to the start table: its
// read window would begin before the chromosome.
func IsStartCpG(pos uint32, readLen int) bool {
	return int(pos) < readLen-2
}

// SplitCpGs partitions cpgs into ordinary and start CpGs.
func SplitCpGs(cpgs []CpG, readLen int) (ordinary, start []CpG) {
	for _, c := range cpgs {
		if IsStartCpG(c.Pos, readLen) {
			start = append(start, c)
		} else {
			ordinary = append(ordinary, c)
		}
	}
	return ordinary, start
}

// GroupMetaCpGs groups sorted CpGs. A CpG joins the current group iff it is
// on the same chromosome and less than readLen bases after the group's
// first CpG.
func GroupMetaCpGs(cpgs []CpG, readLen int) []MetaCpG {
	var metas []MetaCpG
	for i, c := range cpgs {
		if n := len(metas); n > 0 {
			first := cpgs[metas[n-1].Start]
			if c.Chrom == first.Chrom && int(c.Pos-first.Pos) < readLen {
				metas[n-1].End = uint32(i)
				continue
			}
		}
		metas = append(metas, MetaCpG{Start: uint32(i), End: uint32(i)})
	}
	return metas
}

func sortedCpGs(cpgs []CpG) []CpG {
	if len(cpgs) == 0 {
		return nil
	}
	if slices.IsSortedFunc(cpgs, CpG.Compare) {
		return cpgs
	}
	out := slices.Clone(cpgs)
	slices.SortFunc(out, CpG.Compare)
	return out
}
