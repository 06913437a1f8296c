package match

// scratch is the per-worker state reused across reads. counts and stamps
// are indexed by index.Index.MetaID and are all zero between reads.
type scratch struct {
	counts  []uint32
	stamps  []uint32 // offset+1 of the last offset that counted the meta-CpG
	touched []int32

	hf, hr []uint64
	amb    []bool // windows that overlap a non-ACGT base

	seeded   seedBuilder
	pruned   seedBuilder
	verified seedBuilder
}

func newScratch(numMetas int) *scratch {
	return &scratch{
		counts: make([]uint32, numMetas),
		stamps: make([]uint32, numMetas),
	}
}

// tally counts offset o for meta-CpG id unless o already did.
func (sc *scratch) tally(id int, o int) {
	stamp := uint32(o) + 1
	if sc.stamps[id] == stamp {
		return
	}
	if sc.counts[id] == 0 {
		sc.touched = append(sc.touched, int32(id))
	}
	sc.stamps[id] = stamp
	sc.counts[id]++
}

// clear zeroes the counters touched since the last clear.
func (sc *scratch) clear() {
	for _, id := range sc.touched {
		sc.counts[id] = 0
		sc.stamps[id] = 0
	}
	sc.touched = sc.touched[:0]
}

func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
