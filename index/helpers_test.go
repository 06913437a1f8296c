package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/testutil"
)

func testParams() Params {
	return Params{
		KmerLen:    16,
		ReadLen:    60,
		Mismatches: 1,
		KmerCutoff: DefaultKmerCutoff,
		HashBits:   16,
	}
}

func catalogue(seqs [][]byte) []CpG {
	var cpgs []CpG
	for ci, s := range seqs {
		for _, p := range testutil.CpGPositions(s) {
			cpgs = append(cpgs, CpG{Chrom: uint16(ci), Pos: uint32(p)})
		}
	}
	return cpgs
}

func buildFrom(t testing.TB, seqs [][]byte, p Params, opts ...BuildOption) *Index {
	t.Helper()
	ordinary, start := SplitCpGs(catalogue(seqs), p.ReadLen)
	ix, err := Build(context.Background(), genome.New(seqs), ordinary, start, p, opts...)
	require.NoError(t, err)
	return ix
}

func randomIndex(t testing.TB, seed int64) *Index {
	t.Helper()
	rng := testutil.NewRNG(seed)
	return buildFrom(t, [][]byte{rng.Sequence(3000), rng.Sequence(1200)}, testParams(),
		WithChromNames([]string{"chr1", "chr2"}))
}
