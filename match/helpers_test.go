package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/reads"
	"github.com/hupe1980/metal/testutil"
)

func testParams() index.Params {
	return index.Params{
		KmerLen:    16,
		ReadLen:    60,
		Mismatches: 1,
		KmerCutoff: index.DefaultKmerCutoff,
		HashBits:   16,
		Lossless:   true,
	}
}

type fixture struct {
	ix   *index.Index
	seqs [][]byte
	rng  *testutil.RNG
}

func newFixture(t testing.TB, seed int64) *fixture {
	t.Helper()
	rng := testutil.NewRNG(seed)
	seqs := [][]byte{rng.Sequence(4000), rng.Sequence(1500)}
	return buildFixture(t, rng, seqs, testParams())
}

// newStartFixture is like newFixture with the given params and a CpG
// planted close to the start of each chromosome.
func newStartFixture(t testing.TB, seed int64, p index.Params) *fixture {
	t.Helper()
	rng := testutil.NewRNG(seed)
	seqs := [][]byte{rng.Sequence(4000), rng.Sequence(1500)}
	copy(seqs[0][10:], "CG")
	copy(seqs[1][21:], "CG")
	return buildFixture(t, rng, seqs, p)
}

func buildFixture(t testing.TB, rng *testutil.RNG, seqs [][]byte, p index.Params) *fixture {
	t.Helper()
	var cpgs []index.CpG
	for ci, s := range seqs {
		for _, pos := range testutil.CpGPositions(s) {
			cpgs = append(cpgs, index.CpG{Chrom: uint16(ci), Pos: uint32(pos)})
		}
	}
	ordinary, start := index.SplitCpGs(cpgs, p.ReadLen)
	ix, err := index.Build(context.Background(), genome.New(seqs), ordinary, start, p)
	require.NoError(t, err)
	return &fixture{ix: ix, seqs: seqs, rng: rng}
}

// origin is where a simulated read comes from: the forward-coordinate
// start of its reference fragment.
type origin struct {
	chrom, start int
}

// fragments returns n read origins covering ordinary CpGs.
func (f *fixture) fragments(n int) []origin {
	L := f.ix.Params().ReadLen
	var out []origin
	for _, c := range f.ix.CpGs() {
		chromLen := len(f.seqs[c.Chrom])
		s := int(c.Pos) - f.rng.Intn(L-1)
		if s < 0 || s+L > chromLen {
			continue
		}
		out = append(out, origin{chrom: int(c.Chrom), start: s})
		if len(out) == n {
			break
		}
	}
	return out
}

// startFragments returns read origins on the start CpGs: at the
// chromosome start, halfway to the CpG and on the CpG itself.
func (f *fixture) startFragments() []origin {
	L := f.ix.Params().ReadLen
	var out []origin
	for _, c := range f.ix.StartCpGs() {
		for _, s := range []int{0, int(c.Pos) / 2, int(c.Pos)} {
			if s+L <= len(f.seqs[c.Chrom]) {
				out = append(out, origin{chrom: int(c.Chrom), start: s})
			}
		}
	}
	return out
}

func (f *fixture) ref(o origin) []byte {
	return f.seqs[o.chrom][o.start : o.start+f.ix.Params().ReadLen]
}

// hasSeed reports whether offset o of l holds a seed at the given reference
// position and strand.
func hasSeed(ix *index.Index, l SeedList, o, chrom, pos int, forward bool) bool {
	for _, sd := range l.At(o) {
		c, p := ix.Resolve(sd.Kmer)
		if c == chrom && p == pos && sd.Forward == forward {
			return true
		}
	}
	return false
}

func readsFrom(f *fixture, origins []origin) []reads.Read {
	batch := make([]reads.Read, len(origins))
	for i, o := range origins {
		seq := testutil.Convert(f.ref(o), i%2 == 0)
		if i%3 == 1 {
			seq = testutil.ReverseComplement(seq)
		}
		batch[i] = reads.Read{ID: string(rune('a' + i%26)), Seq: seq}
	}
	return batch
}
