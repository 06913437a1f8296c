package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/testutil"
)

func writeFASTA(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFASTA(t *testing.T) {
	ref, err := LoadFASTA(writeFASTA(t, ">chr1 first\nacgT\nNNCG\n>chr2\nGGCC\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"chr1", "chr2"}, ref.Names)
	require.Len(t, ref.Seqs, 2)
	assert.Equal(t, "ACGTNNCG", string(ref.Seqs[0]))
	assert.Equal(t, "GGCC", string(ref.Seqs[1]))
	assert.Equal(t, 12, ref.Len())

	g := ref.Genome()
	require.Equal(t, 2, g.NumChroms())
	assert.Equal(t, 8, g.Chrom(0).Len())
}

func TestLoadFASTA_Errors(t *testing.T) {
	_, err := LoadFASTA(writeFASTA(t, ">a\nAC\n>a\nGT\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = LoadFASTA(filepath.Join(t.TempDir(), "missing.fa"))
	assert.Error(t, err)
}

func TestFindCpGs(t *testing.T) {
	const readLen = 10
	seqs := [][]byte{
		[]byte("CGAACGTTTTTTTTCGCG"),
		[]byte("TTTT"),
		[]byte("ACGN"),
	}
	ordinary, start := FindCpGs(seqs, readLen)

	assert.Equal(t, []index.CpG{{Chrom: 0, Pos: 0}, {Chrom: 0, Pos: 4}, {Chrom: 2, Pos: 1}}, start)
	assert.Equal(t, []index.CpG{{Chrom: 0, Pos: 14}, {Chrom: 0, Pos: 16}}, ordinary)
}

func TestFindCpGs_MatchesScan(t *testing.T) {
	rng := testutil.NewRNG(7)
	seqs := [][]byte{rng.Sequence(5000), rng.Sequence(700)}
	ordinary, start := FindCpGs(seqs, 150)

	var want []index.CpG
	for ci, s := range seqs {
		for _, p := range testutil.CpGPositions(s) {
			want = append(want, index.CpG{Chrom: uint16(ci), Pos: uint32(p)})
		}
	}
	o, s := index.SplitCpGs(want, 150)
	assert.Equal(t, o, ordinary)
	assert.Equal(t, s, start)
}
