package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/testutil"
)

const readLen = 60

var paramArgs = []string{"-k", "16", "-l", strconv.Itoa(readLen), "-m", "1", "--hash-bits", "16", "--lossless"}

type origin struct {
	chrom string
	start int
}

// writeInputs writes a reference and n bisulfite reads drawn from it.
func writeInputs(t *testing.T, n int) (refPath, readsPath string, origins map[string]origin) {
	t.Helper()
	dir := t.TempDir()
	rng := testutil.NewRNG(42)
	names := []string{"chr1", "chr2"}
	seqs := [][]byte{rng.Sequence(2500), rng.Sequence(1500)}

	var ref strings.Builder
	for i, s := range seqs {
		fmt.Fprintf(&ref, ">%s description\n%s\n", names[i], s)
	}
	refPath = filepath.Join(dir, "ref.fa")
	require.NoError(t, os.WriteFile(refPath, []byte(ref.String()), 0o644))

	origins = make(map[string]origin)
	var fq strings.Builder
	for len(origins) < n {
		ci := rng.Intn(len(seqs))
		cpgs := testutil.CpGPositions(seqs[ci])
		s := cpgs[rng.Intn(len(cpgs))] - rng.Intn(readLen-1)
		if s < 0 || s+readLen > len(seqs[ci]) {
			continue
		}
		id := fmt.Sprintf("r%d", len(origins))
		origins[id] = origin{chrom: names[ci], start: s}
		fmt.Fprintf(&fq, "@%s\n%s\n+\n%s\n", id, testutil.Convert(seqs[ci][s:s+readLen], rng.Intn(2) == 0), strings.Repeat("F", readLen))
	}
	fmt.Fprintf(&fq, "@short\nACGT\n+\nFFFF\n")
	readsPath = filepath.Join(dir, "reads.fq")
	require.NoError(t, os.WriteFile(readsPath, []byte(fq.String()), 0o644))
	return refPath, readsPath, origins
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIndexAndAlign(t *testing.T) {
	refPath, readsPath, origins := writeInputs(t, 25)
	dir := t.TempDir()
	ixPath := filepath.Join(dir, "ref.mtl")
	statsPath := filepath.Join(dir, "stats.tsv")

	out, err := run(t, append([]string{"index", "--ref", refPath, "--out", ixPath, "--compression", "zstd", "--log-level", "warn"}, paramArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "chromosomes")
	assert.Contains(t, out, "entries")

	out, err = run(t, "align", "-x", ixPath, "-i", readsPath, "-b", "4", "-t", "2",
		"--stats", statsPath, "--memory-limit", "1073741824", "--inflight-batches", "2", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(origins)+2)
	assert.Equal(t, strings.TrimSuffix(alignHeader, "\n"), lines[0])
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 6, line)
		if fields[0] == "short" {
			assert.Equal(t, []string{"short", "*", "-1", "*", "*", "0"}, fields)
			continue
		}
		want, ok := origins[fields[0]]
		require.True(t, ok, line)
		assert.Equal(t, want.chrom, fields[1], line)
		assert.Equal(t, strconv.Itoa(want.start), fields[2], line)
		assert.Equal(t, "+", fields[3], line)
		assert.Equal(t, "0", fields[4], line)
	}

	stats, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	statLines := strings.Split(strings.TrimSpace(string(stats)), "\n")
	assert.Len(t, statLines, len(origins)+2)
	assert.Equal(t, strings.TrimSuffix(statsHeader, "\n"), statLines[0])
}

func TestAlign_All(t *testing.T) {
	refPath, readsPath, origins := writeInputs(t, 5)
	ixPath := filepath.Join(t.TempDir(), "ref.mtl")
	_, err := run(t, append([]string{"index", "-r", refPath, "-o", ixPath}, paramArgs...)...)
	require.NoError(t, err)

	out, err := run(t, "align", "-x", ixPath, "-i", readsPath, "--all", "-o", "-")
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		seen[strings.Split(line, "\t")[0]] = true
	}
	assert.Len(t, seen, len(origins)+1)
}

func TestIndex_EnvParams(t *testing.T) {
	refPath, _, _ := writeInputs(t, 1)
	t.Setenv("METAL_INDEX_KMER_LEN", "40")

	_, err := run(t, "index", "--ref", refPath, "--out", filepath.Join(t.TempDir(), "ref.mtl"))
	assert.ErrorIs(t, err, index.ErrInvalidParams)
}

func TestConfigFile(t *testing.T) {
	refPath, _, _ := writeInputs(t, 1)
	dir := t.TempDir()
	ixPath := filepath.Join(dir, "ref.mtl")
	cfgPath := filepath.Join(dir, "metal.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
log-level: warn
index:
  ref: %s
  out: %s
  kmer-len: 16
  read-len: 60
  mismatches: 1
  hash-bits: 12
`, refPath, ixPath)), 0o644))

	_, err := run(t, "index", "--config", cfgPath)
	require.NoError(t, err)
	_, err = os.Stat(ixPath)
	assert.NoError(t, err)
}

func TestMissingFlags(t *testing.T) {
	_, err := run(t, "index")
	assert.Error(t, err)
	_, err = run(t, "align", "--index", "x.mtl")
	assert.Error(t, err)
	_, err = run(t, "index", "--ref", "a.fa", "--out", "b.mtl", "--compression", "brotli")
	assert.Error(t, err)
	_, err = run(t, "align", "-x", "x.mtl", "-i", "r.fq", "--store", "s3")
	assert.Error(t, err)
}
