package reads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBatchReader_FASTQ(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&sb, "@read%d extra\nacgtTGCA\n+\nIIIIIIII\n", i)
	}
	br, err := Open(writeFile(t, "r.fq", sb.String()), 3)
	require.NoError(t, err)
	defer br.Close()

	ctx := context.Background()
	var sizes []int
	var all []Read
	for {
		batch, err := br.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
		all = append(all, batch...)
	}

	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, 7, br.Count())
	require.Len(t, all, 7)
	for i, r := range all {
		assert.Equal(t, fmt.Sprintf("read%d", i), r.ID)
		assert.Equal(t, "ACGTTGCA", string(r.Seq))
	}

	_, err = br.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestBatchReader_FASTA(t *testing.T) {
	br, err := Open(writeFile(t, "r.fa", ">a\nACGT\nAC\n>b desc\nTTTT\n"), 0)
	require.NoError(t, err)
	defer br.Close()
	assert.Equal(t, DefaultBatchSize, br.BatchSize())

	batch, err := br.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, Read{ID: "a", Seq: []byte("ACGTAC")}, batch[0])
	assert.Equal(t, Read{ID: "b", Seq: []byte("TTTT")}, batch[1])

	_, err = br.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestBatchReader_ExactMultiple(t *testing.T) {
	br, err := Open(writeFile(t, "r.fa", ">a\nAC\n>b\nGT\n"), 2)
	require.NoError(t, err)
	defer br.Close()

	batch, err := br.Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = br.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestBatchReader_Canceled(t *testing.T) {
	br, err := Open(writeFile(t, "r.fa", ">a\nAC\n"), 2)
	require.NoError(t, err)
	defer br.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = br.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.fq"), 1)
	assert.Error(t, err)
}
