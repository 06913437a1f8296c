// Package reads streams sequencing reads from FASTQ or FASTA files in
// bounded batches.
package reads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

// DefaultBatchSize is the number of reads per batch.
const DefaultBatchSize = 4096

// Read is one sequencing read. Seq is uppercase.
type Read struct {
	ID  string
	Seq []byte
}

// BatchReader yields consecutive batches of reads. It is not safe for
// concurrent use.
type BatchReader struct {
	r    *fastx.Reader
	size int
	path string
	n    int
	done bool
}

// Open opens a FASTQ or FASTA file, optionally gzip compressed. "-" reads
// standard input. batchSize <= 0 selects DefaultBatchSize.
func Open(path string, batchSize int) (*BatchReader, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	r, err := fastx.NewReader(nil, path, "")
	if err != nil {
		return nil, fmt.Errorf("reads: open %s: %w", path, err)
	}
	return &BatchReader{r: r, size: batchSize, path: path}, nil
}

// BatchSize returns the maximal number of reads per batch.
func (b *BatchReader) BatchSize() int { return b.size }

// Count returns the number of reads returned so far.
func (b *BatchReader) Count() int { return b.n }

// Next returns up to BatchSize reads. After the last read it returns
// io.EOF. A partially filled final batch is returned with a nil error.
func (b *BatchReader) Next(ctx context.Context) ([]Read, error) {
	if b.done {
		return nil, io.EOF
	}
	batch := make([]Read, 0, b.size)
	for len(batch) < b.size {
		if len(batch)%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := b.r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.done = true
				break
			}
			return nil, fmt.Errorf("reads: %s: read %d: %w", b.path, b.n+len(batch)+1, err)
		}
		// the reader reuses rec; copy what we keep
		batch = append(batch, Read{
			ID:  string(rec.ID),
			Seq: bytes.ToUpper(rec.Seq.Seq),
		})
	}
	b.n += len(batch)
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Close releases the underlying file.
func (b *BatchReader) Close() error {
	b.r.Close()
	return nil
}
