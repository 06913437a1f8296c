// Package reference loads a reference genome from FASTA and extracts its
// CpG catalogue.
package reference

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/index"
)

// Reference holds the chromosomes of a genome in file order.
type Reference struct {
	Names []string
	Seqs  [][]byte
}

// LoadFASTA reads every record of a FASTA file, optionally gzip
// compressed. Sequences are uppercased; record ids become chromosome names
// and must be unique.
func LoadFASTA(path string) (*Reference, error) {
	r, err := fastx.NewReader(nil, path, "")
	if err != nil {
		return nil, fmt.Errorf("reference: open %s: %w", path, err)
	}
	defer r.Close()

	ref := &Reference{}
	seen := make(map[string]struct{})
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reference: %s: %w", path, err)
		}
		if len(ref.Seqs) == index.MaxChromosomes {
			return nil, fmt.Errorf("reference: %s: %w: more than %d", path, index.ErrTooManyChromosomes, index.MaxChromosomes)
		}
		name := string(rec.ID)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("reference: %s: duplicate chromosome %q", path, name)
		}
		seen[name] = struct{}{}
		ref.Names = append(ref.Names, name)
		ref.Seqs = append(ref.Seqs, bytes.ToUpper(rec.Seq.Seq))
	}
	if len(ref.Seqs) == 0 {
		return nil, fmt.Errorf("reference: %s: no sequences", path)
	}
	return ref, nil
}

// Genome packs the chromosomes.
func (r *Reference) Genome() *genome.Genome { return genome.New(r.Seqs) }

// Len returns the total number of bases.
func (r *Reference) Len() int {
	n := 0
	for _, s := range r.Seqs {
		n += len(s)
	}
	return n
}

// FindCpGs returns the position of every CG dinucleotide, split into
// ordinary and start CpGs for reads of length readLen. Both tables are
// sorted.
func FindCpGs(seqs [][]byte, readLen int) (ordinary, start []index.CpG) {
	for ci, s := range seqs {
		for i := bytes.Index(s, cg); i >= 0; {
			c := index.CpG{Chrom: uint16(ci), Pos: uint32(i)}
			if index.IsStartCpG(c.Pos, readLen) {
				start = append(start, c)
			} else {
				ordinary = append(ordinary, c)
			}
			j := bytes.Index(s[i+1:], cg)
			if j < 0 {
				break
			}
			i += 1 + j
		}
	}
	return ordinary, start
}

var cg = []byte("CG")
