// Package genome stores reference chromosomes in 2-bit packed form.
//
// Bases are packed big-endian, 32 per uint64 word: base i lives in word i/32
// at bit offset 62-2*(i%32). Bits past the end of a chromosome are zero.
// Symbols other than ACGT are packed as A and their positions are kept in
// a roaring bitmap, so k-mers that overlap them can be skipped.
package genome

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/metal/dna"
)

const basesPerWord = 32

// Chromosome is one packed reference sequence.
type Chromosome struct {
	words []uint64
	n     int

	// positions of non-ACGT symbols, nil if there are none
	ambiguous *roaring.Bitmap
}

// Pack encodes an ASCII sequence. Symbols other than ACGT are stored as A
// and recorded as ambiguous.
func Pack(seq []byte) Chromosome {
	words := make([]uint64, (len(seq)+basesPerWord-1)/basesPerWord)
	var amb *roaring.Bitmap
	for i, b := range seq {
		if !dna.IsBase(b) {
			if amb == nil {
				amb = roaring.New()
			}
			amb.Add(uint32(i))
		}
		words[i/basesPerWord] |= dna.Code(b) << (62 - 2*uint(i%basesPerWord))
	}
	if amb != nil {
		amb.RunOptimize()
	}
	return Chromosome{words: words, n: len(seq), ambiguous: amb}
}

// FromWords reassembles a chromosome from its packed words and the
// positions of its ambiguous bases, which may be nil.
func FromWords(words []uint64, n int, ambiguous *roaring.Bitmap) (Chromosome, error) {
	if n < 0 || (n+basesPerWord-1)/basesPerWord != len(words) {
		return Chromosome{}, fmt.Errorf("genome: %d words cannot hold %d bases", len(words), n)
	}
	if ambiguous != nil && ambiguous.IsEmpty() {
		ambiguous = nil
	}
	if ambiguous != nil && int64(ambiguous.Maximum()) >= int64(n) {
		return Chromosome{}, fmt.Errorf("genome: ambiguous base at %d beyond length %d", ambiguous.Maximum(), n)
	}
	return Chromosome{words: words, n: n, ambiguous: ambiguous}, nil
}

// Len returns the number of bases.
func (c *Chromosome) Len() int { return c.n }

// Words returns the packed representation. It must not be modified.
func (c *Chromosome) Words() []uint64 { return c.words }

// Ambiguous returns the positions of the non-ACGT bases, or nil. It must
// not be modified.
func (c *Chromosome) Ambiguous() *roaring.Bitmap { return c.ambiguous }

// NextAmbiguous returns the first ambiguous position at or after pos, or
// Len if there is none.
func (c *Chromosome) NextAmbiguous(pos int) int {
	if c.ambiguous == nil || pos >= c.n {
		return c.n
	}
	it := c.ambiguous.Iterator()
	it.AdvanceIfNeeded(uint32(max(pos, 0)))
	if !it.HasNext() {
		return c.n
	}
	return int(it.PeekNext())
}

// Base returns the 2-bit code at position i.
func (c *Chromosome) Base(i int) uint64 {
	return c.words[i/basesPerWord] >> (62 - 2*uint(i%basesPerWord)) & 3
}

// Kmer returns the k bases starting at pos in forward orientation together
// with the span mask of the bases that exist. Positions past the end of the
// chromosome read as zero and are excluded from span.
func (c *Chromosome) Kmer(pos, k int) (bits, span uint64) {
	if pos < 0 || pos >= c.n || k <= 0 || k > dna.MaxK {
		panic(fmt.Sprintf("genome: kmer(%d, %d) out of range for length %d", pos, k, c.n))
	}

	w := pos / basesPerWord
	sh := 2 * uint(pos%basesPerWord)
	hi := c.words[w] << sh
	if sh > 0 && w+1 < len(c.words) {
		hi |= c.words[w+1] >> (64 - sh)
	}
	bits = hi >> (64 - 2*uint(k))

	valid := min(k, c.n-pos)
	span = dna.KmerMask(valid) << (2 * uint(k-valid))
	return bits, span
}

// KmerRev returns the reverse complement of the k bases starting at pos.
// Missing bases at the chromosome end appear as the leading positions of the
// result and are excluded from span.
func (c *Chromosome) KmerRev(pos, k int) (bits, span uint64) {
	fwd, _ := c.Kmer(pos, k)
	valid := min(k, c.n-pos)
	span = dna.KmerMask(valid)
	return dna.ReverseComplementBits(fwd, k) & span, span
}

// String decodes the chromosome back to ASCII. Ambiguous bases read as N.
func (c *Chromosome) String() string {
	out := make([]byte, c.n)
	for i := range out {
		out[i] = dna.Symbol(c.Base(i))
	}
	if c.ambiguous != nil {
		c.ambiguous.Iterate(func(x uint32) bool {
			out[x] = 'N'
			return true
		})
	}
	return string(out)
}

// Genome is an ordered set of packed chromosomes.
type Genome struct {
	chroms []Chromosome
}

// New packs each sequence as one chromosome, in order.
func New(seqs [][]byte) *Genome {
	g := &Genome{chroms: make([]Chromosome, len(seqs))}
	for i, s := range seqs {
		g.chroms[i] = Pack(s)
	}
	return g
}

// FromChromosomes builds a genome from already packed chromosomes.
func FromChromosomes(chroms []Chromosome) *Genome {
	return &Genome{chroms: chroms}
}

// NumChroms returns the number of chromosomes.
func (g *Genome) NumChroms() int { return len(g.chroms) }

// Chrom returns chromosome i.
func (g *Genome) Chrom(i int) *Chromosome { return &g.chroms[i] }

// TotalLen returns the summed length of all chromosomes.
func (g *Genome) TotalLen() int {
	var n int
	for i := range g.chroms {
		n += g.chroms[i].n
	}
	return n
}

// SizeBytes returns the memory held by the packed words.
func (g *Genome) SizeBytes() int64 {
	var n int64
	for i := range g.chroms {
		n += int64(len(g.chroms[i].words)) * 8
	}
	return n
}
