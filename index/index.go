// Package index builds and serves the meta-CpG k-mer hash index.
//
// CpGs closer than one read length are grouped into meta-CpGs. For every
// meta-CpG, every k-mer of every read that could cover one of its CpGs is
// hashed over the reduced (C→T) alphabet in both strand orientations and
// stored in a bucketed table: TabIndex[b]..TabIndex[b+1] delimits bucket b
// of KmerTable, and bit i of the strand table tells whether entry i was
// hashed from the forward strand.
//
// An Index is immutable once built and safe for concurrent readers.
package index

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/internal/nthash"
	"github.com/hupe1980/metal/kmer"
)

const fibonacci = 0x9E3779B97F4A7C15

// Index is the meta-CpG k-mer hash index.
type Index struct {
	params Params
	names  []string
	chroms map[string]uint16
	genome *genome.Genome

	cpgs       []CpG
	startCpGs  []CpG
	metas      []MetaCpG
	startMetas []MetaCpG

	tabIndex []uint64
	kmers    []kmer.Kmer
	strands  *bitset.BitSet
	filtered *roaring64.Bitmap

	blacklisted uint64
	redundant   uint64
}

// Params returns the parameters the index was built with.
func (ix *Index) Params() Params { return ix.params }

// Genome returns the packed reference.
func (ix *Index) Genome() *genome.Genome { return ix.genome }

// ChromName returns the name of chromosome i.
func (ix *Index) ChromName(i int) string { return ix.names[i] }

// ChromNames returns all chromosome names in index order.
func (ix *Index) ChromNames() []string { return ix.names }

// ChromID returns the index of the named chromosome.
func (ix *Index) ChromID(name string) (int, bool) {
	id, ok := ix.chroms[name]
	return int(id), ok
}

// CpGs returns the ordinary CpG table.
func (ix *Index) CpGs() []CpG { return ix.cpgs }

// StartCpGs returns the start CpG table.
func (ix *Index) StartCpGs() []CpG { return ix.startCpGs }

// MetaCpGs returns the ordinary meta-CpG table.
func (ix *Index) MetaCpGs() []MetaCpG { return ix.metas }

// StartMetaCpGs returns the start meta-CpG table.
func (ix *Index) StartMetaCpGs() []MetaCpG { return ix.startMetas }

// TabIndex returns the bucket boundaries. It must not be modified.
func (ix *Index) TabIndex() []uint64 { return ix.tabIndex }

// KmerTable returns all entries in bucket order. It must not be modified.
func (ix *Index) KmerTable() []kmer.Kmer { return ix.kmers }

// NumMetas returns the number of ordinary plus start meta-CpGs.
func (ix *Index) NumMetas() int { return len(ix.metas) + len(ix.startMetas) }

// MetaID maps an entry to a dense id in [0, NumMetas()): ordinary metas
// first, start metas after them.
func (ix *Index) MetaID(k kmer.Kmer) int {
	if k.IsStart() {
		return len(ix.metas) + int(k.Meta())
	}
	return int(k.Meta())
}

// Bucket maps a raw hash to its bucket.
func (ix *Index) Bucket(hash uint64) uint64 {
	return (hash * fibonacci) >> (64 - uint(ix.params.HashBits))
}

// Lookup returns the half-open entry range of bucket b.
func (ix *Index) Lookup(b uint64) (lo, hi int) {
	return int(ix.tabIndex[b]), int(ix.tabIndex[b+1])
}

// Entry returns entry i and whether it lies on the forward strand.
func (ix *Index) Entry(i int) (kmer.Kmer, bool) {
	return ix.kmers[i], ix.strands.Test(uint(i))
}

// IsFiltered reports whether the k-mer with the given raw forward hash was
// removed as a repeat.
func (ix *Index) IsFiltered(hash uint64) bool {
	return ix.filtered.Contains(hash)
}

// IsFilteredKmer reports whether the packed k-mer x was removed as a repeat.
func (ix *Index) IsFilteredKmer(x uint64) bool {
	return ix.IsFiltered(nthash.Forward(x, ix.params.KmerLen))
}

// Resolve returns the chromosome and absolute start position of the k-mer
// an entry refers to. It panics if the entry does not decode to a position
// inside the index.
func (ix *Index) Resolve(k kmer.Kmer) (chrom, pos int) {
	m := k.Meta()
	if k.IsStart() {
		if m >= uint64(len(ix.startMetas)) {
			panic(fmt.Sprintf("index: start meta-CpG %d out of range (%d)", m, len(ix.startMetas)))
		}
		c := ix.startCpGs[ix.startMetas[m].Start]
		chrom, pos = int(c.Chrom), int(k.Offset())
	} else {
		if m >= uint64(len(ix.metas)) {
			panic(fmt.Sprintf("index: meta-CpG %d out of range (%d)", m, len(ix.metas)))
		}
		c := ix.cpgs[ix.metas[m].Start]
		chrom, pos = int(c.Chrom), int(c.Pos)-ix.params.Lead()+int(k.Offset())
	}

	if n := ix.genome.Chrom(chrom).Len(); pos < 0 || pos+ix.params.KmerLen > n {
		panic(fmt.Sprintf("index: %v resolves to %d outside chromosome %d of length %d", k, pos, chrom, n))
	}
	return chrom, pos
}

// ReferenceKmer reproduces the reference k-mer of an entry in the given
// strand orientation along with its span mask.
func (ix *Index) ReferenceKmer(k kmer.Kmer, forward bool) (bits, span uint64) {
	chrom, pos := ix.Resolve(k)
	c := ix.genome.Chrom(chrom)
	if forward {
		return c.Kmer(pos, ix.params.KmerLen)
	}
	return c.KmerRev(pos, ix.params.KmerLen)
}

// Stats summarizes an index.
type Stats struct {
	Chromosomes   int
	GenomeBases   int
	CpGs          int
	StartCpGs     int
	MetaCpGs      int
	StartMetaCpGs int
	Buckets       int
	Entries       int
	LargestBucket int
	FilteredKmers uint64
	Blacklisted   uint64
	Redundant     uint64
	SizeBytes     int64
}

// Stats returns summary statistics.
func (ix *Index) Stats() Stats {
	s := Stats{
		Chromosomes:   ix.genome.NumChroms(),
		GenomeBases:   ix.genome.TotalLen(),
		CpGs:          len(ix.cpgs),
		StartCpGs:     len(ix.startCpGs),
		MetaCpGs:      len(ix.metas),
		StartMetaCpGs: len(ix.startMetas),
		Buckets:       len(ix.tabIndex) - 1,
		Entries:       len(ix.kmers),
		FilteredKmers: ix.filtered.GetCardinality(),
		Blacklisted:   ix.blacklisted,
		Redundant:     ix.redundant,
	}
	for b := 0; b < s.Buckets; b++ {
		s.LargestBucket = max(s.LargestBucket, int(ix.tabIndex[b+1]-ix.tabIndex[b]))
	}
	s.SizeBytes = ix.genome.SizeBytes() +
		int64(len(ix.tabIndex))*8 +
		int64(len(ix.kmers))*8 +
		int64(len(ix.strands.Bytes()))*8 +
		int64(len(ix.cpgs)+len(ix.startCpGs))*8 +
		int64(len(ix.metas)+len(ix.startMetas))*8
	return s
}
