package index

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/metal/blobstore"
	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/kmer"
	"github.com/hupe1980/metal/persistence"
)

// Section ids, in file order.
const (
	sectionParams uint32 = iota + 1
	sectionCpGs
	sectionStartCpGs
	sectionMetas
	sectionStartMetas
	sectionGenome
	sectionTabIndex
	sectionKmers
	sectionSmallKmers
	sectionStrands
	sectionFiltered
	sectionChroms

	numSections = sectionChroms
)

// Save writes the index to w.
func (ix *Index) Save(w io.Writer, c persistence.Compression) error {
	pw := persistence.NewWriter(w, c)
	if err := pw.WriteHeader(numSections); err != nil {
		return err
	}

	full, small, positions, err := ix.splitEntries()
	if err != nil {
		return err
	}

	for _, s := range []struct {
		id     uint32
		encode func() ([]byte, error)
	}{
		{sectionParams, ix.encodeParams},
		{sectionCpGs, func() ([]byte, error) { return encodeCpGs(ix.cpgs), nil }},
		{sectionStartCpGs, func() ([]byte, error) { return encodeCpGs(ix.startCpGs), nil }},
		{sectionMetas, func() ([]byte, error) { return encodeMetas(ix.metas), nil }},
		{sectionStartMetas, func() ([]byte, error) { return encodeMetas(ix.startMetas), nil }},
		{sectionGenome, ix.encodeGenome},
		{sectionTabIndex, func() ([]byte, error) { return encodeUint64s(ix.tabIndex), nil }},
		{sectionKmers, func() ([]byte, error) { return encodeUint64s(full), nil }},
		{sectionSmallKmers, func() ([]byte, error) { return encodeSmall(small, positions) }},
		{sectionStrands, ix.encodeStrands},
		{sectionFiltered, ix.encodeFiltered},
		{sectionChroms, ix.encodeChroms},
	} {
		payload, err := s.encode()
		if err != nil {
			return fmt.Errorf("index: encode section %d: %w", s.id, err)
		}
		if err := pw.WriteSection(s.id, payload); err != nil {
			return err
		}
	}
	return pw.Close()
}

// SaveFile writes the index to path atomically.
func (ix *Index) SaveFile(path string, c persistence.Compression) error {
	return persistence.SaveToFile(path, func(w io.Writer) error {
		return ix.Save(w, c)
	})
}

// SaveTo writes the index as blob name of store.
func (ix *Index) SaveTo(ctx context.Context, store blobstore.Store, name string, c persistence.Compression) error {
	wb, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(wb, 256*1024)
	err = ix.Save(bw, c)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = wb.Sync()
	}
	if err != nil {
		_ = blobstore.Abort(wb)
		return err
	}
	return wb.Close()
}

// OpenFile loads an index saved with SaveFile, reading through a memory
// mapping where the platform supports it.
func OpenFile(path string) (*Index, error) {
	var ix *Index
	err := persistence.LoadMapped(path, func(r io.Reader) error {
		var err error
		ix, err = Load(r)
		return err
	})
	return ix, err
}

// LoadFrom loads the index stored as blob name of store.
func LoadFrom(ctx context.Context, store blobstore.Store, name string) (*Index, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Load(bufio.NewReaderSize(r, 256*1024))
}

// Load reads and validates an index written by Save. Any malformed input
// yields an error wrapping persistence.ErrInvalidFormat.
func Load(r io.Reader) (*Index, error) {
	pr := persistence.NewReader(r)
	if _, err := pr.ReadHeader(); err != nil {
		return nil, err
	}

	ix := &Index{}
	var (
		full      []uint64
		small     []uint32
		positions *roaring.Bitmap
	)

	for _, s := range []struct {
		id     uint32
		decode func(*persistence.Decoder)
	}{
		{sectionParams, ix.decodeParams},
		{sectionCpGs, func(d *persistence.Decoder) { ix.cpgs = decodeCpGs(d) }},
		{sectionStartCpGs, func(d *persistence.Decoder) { ix.startCpGs = decodeCpGs(d) }},
		{sectionMetas, func(d *persistence.Decoder) { ix.metas = decodeMetas(d) }},
		{sectionStartMetas, func(d *persistence.Decoder) { ix.startMetas = decodeMetas(d) }},
		{sectionGenome, ix.decodeGenome},
		{sectionTabIndex, func(d *persistence.Decoder) { ix.tabIndex = d.Uint64s() }},
		{sectionKmers, func(d *persistence.Decoder) { full = d.Uint64s() }},
		{sectionSmallKmers, func(d *persistence.Decoder) { small, positions = decodeSmall(d) }},
		{sectionStrands, ix.decodeStrands},
		{sectionFiltered, ix.decodeFiltered},
		{sectionChroms, ix.decodeChroms},
	} {
		payload, err := pr.ReadSection(s.id)
		if err != nil {
			return nil, err
		}
		d := persistence.NewDecoder(payload)
		s.decode(d)
		if err := d.Finish(); err != nil {
			return nil, fmt.Errorf("section %d: %w", s.id, err)
		}
	}
	if err := pr.Close(); err != nil {
		return nil, err
	}

	if err := ix.joinEntries(full, small, positions); err != nil {
		return nil, err
	}
	if err := ix.validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", persistence.ErrInvalidFormat, fmt.Sprintf(format, args...))
}

func (ix *Index) encodeParams() ([]byte, error) {
	e := persistence.NewEncoder(64)
	p := ix.params
	for _, v := range []int{p.KmerLen, p.ReadLen, p.Mismatches, p.KmerCutoff, p.HashBits} {
		e.Uint32(uint32(v))
	}
	e.Bool(p.Lossless)
	e.Uint64(ix.blacklisted)
	e.Uint64(ix.redundant)
	return e.Bytes(), nil
}

func (ix *Index) decodeParams(d *persistence.Decoder) {
	ix.params = Params{
		KmerLen:    int(d.Uint32()),
		ReadLen:    int(d.Uint32()),
		Mismatches: int(d.Uint32()),
		KmerCutoff: int(d.Uint32()),
		HashBits:   int(d.Uint32()),
		Lossless:   d.Bool(),
	}
	ix.blacklisted = d.Uint64()
	ix.redundant = d.Uint64()
	if d.Err() != nil {
		return
	}
	if err := ix.params.Validate(); err != nil {
		d.Fail(fmt.Errorf("%w: %w", persistence.ErrInvalidFormat, err))
	}
}

func encodeCpGs(cpgs []CpG) []byte {
	e := persistence.NewEncoder(8 + len(cpgs)*6)
	e.Uint64(uint64(len(cpgs)))
	for _, c := range cpgs {
		e.Uint16(c.Chrom)
		e.Uint32(c.Pos)
	}
	return e.Bytes()
}

func decodeCpGs(d *persistence.Decoder) []CpG {
	n := d.Uint64()
	if n > uint64(d.Remaining()/6) {
		d.Fail(persistence.ErrTruncated)
		return nil
	}
	if n == 0 {
		return nil
	}
	cpgs := make([]CpG, n)
	for i := range cpgs {
		cpgs[i] = CpG{Chrom: d.Uint16(), Pos: d.Uint32()}
	}
	return cpgs
}

func encodeMetas(metas []MetaCpG) []byte {
	flat := make([]uint32, 0, 2*len(metas))
	for _, m := range metas {
		flat = append(flat, m.Start, m.End)
	}
	e := persistence.NewEncoder(8 + len(flat)*4)
	e.Uint32s(flat)
	return e.Bytes()
}

func decodeMetas(d *persistence.Decoder) []MetaCpG {
	flat := d.Uint32s()
	if len(flat)%2 != 0 {
		d.Fail(invalid("odd meta-CpG table length %d", len(flat)))
		return nil
	}
	if len(flat) == 0 {
		return nil
	}
	metas := make([]MetaCpG, len(flat)/2)
	for i := range metas {
		metas[i] = MetaCpG{Start: flat[2*i], End: flat[2*i+1]}
	}
	return metas
}

func encodeUint64s(s []uint64) []byte {
	e := persistence.NewEncoder(8 + len(s)*8)
	e.Uint64s(s)
	return e.Bytes()
}

func (ix *Index) encodeGenome() ([]byte, error) {
	e := persistence.NewEncoder(16 + int(ix.genome.SizeBytes()) + ix.genome.NumChroms()*16)
	e.Uint32(uint32(ix.genome.NumChroms()))
	for i := 0; i < ix.genome.NumChroms(); i++ {
		c := ix.genome.Chrom(i)
		e.Uint64(uint64(c.Len()))
		e.Uint64s(c.Words())

		amb := c.Ambiguous()
		if amb == nil {
			amb = roaring.New()
		}
		b, err := amb.ToBytes()
		if err != nil {
			return nil, err
		}
		e.Blob(b)
	}
	return e.Bytes(), nil
}

func (ix *Index) decodeGenome(d *persistence.Decoder) {
	n := int(d.Uint32())
	if n > MaxChromosomes {
		d.Fail(invalid("%d chromosomes", n))
		return
	}
	chroms := make([]genome.Chromosome, 0, min(n, d.Remaining()/16))
	for i := 0; i < n && d.Err() == nil; i++ {
		length := d.Uint64()
		words := d.Uint64s()
		bm := d.Blob()
		if d.Err() != nil {
			return
		}
		if length > math.MaxInt32*32 {
			d.Fail(invalid("chromosome %d length %d", i, length))
			return
		}
		amb := roaring.New()
		if err := amb.UnmarshalBinary(bm); err != nil {
			d.Fail(fmt.Errorf("%w: chromosome %d ambiguous bases: %w", persistence.ErrInvalidFormat, i, err))
			return
		}
		c, err := genome.FromWords(words, int(length), amb)
		if err != nil {
			d.Fail(fmt.Errorf("%w: %w", persistence.ErrInvalidFormat, err))
			return
		}
		chroms = append(chroms, c)
	}
	ix.genome = genome.FromChromosomes(chroms)
}

// splitEntries separates start entries, stored narrow, from the rest.
func (ix *Index) splitEntries() (full []uint64, small []uint32, positions *roaring.Bitmap, err error) {
	if uint64(len(ix.kmers)) > math.MaxUint32 {
		return nil, nil, nil, fmt.Errorf("index: %d entries exceed the narrow position map", len(ix.kmers))
	}
	positions = roaring.New()
	full = make([]uint64, 0, len(ix.kmers))
	for i, k := range ix.kmers {
		if s, ok := k.Small(); ok {
			small = append(small, uint32(s))
			positions.Add(uint32(i))
			continue
		}
		if k.IsStart() {
			return nil, nil, nil, fmt.Errorf("index: start entry %v does not fit the narrow encoding", k)
		}
		full = append(full, uint64(k))
	}
	positions.RunOptimize()
	return full, small, positions, nil
}

func encodeSmall(small []uint32, positions *roaring.Bitmap) ([]byte, error) {
	bm, err := positions.ToBytes()
	if err != nil {
		return nil, err
	}
	e := persistence.NewEncoder(16 + len(small)*4 + len(bm))
	e.Uint32s(small)
	e.Blob(bm)
	return e.Bytes(), nil
}

func decodeSmall(d *persistence.Decoder) ([]uint32, *roaring.Bitmap) {
	small := d.Uint32s()
	bm := d.Blob()
	if d.Err() != nil {
		return nil, nil
	}
	positions := roaring.New()
	if err := positions.UnmarshalBinary(bm); err != nil {
		d.Fail(fmt.Errorf("%w: start positions: %w", persistence.ErrInvalidFormat, err))
		return nil, nil
	}
	return small, positions
}

func (ix *Index) joinEntries(full []uint64, small []uint32, positions *roaring.Bitmap) error {
	total := uint64(len(full)) + uint64(len(small))
	if positions.GetCardinality() != uint64(len(small)) {
		return invalid("%d start positions for %d start entries", positions.GetCardinality(), len(small))
	}
	if len(small) > 0 && uint64(positions.Maximum()) >= total {
		return invalid("start position %d beyond %d entries", positions.Maximum(), total)
	}

	ix.kmers = make([]kmer.Kmer, total)
	var fi, si int
	for i := range ix.kmers {
		if positions.Contains(uint32(i)) {
			ix.kmers[i] = kmer.Small(small[si]).Kmer()
			si++
			continue
		}
		k := kmer.Kmer(full[fi])
		if k.IsStart() {
			return invalid("start entry %v in full table", k)
		}
		ix.kmers[i] = k
		fi++
	}
	return nil
}

func (ix *Index) encodeStrands() ([]byte, error) {
	b, err := ix.strands.MarshalBinary()
	if err != nil {
		return nil, err
	}
	e := persistence.NewEncoder(8 + len(b))
	e.Blob(b)
	return e.Bytes(), nil
}

func (ix *Index) decodeStrands(d *persistence.Decoder) {
	b := d.Blob()
	if d.Err() != nil {
		return
	}
	ix.strands = &bitset.BitSet{}
	if err := ix.strands.UnmarshalBinary(b); err != nil {
		d.Fail(fmt.Errorf("%w: strand table: %w", persistence.ErrInvalidFormat, err))
	}
}

func (ix *Index) encodeFiltered() ([]byte, error) {
	b, err := ix.filtered.ToBytes()
	if err != nil {
		return nil, err
	}
	e := persistence.NewEncoder(8 + len(b))
	e.Blob(b)
	return e.Bytes(), nil
}

func (ix *Index) decodeFiltered(d *persistence.Decoder) {
	b := d.Blob()
	if d.Err() != nil {
		return
	}
	ix.filtered = roaring64.New()
	if err := ix.filtered.UnmarshalBinary(b); err != nil {
		d.Fail(fmt.Errorf("%w: filtered set: %w", persistence.ErrInvalidFormat, err))
	}
}

func (ix *Index) encodeChroms() ([]byte, error) {
	e := persistence.NewEncoder(64 * len(ix.names))
	e.Uint32(uint32(len(ix.names)))
	for _, n := range ix.names {
		e.Text(n)
	}
	return e.Bytes(), nil
}

func (ix *Index) decodeChroms(d *persistence.Decoder) {
	n := int(d.Uint32())
	if n > MaxChromosomes {
		d.Fail(invalid("%d chromosome names", n))
		return
	}
	ix.names = make([]string, 0, min(n, d.Remaining()/4))
	ix.chroms = make(map[string]uint16, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		name := d.Text()
		if _, dup := ix.chroms[name]; dup {
			d.Fail(invalid("duplicate chromosome name %q", name))
			return
		}
		ix.names = append(ix.names, name)
		ix.chroms[name] = uint16(i)
	}
}

// validate checks the cross-section invariants of a decoded index.
func (ix *Index) validate() error {
	p := ix.params
	if len(ix.names) != ix.genome.NumChroms() {
		return invalid("%d chromosome names for %d chromosomes", len(ix.names), ix.genome.NumChroms())
	}

	for _, t := range []struct {
		cpgs  []CpG
		metas []MetaCpG
		start bool
	}{{ix.cpgs, ix.metas, false}, {ix.startCpGs, ix.startMetas, true}} {
		if !slices.IsSortedFunc(t.cpgs, CpG.Compare) {
			return invalid("CpG table not sorted")
		}
		if err := validateCpGs(ix.genome, t.cpgs, t.start, p); err != nil {
			return fmt.Errorf("%w: %w", persistence.ErrInvalidFormat, err)
		}
		if !slices.Equal(t.metas, GroupMetaCpGs(t.cpgs, p.ReadLen)) {
			return invalid("meta-CpG table does not match its CpGs")
		}
	}

	if len(ix.tabIndex) != p.NumBuckets()+1 {
		return invalid("tab index has %d entries, want %d", len(ix.tabIndex), p.NumBuckets()+1)
	}
	if ix.tabIndex[0] != 0 {
		return invalid("tab index starts at %d", ix.tabIndex[0])
	}
	for b := 1; b < len(ix.tabIndex); b++ {
		if ix.tabIndex[b] < ix.tabIndex[b-1] {
			return invalid("tab index decreases at bucket %d", b)
		}
	}
	if last := ix.tabIndex[len(ix.tabIndex)-1]; last != uint64(len(ix.kmers)) {
		return invalid("tab index ends at %d for %d entries", last, len(ix.kmers))
	}
	if ix.strands.Len() != uint(len(ix.kmers)) {
		return invalid("strand table has %d bits for %d entries", ix.strands.Len(), len(ix.kmers))
	}

	for i, k := range ix.kmers {
		if err := ix.checkEntry(k); err != nil {
			return invalid("entry %d: %v", i, err)
		}
		if k.IsForward() != ix.strands.Test(uint(i)) {
			return invalid("entry %d: strand bit disagrees with %v", i, k)
		}
	}
	return nil
}

var errEntryRange = errors.New("out of range")

// checkEntry is the non-panicking form of Resolve.
func (ix *Index) checkEntry(k kmer.Kmer) error {
	var chrom, pos int
	m := k.Meta()
	if k.IsStart() {
		if m >= uint64(len(ix.startMetas)) {
			return fmt.Errorf("start meta-CpG %d %w", m, errEntryRange)
		}
		c := ix.startCpGs[ix.startMetas[m].Start]
		chrom, pos = int(c.Chrom), int(k.Offset())
	} else {
		if m >= uint64(len(ix.metas)) {
			return fmt.Errorf("meta-CpG %d %w", m, errEntryRange)
		}
		c := ix.cpgs[ix.metas[m].Start]
		chrom, pos = int(c.Chrom), int(c.Pos)-ix.params.Lead()+int(k.Offset())
	}
	if pos < 0 || pos+ix.params.KmerLen > ix.genome.Chrom(chrom).Len() {
		return fmt.Errorf("position %d %w", pos, errEntryRange)
	}
	return nil
}
