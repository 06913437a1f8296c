package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/metal/genome"
	"github.com/hupe1980/metal/internal/nthash"
	"github.com/hupe1980/metal/kmer"
)

// MaxChromosomes is the number of chromosomes a CpG can address.
const MaxChromosomes = 1 << 16

// metas per unit of parallel work in the counting pass
const countChunk = 256

type buildOptions struct {
	logger  *slog.Logger
	workers int
	names   []string
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithBuildLogger sets the logger for build progress.
func WithBuildLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// WithBuildWorkers bounds the parallelism of the counting pass.
func WithBuildWorkers(n int) BuildOption {
	return func(o *buildOptions) { o.workers = n }
}

// WithChromNames names the chromosomes in genome order. Defaults to their
// ordinal.
func WithChromNames(names []string) BuildOption {
	return func(o *buildOptions) { o.names = names }
}

// Build constructs the index for g.
//
// cpgs and startCpGs are the ordinary and start CpG tables (see SplitCpGs);
// both are sorted if necessary. A CpG outside its chromosome, or in the
// wrong table, aborts the build with a *CpGError. The result depends only
// on the inputs and p.
func Build(ctx context.Context, g *genome.Genome, cpgs, startCpGs []CpG, p Params, opts ...BuildOption) (*Index, error) {
	o := buildOptions{
		logger:  slog.New(slog.DiscardHandler),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if g.NumChroms() > MaxChromosomes {
		return nil, fmt.Errorf("%w: %d", ErrTooManyChromosomes, g.NumChroms())
	}

	names := o.names
	if names == nil {
		names = make([]string, g.NumChroms())
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
	}
	if len(names) != g.NumChroms() {
		return nil, fmt.Errorf("index: %d chromosome names for %d chromosomes", len(names), g.NumChroms())
	}
	chroms := make(map[string]uint16, len(names))
	for i, n := range names {
		if _, dup := chroms[n]; dup {
			return nil, fmt.Errorf("index: duplicate chromosome name %q", n)
		}
		chroms[n] = uint16(i)
	}

	cpgs = sortedCpGs(cpgs)
	startCpGs = sortedCpGs(startCpGs)
	if err := validateCpGs(g, cpgs, false, p); err != nil {
		return nil, err
	}
	if err := validateCpGs(g, startCpGs, true, p); err != nil {
		return nil, err
	}

	ix := &Index{
		params:     p,
		names:      names,
		chroms:     chroms,
		genome:     g,
		cpgs:       cpgs,
		startCpGs:  startCpGs,
		metas:      GroupMetaCpGs(cpgs, p.ReadLen),
		startMetas: GroupMetaCpGs(startCpGs, p.ReadLen),
		filtered:   roaring64.New(),
	}
	if uint64(len(ix.metas)) > kmer.MaxMeta || len(ix.startMetas) > kmer.MaxSmallMeta+1 {
		return nil, fmt.Errorf("index: %d meta-CpGs and %d start meta-CpGs exceed the entry encoding",
			len(ix.metas), len(ix.startMetas))
	}

	log := o.logger.With("kmer_len", p.KmerLen, "read_len", p.ReadLen, "hash_bits", p.HashBits)
	log.InfoContext(ctx, "building index",
		"chromosomes", g.NumChroms(),
		"cpgs", len(cpgs),
		"start_cpgs", len(startCpGs),
		"meta_cpgs", len(ix.metas),
		"start_meta_cpgs", len(ix.startMetas),
	)
	begin := time.Now()

	counts := make([]atomic.Uint32, p.NumBuckets())
	if err := ix.countBuckets(ctx, counts, o.workers); err != nil {
		return nil, err
	}

	ix.tabIndex = make([]uint64, len(counts)+1)
	for b := range counts {
		ix.tabIndex[b+1] = ix.tabIndex[b] + uint64(counts[b].Load())
	}
	total := ix.tabIndex[len(counts)]
	log.DebugContext(ctx, "estimated table size", "entries", total, "elapsed", time.Since(begin))

	if err := ix.fill(ctx, counts, log); err != nil {
		return nil, err
	}

	ix.filter()

	log.InfoContext(ctx, "index built",
		"entries", len(ix.kmers),
		"estimated", total,
		"blacklisted", ix.blacklisted,
		"redundant", ix.redundant,
		"filtered_kmers", ix.filtered.GetCardinality(),
		"elapsed", time.Since(begin),
	)
	return ix, nil
}

func validateCpGs(g *genome.Genome, cpgs []CpG, start bool, p Params) error {
	for i, c := range cpgs {
		if int(c.Chrom) >= g.NumChroms() {
			return &CpGError{Index: i, CpG: c, Reason: "unknown chromosome"}
		}
		n := g.Chrom(int(c.Chrom)).Len()
		if int(c.Pos)+1 >= n {
			return &CpGError{Index: i, CpG: c, ChromLen: n, Reason: "outside chromosome"}
		}
		if IsStartCpG(c.Pos, p.ReadLen) != start {
			reason := "start CpG in ordinary table"
			if start {
				reason = "ordinary CpG in start table"
			}
			return &CpGError{Index: i, CpG: c, ChromLen: n, Reason: reason}
		}
	}
	return nil
}

// window walks the union of the k-mer start ranges of a meta-CpG's CpGs
// in ascending order, calling fn once per maximal run [lo, hi]. Starts
// already covered by an earlier CpG of the group are skipped.
func (ix *Index) window(table []CpG, m MetaCpG, fn func(c *genome.Chromosome, lo, hi int)) {
	c := ix.genome.Chrom(int(table[m.Start].Chrom))
	k, lead := ix.params.KmerLen, ix.params.Lead()
	last := c.Len() - k

	next := 0
	for i := m.Start; i <= m.End; i++ {
		p := int(table[i].Pos)
		lo := max(0, p-lead, next)
		hi := min(p+ix.params.ReadLen-k, last)
		if lo > hi {
			continue
		}
		fn(c, lo, hi)
		next = hi + 1
	}
}

// roll calls fn with the forward and reverse-complement reduced hashes of
// every k-mer starting in [lo, hi]. K-mers that overlap an ambiguous base
// are skipped.
func roll(c *genome.Chromosome, lo, hi, k int, fn func(pos int, hf, hr uint64)) {
	x, _ := c.Kmer(lo, k)
	r := nthash.NewRoller(x, k)
	amb := c.NextAmbiguous(lo)
	for pos := lo; ; pos++ {
		if amb < pos {
			amb = c.NextAmbiguous(pos)
		}
		if amb >= pos+k {
			hf, hr := r.Hashes()
			fn(pos, hf, hr)
		}
		if pos == hi {
			return
		}
		r.Next(c.Base(pos), c.Base(pos+k))
	}
}

type metaRange struct {
	table []CpG
	metas []MetaCpG
}

// countBuckets is the first pass: it counts the entries per bucket. Work is
// split into chunks of meta-CpGs; atomic increments make the result
// independent of scheduling.
func (ix *Index) countBuckets(ctx context.Context, counts []atomic.Uint32, workers int) error {
	var chunks []metaRange
	for _, t := range []metaRange{{ix.cpgs, ix.metas}, {ix.startCpGs, ix.startMetas}} {
		for i := 0; i < len(t.metas); i += countChunk {
			chunks = append(chunks, metaRange{table: t.table, metas: t.metas[i:min(i+countChunk, len(t.metas))]})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ch := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			k := ix.params.KmerLen
			for _, m := range ch.metas {
				ix.window(ch.table, m, func(c *genome.Chromosome, lo, hi int) {
					roll(c, lo, hi, k, func(_ int, hf, hr uint64) {
						counts[ix.Bucket(hf)].Add(1)
						counts[ix.Bucket(hr)].Add(1)
					})
				})
			}
			return nil
		})
	}
	return g.Wait()
}

// fill is the second pass: it places every entry into its bucket in a fixed
// order (ordinary metas, then start metas; positions ascending; forward
// before reverse). counts is reused as the per-bucket fill cursor.
func (ix *Index) fill(ctx context.Context, counts []atomic.Uint32, log *slog.Logger) error {
	total := ix.tabIndex[len(ix.tabIndex)-1]
	ix.kmers = make([]kmer.Kmer, total)
	ix.strands = bitset.New(uint(total))
	for b := range counts {
		counts[b].Store(0)
	}

	place := func(hash uint64, e kmer.Kmer) {
		b := ix.Bucket(hash)
		i := ix.tabIndex[b] + uint64(counts[b].Load())
		if i >= ix.tabIndex[b+1] {
			panic(fmt.Sprintf("index: bucket %d exceeds its estimated size %d", b, ix.tabIndex[b+1]-ix.tabIndex[b]))
		}
		ix.kmers[i] = e
		if e.IsForward() {
			ix.strands.Set(uint(i))
		}
		counts[b].Store(counts[b].Load() + 1)
	}

	progress := rate.Sometimes{Interval: 10 * time.Second}
	k, lead := ix.params.KmerLen, ix.params.Lead()
	nMetas := ix.NumMetas()

	for _, t := range []struct {
		table []CpG
		metas []MetaCpG
		start bool
	}{{ix.cpgs, ix.metas, false}, {ix.startCpGs, ix.startMetas, true}} {
		for mi, m := range t.metas {
			if mi%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			base := 0
			if !t.start {
				base = int(t.table[m.Start].Pos) - lead
			}
			meta := uint64(mi)
			ix.window(t.table, m, func(c *genome.Chromosome, lo, hi int) {
				roll(c, lo, hi, k, func(pos int, hf, hr uint64) {
					off := uint32(pos - base)
					place(hf, kmer.New(meta, off, t.start, true))
					place(hr, kmer.New(meta, off, t.start, false))
				})
			})

			done := mi
			if t.start {
				done += len(ix.metas)
			}
			progress.Do(func() {
				log.InfoContext(ctx, "hashing meta-CpGs", "done", done, "total", nMetas)
			})
		}
	}

	for b := range counts {
		if uint64(counts[b].Load()) != ix.tabIndex[b+1]-ix.tabIndex[b] {
			panic(fmt.Sprintf("index: bucket %d holds %d entries, estimated %d",
				b, counts[b].Load(), ix.tabIndex[b+1]-ix.tabIndex[b]))
		}
	}
	return nil
}
