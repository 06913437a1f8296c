package match

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/reads"
)

// Result holds the verified seeds of one read in both orientations. Index
// is the position of the read in its batch. Reads shorter than the k-mer
// length have empty lists.
type Result struct {
	Index   int
	ID      string
	Forward SeedList
	Reverse SeedList
}

// Len returns the number of verified seeds in both orientations.
func (r Result) Len() int { return r.Forward.Len() + r.Reverse.Len() }

// Options configure an Engine.
type Options struct {
	// Workers is the size of the worker pool. Defaults to GOMAXPROCS.
	Workers int
	// Stats receives per-read statistics when set.
	Stats StatsRecorder
}

// Engine matches reads against an immutable index. It is safe for
// concurrent use; concurrent calls share the worker scratch pool.
type Engine struct {
	ix      *index.Index
	k       int
	workers int
	stats   StatsRecorder
	pool    chan *scratch
}

// NewEngine creates an engine with one scratch buffer per worker.
func NewEngine(ix *index.Index, optFns ...func(o *Options)) *Engine {
	opts := Options{Workers: runtime.GOMAXPROCS(0)}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	e := &Engine{
		ix:      ix,
		k:       ix.Params().KmerLen,
		workers: opts.Workers,
		stats:   opts.Stats,
		pool:    make(chan *scratch, opts.Workers),
	}
	for i := 0; i < opts.Workers; i++ {
		e.pool <- newScratch(ix.NumMetas())
	}
	return e
}

// Workers returns the size of the worker pool.
func (e *Engine) Workers() int { return e.workers }

// Index returns the index the engine matches against.
func (e *Engine) Index() *index.Index { return e.ix }

// Match matches a single read on the calling goroutine.
func (e *Engine) Match(ctx context.Context, r reads.Read) (Result, error) {
	sc, err := e.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer e.release(sc)
	return e.match(sc, 0, r), nil
}

// MatchReads matches a batch and returns the results in batch order.
func (e *Engine) MatchReads(ctx context.Context, batch []reads.Read) ([]Result, error) {
	results := make([]Result, len(batch))
	err := e.MatchReadsFunc(ctx, batch, func(r Result) error {
		results[r.Index] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MatchReadsFunc matches a batch and calls fn on the calling goroutine with
// each result in completion order. The context is checked before each read;
// a read that has started always completes. An error from fn stops the
// batch and is returned.
func (e *Engine) MatchReadsFunc(ctx context.Context, batch []reads.Read, fn func(Result) error) error {
	if len(batch) == 0 {
		return ctx.Err()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	workers := min(e.workers, len(batch))
	out := make(chan Result, workers)
	var next atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			sc, err := e.acquire(gctx)
			if err != nil {
				return err
			}
			defer e.release(sc)

			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= len(batch) {
					return nil
				}
				out <- e.match(sc, i, batch[i])
			}
		})
	}

	var werr error
	go func() {
		werr = g.Wait()
		close(out)
	}()

	var ferr error
	for r := range out {
		if ferr != nil {
			continue
		}
		if ferr = fn(r); ferr != nil {
			cancel(ferr)
		}
	}
	if ferr != nil {
		return ferr
	}
	return werr
}

func (e *Engine) acquire(ctx context.Context) (*scratch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case sc := <-e.pool:
		return sc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) release(sc *scratch) { e.pool <- sc }

// match runs all stages for one read.
func (e *Engine) match(sc *scratch, i int, r reads.Read) Result {
	begin := time.Now()
	res := Result{Index: i, ID: r.ID}
	st := ReadStats{Index: i, ID: r.ID, Len: len(r.Seq)}

	if len(r.Seq) < e.k {
		st.Short = true
		e.record(st, begin)
		return res
	}

	hashes(sc, r.Seq, e.k)
	threshold := e.ix.Params().SeedThreshold(len(r.Seq))
	for _, reverse := range []bool{false, true} {
		var c StageCounts
		seed(e.ix, sc, reverse)
		c.Seeded = sc.seeded.list().Len()
		prune(e.ix, sc, threshold)
		c.Pruned = sc.pruned.list().Len()
		verify(e.ix, sc, r.Seq, e.k, reverse)
		c.Verified = sc.verified.list().Len()

		if reverse {
			res.Reverse, st.Reverse = sc.verified.clone(), c
		} else {
			res.Forward, st.Forward = sc.verified.clone(), c
		}
	}
	e.record(st, begin)
	return res
}

func (e *Engine) record(st ReadStats, begin time.Time) {
	if e.stats == nil {
		return
	}
	st.Duration = time.Since(begin)
	e.stats.RecordRead(st)
}
