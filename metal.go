package metal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/metal/blobstore"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/match"
	"github.com/hupe1980/metal/reads"
	"github.com/hupe1980/metal/reference"
)

// BuildIndex loads the FASTA reference at refPath, extracts its CpGs and
// builds the index.
func BuildIndex(ctx context.Context, refPath string, p index.Params, optFns ...Option) (*index.Index, error) {
	opts := applyOptions(optFns)
	log := opts.logger.WithPath(refPath)
	begin := time.Now()

	ix, err := buildIndex(ctx, refPath, p, opts, log)
	entries := 0
	if ix != nil {
		entries = len(ix.KmerTable())
	}
	opts.metricsCollector.RecordBuild(entries, time.Since(begin), err)
	if err != nil {
		log.ErrorContext(ctx, "index build failed", "error", err)
		return nil, translateError(err)
	}
	return ix, nil
}

func buildIndex(ctx context.Context, refPath string, p index.Params, opts options, log *Logger) (*index.Index, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ref, err := reference.LoadFASTA(refPath)
	if err != nil {
		return nil, err
	}
	ordinary, start := reference.FindCpGs(ref.Seqs, p.ReadLen)
	log.InfoContext(ctx, "reference loaded",
		"chromosomes", len(ref.Names),
		"bases", ref.Len(),
		"cpgs", len(ordinary)+len(start),
	)

	return index.Build(ctx, ref.Genome(), ordinary, start, p,
		index.WithBuildLogger(log.Logger),
		index.WithBuildWorkers(opts.workers),
		index.WithChromNames(ref.Names),
	)
}

// storeFor returns the store and blob name an index is kept under. Without
// WithStore and WithResourceController it returns a nil store and the
// index is accessed as a plain file.
func storeFor(name string, opts options) (blobstore.Store, string) {
	store := opts.store
	if store == nil {
		if opts.controller == nil {
			return nil, name
		}
		store = blobstore.NewLocalStore(filepath.Dir(name))
		name = filepath.Base(name)
	}
	if opts.controller != nil {
		store = blobstore.Limit(store, opts.controller.AcquireIO)
	}
	return store, name
}

// SaveIndex saves ix under name: a file path, or a blob name with WithStore.
func SaveIndex(ctx context.Context, ix *index.Index, name string, optFns ...Option) error {
	if ix == nil {
		return ErrIndexNotLoaded
	}
	opts := applyOptions(optFns)

	var err error
	if store, blob := storeFor(name, opts); store != nil {
		err = ix.SaveTo(ctx, store, blob, opts.compression)
	} else {
		err = ix.SaveFile(name, opts.compression)
	}
	opts.logger.LogSave(ctx, name, err)
	return err
}

// OpenIndex loads the index saved under name. The index memory is charged
// to the resource controller, if any; release it with CloseIndex.
func OpenIndex(ctx context.Context, name string, optFns ...Option) (*index.Index, error) {
	opts := applyOptions(optFns)
	begin := time.Now()

	var (
		ix  *index.Index
		err error
	)
	if store, blob := storeFor(name, opts); store != nil {
		ix, err = index.LoadFrom(ctx, store, blob)
	} else {
		ix, err = index.OpenFile(name)
	}
	if err == nil {
		if merr := opts.controller.AcquireMemory(ctx, ix.Stats().SizeBytes); merr != nil {
			ix, err = nil, fmt.Errorf("metal: reserve index memory: %w", merr)
		}
	}

	opts.metricsCollector.RecordLoad(time.Since(begin), err)
	opts.logger.LogLoad(ctx, name, ix, time.Since(begin), err)
	if err != nil {
		return nil, translateError(err)
	}
	return ix, nil
}

// CloseIndex returns the memory OpenIndex reserved for ix. The index must
// not be used by the caller's aligners afterwards.
func CloseIndex(ix *index.Index, optFns ...Option) {
	if ix == nil {
		return
	}
	opts := applyOptions(optFns)
	opts.controller.ReleaseMemory(ix.Stats().SizeBytes)
}

// Aligner streams reads through the match engine.
type Aligner struct {
	ix     *index.Index
	engine *match.Engine
	opts   options
}

// NewAligner creates an aligner over ix.
func NewAligner(ix *index.Index, optFns ...Option) (*Aligner, error) {
	if ix == nil {
		return nil, ErrIndexNotLoaded
	}
	opts := applyOptions(optFns)
	opts.logger = opts.logger.WithIndex(ix)
	return &Aligner{
		ix: ix,
		engine: match.NewEngine(ix, func(o *match.Options) {
			o.Workers = opts.workers
			o.Stats = opts.metricsCollector
		}),
		opts: opts,
	}, nil
}

// Index returns the index the aligner matches against.
func (a *Aligner) Index() *index.Index { return a.ix }

// AlignBatch matches one batch of reads. Results are in batch order.
func (a *Aligner) AlignBatch(ctx context.Context, batch []reads.Read) ([]match.Result, error) {
	begin := time.Now()
	results, err := a.engine.MatchReads(ctx, batch)
	if err != nil {
		return nil, err
	}
	matched := 0
	for _, r := range results {
		if r.Len() > 0 {
			matched++
		}
	}
	a.opts.metricsCollector.RecordBatch(len(batch), matched, time.Since(begin))
	return results, nil
}

// VisitFunc receives each aligned batch with its results in batch order.
type VisitFunc func(batch []reads.Read, results []match.Result) error

// Align reads the FASTQ or FASTA file at readsPath in batches and matches
// them. A reader goroutine fetches batches ahead of the matcher, up to the
// controller's in-flight batch limit. visit is called sequentially in file
// order on the calling goroutine; an error from it stops the run.
func (a *Aligner) Align(ctx context.Context, readsPath string, visit VisitFunc) error {
	br, err := reads.Open(readsPath, a.opts.batchSize)
	if err != nil {
		return err
	}
	defer br.Close()

	type pending struct {
		batch []reads.Read
		bytes int64
	}

	rc := a.opts.controller
	log := a.opts.logger.WithPath(readsPath)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan pending, max(1, int(rc.Config().MaxInflightBatches)))

	g.Go(func() error {
		defer close(queue)
		for {
			if err := rc.AcquireBatch(gctx); err != nil {
				return err
			}
			batch, err := br.Next(gctx)
			if err != nil {
				rc.ReleaseBatch()
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			p := pending{batch: batch, bytes: batchBytes(batch)}
			if err := rc.AcquireMemory(gctx, p.bytes); err != nil {
				rc.ReleaseBatch()
				return err
			}
			select {
			case queue <- p:
			case <-gctx.Done():
				rc.ReleaseMemory(p.bytes)
				rc.ReleaseBatch()
				return gctx.Err()
			}
		}
	})

	// the matcher runs on the calling goroutine
	var verr error
	n := 0
	for p := range queue {
		if verr == nil {
			if verr = a.alignPending(gctx, n, p.batch, visit, log); verr != nil {
				cancel()
			}
			n++
		}
		rc.ReleaseMemory(p.bytes)
		rc.ReleaseBatch()
	}

	rerr := g.Wait()
	if rerr != nil && !errors.Is(rerr, context.Canceled) {
		return rerr
	}
	if verr != nil {
		return verr
	}
	if rerr != nil {
		return rerr
	}
	log.InfoContext(ctx, "alignment finished", "reads", br.Count(), "batches", n)
	return nil
}

func (a *Aligner) alignPending(ctx context.Context, n int, batch []reads.Read, visit VisitFunc, log *Logger) error {
	begin := time.Now()
	results, err := a.AlignBatch(ctx, batch)
	if err != nil {
		return err
	}
	matched := 0
	for _, r := range results {
		if r.Len() > 0 {
			matched++
		}
	}
	log.LogBatch(ctx, n, len(batch), matched, time.Since(begin))
	return visit(batch, results)
}

func batchBytes(batch []reads.Read) int64 {
	var n int64
	for _, r := range batch {
		n += int64(len(r.ID) + len(r.Seq))
	}
	return n
}
