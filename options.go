package metal

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/metal/blobstore"
	"github.com/hupe1980/metal/persistence"
	"github.com/hupe1980/metal/reads"
	"github.com/hupe1980/metal/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	workers          int
	batchSize        int
	compression      persistence.Compression
	controller       *resource.Controller
	store            blobstore.Store
}

// Option configures the metal entry points.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := metal.NewJSONLogger(slog.LevelInfo)
//	ix, _ := metal.BuildIndex(ctx, "ref.fa", index.DefaultParams(), metal.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &metal.BasicMetricsCollector{}
//	a, _ := metal.NewAligner(ix, metal.WithMetricsCollector(metrics))
//	// ... align ...
//	stats := metrics.GetStats()
//	fmt.Printf("Reads: %d, matched: %d\n", stats.BatchReads, stats.BatchMatched)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithWorkers sets the number of goroutines used to build the index and to
// match reads. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithBatchSize sets the number of reads per batch.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithCompression selects the section codec for saved indexes.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceController bounds index IO bandwidth, in-flight batches and
// the memory they hold.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithStore saves and opens indexes in store instead of the local file
// system. Index names are then blob names.
func WithStore(store blobstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		workers:          runtime.GOMAXPROCS(0),
		batchSize:        reads.DefaultBatchSize,
		compression:      persistence.CompressionLZ4,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.batchSize < 1 {
		o.batchSize = reads.DefaultBatchSize
	}
	return o
}
