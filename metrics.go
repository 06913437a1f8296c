package metal

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/metal/match"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus. Methods may be called concurrently.
type MetricsCollector interface {
	// RecordBuild is called after each index build. entries is the size of
	// the k-mer table.
	RecordBuild(entries int, duration time.Duration, err error)

	// RecordLoad is called after each index load.
	RecordLoad(duration time.Duration, err error)

	// RecordBatch is called after each aligned batch. matched is the
	// number of reads with at least one verified seed.
	RecordBatch(reads, matched int, duration time.Duration)

	// RecordRead is called by the match engine for every read.
	match.StatsRecorder
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)       {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordRead(match.ReadStats)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildEntries    atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	BatchCount      atomic.Int64
	BatchReads      atomic.Int64
	BatchMatched    atomic.Int64
	BatchTotalNanos atomic.Int64
	Reads           match.StatsTotals
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(entries int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildEntries.Add(int64(entries))
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(reads, matched int, duration time.Duration) {
	b.BatchCount.Add(1)
	b.BatchReads.Add(int64(reads))
	b.BatchMatched.Add(int64(matched))
	b.BatchTotalNanos.Add(duration.Nanoseconds())
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(s match.ReadStats) {
	b.Reads.RecordRead(s)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildEntries:  b.BuildEntries.Load(),
		LoadCount:     b.LoadCount.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		BatchCount:    b.BatchCount.Load(),
		BatchReads:    b.BatchReads.Load(),
		BatchMatched:  b.BatchMatched.Load(),
		BatchAvgNanos: b.getAvgBatchNanos(),
		Reads:         b.Reads.Reads.Load(),
		ShortReads:    b.Reads.Short.Load(),
		Seeded:        b.Reads.Seeded.Load(),
		Pruned:        b.Reads.Pruned.Load(),
		Verified:      b.Reads.Verified.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgBatchNanos() int64 {
	count := b.BatchCount.Load()
	if count == 0 {
		return 0
	}
	return b.BatchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildEntries  int64
	LoadCount     int64
	LoadErrors    int64
	BatchCount    int64
	BatchReads    int64
	BatchMatched  int64
	BatchAvgNanos int64
	Reads         int64
	ShortReads    int64
	Seeded        int64
	Pruned        int64
	Verified      int64
}
