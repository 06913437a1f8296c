package match

import (
	"sync/atomic"
	"time"
)

// StageCounts are the seed counts of one orientation after each stage.
type StageCounts struct {
	Seeded   int
	Pruned   int
	Verified int
}

// ReadStats describes how one read went through the engine.
type ReadStats struct {
	Index    int
	ID       string
	Len      int
	Short    bool // shorter than the k-mer length
	Forward  StageCounts
	Reverse  StageCounts
	Duration time.Duration
}

// StatsRecorder receives per-read statistics. It is called from worker
// goroutines and must be safe for concurrent use.
type StatsRecorder interface {
	RecordRead(ReadStats)
}

// StatsTotals accumulates ReadStats. The zero value is ready to use.
type StatsTotals struct {
	Reads    atomic.Int64
	Short    atomic.Int64
	Matched  atomic.Int64
	Seeded   atomic.Int64
	Pruned   atomic.Int64
	Verified atomic.Int64
	Nanos    atomic.Int64
}

// RecordRead implements StatsRecorder.
func (t *StatsTotals) RecordRead(s ReadStats) {
	t.Reads.Add(1)
	t.Nanos.Add(s.Duration.Nanoseconds())
	if s.Short {
		t.Short.Add(1)
	}
	if v := s.Forward.Verified + s.Reverse.Verified; v > 0 {
		t.Matched.Add(1)
		t.Verified.Add(int64(v))
	}
	t.Seeded.Add(int64(s.Forward.Seeded + s.Reverse.Seeded))
	t.Pruned.Add(int64(s.Forward.Pruned + s.Reverse.Pruned))
}
