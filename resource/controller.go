// Package resource bounds the memory, concurrency, and I/O bandwidth that
// index loading and alignment may use. A nil *Controller imposes no limits.
package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation can never fit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps memory reserved for open indexes and alignment
	// scratch space. If 0, usage is only tracked.
	MemoryLimitBytes int64

	// MaxInflightBatches is the number of read batches aligned at once.
	// If 0, defaults to 1.
	MaxInflightBatches int64

	// IOLimitBytesPerSec caps index load and save throughput. If 0,
	// unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	batchSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxInflightBatches <= 0 {
		cfg.MaxInflightBatches = 1
	}

	c := &Controller{
		cfg:      cfg,
		batchSem: semaphore.NewWeighted(cfg.MaxInflightBatches),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(min(cfg.IOLimitBytesPerSec, 1<<30)))
	}
	return c
}

// Config returns the limits in effect.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireMemory reserves bytes, blocking until they are available or ctx is
// done. A reservation larger than the whole limit fails immediately.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if bytes > c.cfg.MemoryLimitBytes {
			return ErrMemoryLimitExceeded
		}
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns a reservation.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireBatch blocks until a batch slot is free.
func (c *Controller) AcquireBatch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.batchSem.Acquire(ctx, 1)
}

// TryAcquireBatch takes a batch slot without blocking.
func (c *Controller) TryAcquireBatch() bool {
	if c == nil {
		return true
	}
	return c.batchSem.TryAcquire(1)
}

// ReleaseBatch frees a batch slot.
func (c *Controller) ReleaseBatch() {
	if c == nil {
		return
	}
	c.batchSem.Release(1)
}

// AcquireIO waits until the I/O limit admits bytes. Requests larger than
// the limiter burst are admitted in pieces.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
