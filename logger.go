package metal

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/metal/index"
)

// Logger wraps slog.Logger with metal-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithIndex adds the parameters of an index to the logger.
func (l *Logger) WithIndex(ix *index.Index) *Logger {
	p := ix.Params()
	return &Logger{
		Logger: l.Logger.With("kmer_len", p.KmerLen, "read_len", p.ReadLen),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogLoad logs loading an index.
func (l *Logger) LogLoad(ctx context.Context, name string, ix *index.Index, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index load failed",
			"name", name,
			"error", err,
		)
		return
	}
	s := ix.Stats()
	l.InfoContext(ctx, "index loaded",
		"name", name,
		"chromosomes", s.Chromosomes,
		"entries", s.Entries,
		"size_bytes", s.SizeBytes,
		"elapsed", elapsed,
	)
}

// LogSave logs saving an index.
func (l *Logger) LogSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index saved",
			"name", name,
		)
	}
}

// LogBatch logs one aligned batch.
func (l *Logger) LogBatch(ctx context.Context, batch, size, matched int, elapsed time.Duration) {
	l.DebugContext(ctx, "batch aligned",
		"batch", batch,
		"reads", size,
		"matched", matched,
		"elapsed", elapsed,
	)
}
