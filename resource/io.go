package resource

import (
	"context"
	"io"
)

// LimitedWriter charges every write to the controller's I/O limit.
type LimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
}

// NewLimitedWriter wraps w.
func NewLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *LimitedWriter {
	return &LimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *LimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// LimitedReader charges the bytes actually read to the controller's I/O
// limit.
type LimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
}

// NewLimitedReader wraps r.
func NewLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *LimitedReader {
	return &LimitedReader{ctx: ctx, r: r, rc: rc}
}

func (r *LimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if aerr := r.rc.AcquireIO(r.ctx, n); aerr != nil {
			return n, aerr
		}
	}
	return n, err
}
