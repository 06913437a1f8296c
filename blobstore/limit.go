package blobstore

import (
	"context"
	"io"
)

// AcquireFunc blocks until n bytes of I/O may proceed.
type AcquireFunc func(ctx context.Context, n int) error

// Limit wraps a Store so that every byte read or written is first charged
// to acquire.
func Limit(inner Store, acquire AcquireFunc) Store {
	if acquire == nil {
		return inner
	}
	return &limitedStore{inner: inner, acquire: acquire}
}

type limitedStore struct {
	inner   Store
	acquire AcquireFunc
}

func (s *limitedStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &limitedBlob{inner: b, acquire: s.acquire}, nil
}

func (s *limitedStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &limitedWritableBlob{inner: w, ctx: ctx, acquire: s.acquire}, nil
}

func (s *limitedStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.acquire(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

func (s *limitedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

func (s *limitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type limitedBlob struct {
	inner   Blob
	acquire AcquireFunc
}

func (b *limitedBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.acquire(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.inner.ReadAt(ctx, p, off)
}

func (b *limitedBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	rc, err := b.inner.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &limitedReader{inner: rc, ctx: ctx, acquire: b.acquire}, nil
}

func (b *limitedBlob) Size() int64 { return b.inner.Size() }

func (b *limitedBlob) Close() error { return b.inner.Close() }

type limitedReader struct {
	inner   io.ReadCloser
	ctx     context.Context
	acquire AcquireFunc
}

// Read charges the bytes actually read, so short reads are not overcharged.
func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		if aerr := r.acquire(r.ctx, n); aerr != nil {
			return n, aerr
		}
	}
	return n, err
}

func (r *limitedReader) Close() error { return r.inner.Close() }

type limitedWritableBlob struct {
	inner   WritableBlob
	ctx     context.Context
	acquire AcquireFunc
}

func (w *limitedWritableBlob) Write(p []byte) (int, error) {
	if err := w.acquire(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.inner.Write(p)
}

func (w *limitedWritableBlob) Sync() error { return w.inner.Sync() }

func (w *limitedWritableBlob) Close() error { return w.inner.Close() }

func (w *limitedWritableBlob) Abort() error { return Abort(w.inner) }
