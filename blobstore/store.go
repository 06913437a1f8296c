package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store is a flat namespace of immutable blobs.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts a new blob. It becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a blob.
type Blob interface {
	io.Closer
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off, clipped to the blob.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync makes written data durable where the backend supports it.
	Sync() error
}

// Aborter is an optional interface for writable blobs whose contents can
// be discarded instead of committed.
type Aborter interface {
	Abort() error
}

// Abort discards wb if it supports it and closes it otherwise.
func Abort(wb WritableBlob) error {
	if a, ok := wb.(Aborter); ok {
		return a.Abort()
	}
	return wb.Close()
}

// Mappable is an optional interface for blobs backed by memory.
type Mappable interface {
	// Bytes returns the blob contents without copying. The slice is valid
	// until the blob is closed.
	Bytes() ([]byte, error)
}

// NewReader returns a sequential reader over the whole blob. Mappable blobs
// are read in place.
func NewReader(ctx context.Context, b Blob) (io.ReadCloser, error) {
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err == nil {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}
	return b.ReadRange(ctx, 0, b.Size())
}
