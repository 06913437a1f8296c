// Package blobstore abstracts where saved indexes live.
//
// Store is the interface for reading and writing named blobs. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, memory-mapped reads
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO or any S3-compatible endpoint
//
// Limit wraps any Store with an I/O budget.
package blobstore
