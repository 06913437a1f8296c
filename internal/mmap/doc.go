// Package mmap maps index files read-only into memory.
//
// Loading a saved index is one long sequential scan, so Open advises the
// kernel accordingly. The mapping is released with Close; slices obtained
// from Bytes must not be used afterwards.
package mmap
