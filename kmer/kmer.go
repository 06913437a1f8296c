// Package kmer defines the packed k-mer index entries.
//
// A Kmer identifies one k-mer occurrence in a meta-CpG window:
//
//	bit  63      start flag (meta index refers to the start meta-CpG table)
//	bits 17..62  meta-CpG index
//	bits  1..16  offset of the k-mer start relative to the window base
//	bit   0      strand (1 = forward)
//
// Small is the narrow variant used for start meta-CpGs when persisting:
//
//	bits 13..31  start meta-CpG index
//	bits  1..12  offset
//	bit   0      strand
package kmer

import "fmt"

const (
	strandBit   = 1
	offsetShift = 1
	offsetBits  = 16
	metaShift   = offsetShift + offsetBits
	metaBits    = 46
	startBit    = uint64(1) << 63

	smallOffsetBits = 12
	smallMetaShift  = offsetShift + smallOffsetBits
	smallMetaBits   = 19
)

// Limits of the encodings.
const (
	MaxOffset      = 1<<offsetBits - 1
	MaxMeta        = 1<<metaBits - 1
	MaxSmallOffset = 1<<smallOffsetBits - 1
	MaxSmallMeta   = 1<<smallMetaBits - 1
)

// Kmer is a full-width index entry.
type Kmer uint64

// New encodes an entry. It panics if meta or offset exceed the encoding.
func New(meta uint64, offset uint32, start, forward bool) Kmer {
	if meta > MaxMeta || offset > MaxOffset {
		panic(fmt.Sprintf("kmer: meta %d offset %d out of range", meta, offset))
	}
	v := meta<<metaShift | uint64(offset)<<offsetShift
	if start {
		v |= startBit
	}
	if forward {
		v |= strandBit
	}
	return Kmer(v)
}

// Meta returns the meta-CpG index.
func (k Kmer) Meta() uint64 { return uint64(k) &^ startBit >> metaShift }

// Offset returns the offset relative to the window base.
func (k Kmer) Offset() uint32 { return uint32(uint64(k) >> offsetShift & MaxOffset) }

// IsStart reports whether the entry refers to a start meta-CpG.
func (k Kmer) IsStart() bool { return uint64(k)&startBit != 0 }

// IsForward reports whether the entry is on the forward strand.
func (k Kmer) IsForward() bool { return uint64(k)&strandBit != 0 }

// Group clears the offset, leaving the (meta, start, strand) identity.
func (k Kmer) Group() Kmer { return k &^ Kmer(MaxOffset<<offsetShift) }

// Small returns the narrow form of a start entry. ok is false if the entry
// is not a start entry or does not fit.
func (k Kmer) Small() (s Small, ok bool) {
	if !k.IsStart() || k.Meta() > MaxSmallMeta || k.Offset() > MaxSmallOffset {
		return 0, false
	}
	return NewSmall(uint32(k.Meta()), k.Offset(), k.IsForward()), true
}

func (k Kmer) String() string {
	strand := '-'
	if k.IsForward() {
		strand = '+'
	}
	kind := "meta"
	if k.IsStart() {
		kind = "start"
	}
	return fmt.Sprintf("%s:%d@%d%c", kind, k.Meta(), k.Offset(), strand)
}

// Small is a narrow start-meta-CpG entry.
type Small uint32

// NewSmall encodes a narrow entry. It panics if meta or offset do not fit.
func NewSmall(meta, offset uint32, forward bool) Small {
	if meta > MaxSmallMeta || offset > MaxSmallOffset {
		panic(fmt.Sprintf("kmer: small meta %d offset %d out of range", meta, offset))
	}
	v := meta<<smallMetaShift | offset<<offsetShift
	if forward {
		v |= strandBit
	}
	return Small(v)
}

// Meta returns the start meta-CpG index.
func (s Small) Meta() uint32 { return uint32(s) >> smallMetaShift }

// Offset returns the offset.
func (s Small) Offset() uint32 { return uint32(s) >> offsetShift & MaxSmallOffset }

// IsForward reports whether the entry is on the forward strand.
func (s Small) IsForward() bool { return uint32(s)&strandBit != 0 }

// Kmer widens the entry, setting the start flag.
func (s Small) Kmer() Kmer {
	return New(uint64(s.Meta()), s.Offset(), true, s.IsForward())
}
