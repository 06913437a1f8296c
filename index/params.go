package index

import "github.com/hupe1980/metal/kmer"

// Default parameter values.
const (
	DefaultKmerLen    = 20
	DefaultReadLen    = 150
	DefaultMismatches = 2
	DefaultKmerCutoff = 1500
	DefaultHashBits   = 26

	// MaxReadLen keeps every start-window offset (< 3*ReadLen) within the
	// narrow entry encoding.
	MaxReadLen = (kmer.MaxSmallOffset + 1) / 3
)

// Params are the build-time constants of an index. They are persisted with
// the index and consumed by the match engine.
type Params struct {
	// KmerLen is the seed length k (1..32).
	KmerLen int
	// ReadLen is the maximal read length the windows are sized for.
	ReadLen int
	// Mismatches is the number of mismatches M the heuristic tolerates.
	Mismatches int
	// KmerCutoff is the occurrence count above which a k-mer is treated as
	// a repeat and removed.
	KmerCutoff int
	// HashBits sizes the bucket table at 2^HashBits buckets.
	HashBits int
	// Lossless disables repeat removal.
	Lossless bool
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		KmerLen:    DefaultKmerLen,
		ReadLen:    DefaultReadLen,
		Mismatches: DefaultMismatches,
		KmerCutoff: DefaultKmerCutoff,
		HashBits:   DefaultHashBits,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	switch {
	case p.KmerLen < 1 || p.KmerLen > 32:
		return &ParamError{Field: "kmer length", Value: p.KmerLen, Reason: "must be in [1, 32]"}
	case p.ReadLen < p.KmerLen:
		return &ParamError{Field: "read length", Value: p.ReadLen, Reason: "must be at least the k-mer length"}
	case p.ReadLen < 3:
		return &ParamError{Field: "read length", Value: p.ReadLen, Reason: "must be at least 3"}
	case p.ReadLen > MaxReadLen:
		return &ParamError{Field: "read length", Value: p.ReadLen, Reason: "exceeds the maximum window size"}
	case p.Mismatches < 0:
		return &ParamError{Field: "mismatches", Value: p.Mismatches, Reason: "must not be negative"}
	case p.KmerCutoff < 1:
		return &ParamError{Field: "k-mer cutoff", Value: p.KmerCutoff, Reason: "must be positive"}
	case p.HashBits < 4 || p.HashBits > 32:
		return &ParamError{Field: "hash bits", Value: p.HashBits, Reason: "must be in [4, 32]"}
	}
	return nil
}

// NumBuckets returns the number of hash buckets.
func (p Params) NumBuckets() int { return 1 << uint(p.HashBits) }

// Lead is the distance from the first base of a window to its CpG.
func (p Params) Lead() int { return p.ReadLen - 2 }

// SeedThreshold returns the number of distinct offsets that must reference
// a meta-CpG for a read of length readLen: readLen-k+1-k*M.
func (p Params) SeedThreshold(readLen int) int {
	return readLen - p.KmerLen + 1 - p.KmerLen*p.Mismatches
}
