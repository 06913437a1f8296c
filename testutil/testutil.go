package testutil

import (
	"bytes"
	"math/rand"
	"sync"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random 64-bit value.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Sequence returns n uniformly random bases over ACGT.
func (r *RNG) Sequence(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := make([]byte, n)
	for i := range seq {
		seq[i] = "ACGT"[r.rand.Intn(4)]
	}
	return seq
}

// SequenceWithoutCpG returns n random bases containing no CG dinucleotide.
func (r *RNG) SequenceWithoutCpG(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := make([]byte, n)
	for i := range seq {
		b := "ACGT"[r.rand.Intn(4)]
		for i > 0 && seq[i-1] == 'C' && b == 'G' {
			b = "ACGT"[r.rand.Intn(4)]
		}
		seq[i] = b
	}
	return seq
}

// Mutate returns a copy of seq with the base at pos set to to.
func Mutate(seq []byte, pos int, to byte) []byte {
	out := bytes.Clone(seq)
	out[pos] = to
	return out
}

// CpGPositions returns the positions of the C of every CG in seq.
func CpGPositions(seq []byte) []int {
	var pos []int
	for i := 0; i+1 < len(seq); i++ {
		if seq[i] == 'C' && seq[i+1] == 'G' {
			pos = append(pos, i)
		}
	}
	return pos
}

// Convert simulates bisulfite treatment of one strand: every C becomes T,
// except Cs of CpGs when methylated is set.
func Convert(seq []byte, methylated bool) []byte {
	out := bytes.Clone(seq)
	for i, b := range seq {
		if b != 'C' {
			continue
		}
		if methylated && i+1 < len(seq) && seq[i+1] == 'G' {
			continue
		}
		out[i] = 'T'
	}
	return out
}

// ReverseComplement returns the reverse complement of an ACGT sequence.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		var c byte
		switch b {
		case 'A':
			c = 'T'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		case 'T':
			c = 'A'
		default:
			c = 'N'
		}
		out[len(seq)-1-i] = c
	}
	return out
}
