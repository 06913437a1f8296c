// Package nthash implements an ntHash style rolling hash over the reduced
// (C→T) nucleotide alphabet.
//
// Forward hash of a k-mer w:  Hf(w) = XOR_i rol(s(w_i), k-1-i)
// Reverse hash of a k-mer w:  Hr(w) = XOR_i rol(s(r(comp(w_i))), i)
//
// where s is the per-base seed and r maps C to T. Hr(w) equals Hf of the
// reverse complement of w, so a reverse-strand k-mer hashes to the bucket
// of its reverse complement read in forward orientation.
//
// All functions take 2-bit base codes (see package dna).
package nthash

import "math/bits"

const (
	seedA = 0x3c8bfbb395c60474
	seedG = 0x20323ed082572324
	seedT = 0x295549f54be24456
)

// fwd[c] is the seed of base code c in the reduced alphabet.
var fwd = [4]uint64{seedA, seedT, seedG, seedT}

// rev[c] is the seed of the reduced complement of base code c.
var rev = [4]uint64{fwd[3], fwd[2], fwd[1], fwd[0]}

// Forward computes Hf for the packed k-mer x.
func Forward(x uint64, k int) uint64 {
	var h uint64
	for i := 0; i < k; i++ {
		c := x >> (2 * uint(k-1-i)) & 3
		h ^= bits.RotateLeft64(fwd[c], k-1-i)
	}
	return h
}

// Reverse computes Hr for the packed k-mer x.
func Reverse(x uint64, k int) uint64 {
	var h uint64
	for i := 0; i < k; i++ {
		c := x >> (2 * uint(k-1-i)) & 3
		h ^= bits.RotateLeft64(rev[c], i)
	}
	return h
}

// RollForward advances Hf by one base: out leaves on the left, in enters on
// the right.
func RollForward(h uint64, k int, out, in uint64) uint64 {
	return bits.RotateLeft64(h, 1) ^ bits.RotateLeft64(fwd[out&3], k) ^ fwd[in&3]
}

// RollReverse advances Hr by one base in the same direction as RollForward.
func RollReverse(h uint64, k int, out, in uint64) uint64 {
	return bits.RotateLeft64(h^rev[out&3], -1) ^ bits.RotateLeft64(rev[in&3], k-1)
}

// Roller walks a sequence of base codes and yields both hashes per window.
type Roller struct {
	k      int
	hf, hr uint64
}

// NewRoller starts a roller at the window x.
func NewRoller(x uint64, k int) Roller {
	return Roller{k: k, hf: Forward(x, k), hr: Reverse(x, k)}
}

// Next slides the window by one base.
func (r *Roller) Next(out, in uint64) {
	r.hf = RollForward(r.hf, r.k, out, in)
	r.hr = RollReverse(r.hr, r.k, out, in)
}

// Hashes returns the forward and reverse hash of the current window.
func (r *Roller) Hashes() (hf, hr uint64) { return r.hf, r.hr }
