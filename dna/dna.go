// Package dna provides the 2-bit nucleotide code used throughout metal.
//
// Bases are encoded A=00, C=01, G=10, T=11 so that the complement of a code
// is its bitwise negation (x ^ 3). Any symbol other than ACGT (including N)
// is encoded as A; IsBase tells them apart. K-mers of up to 32 bases are
// packed most significant base first into the low 2k bits of a uint64.
//
// The reduced alphabet collapses C onto T, which makes a read and its
// bisulfite-converted copy hash identically.
package dna

import (
	"math/bits"
)

// Nucleotide codes.
const (
	A uint64 = 0
	C uint64 = 1
	G uint64 = 2
	T uint64 = 3
)

// MaxK is the longest k-mer that fits in a uint64.
const MaxK = 32

const lowBits = 0x5555555555555555

var (
	codeTable [256]uint8
	baseTable [256]bool
	compTable [256]byte
	symbols   = [4]byte{'A', 'C', 'G', 'T'}
)

func init() {
	for i := range compTable {
		compTable[i] = 'N'
	}
	for _, p := range []struct {
		b    byte
		code uint8
		comp byte
	}{
		{'A', 0, 'T'}, {'C', 1, 'G'}, {'G', 2, 'C'}, {'T', 3, 'A'},
	} {
		codeTable[p.b] = p.code
		codeTable[p.b+'a'-'A'] = p.code
		baseTable[p.b] = true
		baseTable[p.b+'a'-'A'] = true
		compTable[p.b] = p.comp
		compTable[p.b+'a'-'A'] = p.comp
	}
}

// Code returns the 2-bit code of an ASCII base. Unknown symbols map to A.
func Code(b byte) uint64 {
	return uint64(codeTable[b])
}

// IsBase reports whether b is one of ACGT, in either case.
func IsBase(b byte) bool {
	return baseTable[b]
}

// CompCode returns the 2-bit code of the complement of an ASCII base.
// Unknown symbols map to T, the complement of A.
func CompCode(b byte) uint64 {
	return uint64(codeTable[b]) ^ 3
}

// Symbol returns the uppercase ASCII base of a 2-bit code.
func Symbol(code uint64) byte {
	return symbols[code&3]
}

// Complement returns the complementary ASCII base; unknown symbols become N.
func Complement(b byte) byte {
	return compTable[b]
}

// ReverseComplement returns a new slice holding the reverse complement of seq.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = compTable[b]
	}
	return out
}

// Bisulfite returns a copy of seq with every C replaced by T, as produced
// by complete bisulfite conversion of an unmethylated strand.
func Bisulfite(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		switch b {
		case 'C':
			b = 'T'
		case 'c':
			b = 't'
		}
		out[i] = b
	}
	return out
}

// Encode packs seq (at most MaxK bases) into a 2-bit k-mer.
func Encode(seq []byte) uint64 {
	var x uint64
	for _, b := range seq {
		x = x<<2 | Code(b)
	}
	return x
}

// Decode unpacks a k-mer of length k into uppercase ASCII.
func Decode(x uint64, k int) []byte {
	out := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		out[i] = symbols[x&3]
		x >>= 2
	}
	return out
}

// KmerMask returns a mask covering the low 2k bits.
func KmerMask(k int) uint64 {
	if k >= MaxK {
		return ^uint64(0)
	}
	return (uint64(1) << (2 * uint(k))) - 1
}

// Reduce maps every C of a packed k-mer to T. Other bases are unchanged.
func Reduce(x uint64) uint64 {
	return x | (x&lowBits)<<1
}

// ReverseComplementBits returns the reverse complement of a packed k-mer.
func ReverseComplementBits(x uint64, k int) uint64 {
	x = ^x & KmerMask(k)
	r := bits.Reverse64(x)
	r = (r>>1)&lowBits | (r&lowBits)<<1
	return r >> (64 - 2*uint(k))
}

// CompareMask returns the mask under which a read k-mer is compared with
// the reference k-mer ref. span selects the base positions that exist in
// the reference (see genome.Chromosome.Kmer). At every reference C only the
// low bit is compared, so both C and T in the read match.
func CompareMask(ref, span uint64) uint64 {
	cs := ref &^ (ref >> 1) & lowBits
	return span &^ (cs << 1)
}

// Matches reports whether read equals ref under the bisulfite substitution
// model restricted to span.
func Matches(ref, read, span uint64) bool {
	return ref^(read&CompareMask(ref, span)) == 0
}
