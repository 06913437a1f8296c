package persistence

import (
	"fmt"
	"hash/crc32"
)

// CRC32 (IEEE) only detects accidental corruption; it is not a MAC.
var crcTable = crc32.MakeTable(crc32.IEEE)

// Checksum returns the CRC32 of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// ChecksumMismatchError is returned when a section fails verification.
type ChecksumMismatchError struct {
	Section  uint32
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("section %d: checksum mismatch: expected 0x%08x, got 0x%08x", e.Section, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrInvalidFormat }
