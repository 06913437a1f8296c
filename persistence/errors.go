package persistence

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is wrapped by every error caused by malformed input.
var ErrInvalidFormat = errors.New("invalid index format")

var (
	// ErrInvalidMagic is returned when the file does not start with Magic.
	ErrInvalidMagic = fmt.Errorf("%w: invalid magic number", ErrInvalidFormat)
	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", ErrInvalidFormat)
	// ErrTruncated is returned when the input ends early.
	ErrTruncated = fmt.Errorf("%w: truncated", ErrInvalidFormat)
)

// SectionError reports a section that is missing, out of order or
// malformed.
type SectionError struct {
	ID     uint32
	Reason string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d: %s", e.ID, e.Reason)
}

func (e *SectionError) Unwrap() error { return ErrInvalidFormat }
