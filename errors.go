package metal

import (
	"errors"
	"fmt"

	"github.com/hupe1980/metal/blobstore"
	"github.com/hupe1980/metal/index"
	"github.com/hupe1980/metal/persistence"
)

var (
	// ErrIndexNotLoaded is returned when an operation needs an index and
	// none was given.
	ErrIndexNotLoaded = errors.New("metal: index not loaded")

	// ErrNotFound is returned when a saved index does not exist.
	ErrNotFound = blobstore.ErrNotFound

	// ErrInvalidIndex is returned when a saved index is corrupt.
	ErrInvalidIndex = persistence.ErrInvalidFormat
)

// ErrInvalidParams indicates rejected index parameters.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrInvalidParams struct {
	Field string
	cause error
}

func (e *ErrInvalidParams) Error() string {
	return fmt.Sprintf("invalid parameter %s: %v", e.Field, e.cause)
}

func (e *ErrInvalidParams) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pe *index.ParamError
	if errors.As(err, &pe) {
		return &ErrInvalidParams{Field: pe.Field, cause: err}
	}
	return err
}
