package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCpG is returned when a CpG does not lie within its
	// chromosome or belongs to the wrong table.
	ErrInvalidCpG = errors.New("invalid CpG")

	// ErrInvalidParams is returned when Params fail validation.
	ErrInvalidParams = errors.New("invalid index parameters")

	// ErrTooManyChromosomes is returned when a genome has more chromosomes
	// than a CpG can address.
	ErrTooManyChromosomes = errors.New("too many chromosomes")
)

// CpGError describes the CpG that aborted a build.
//
// errors.Is(err, ErrInvalidCpG) holds for every CpGError.
type CpGError struct {
	Index    int
	CpG      CpG
	ChromLen int
	Reason   string
}

func (e *CpGError) Error() string {
	return fmt.Sprintf("invalid CpG %d at chrom %d pos %d (chromosome length %d): %s",
		e.Index, e.CpG.Chrom, e.CpG.Pos, e.ChromLen, e.Reason)
}

func (e *CpGError) Unwrap() error { return ErrInvalidCpG }

// ParamError describes an invalid parameter.
//
// errors.Is(err, ErrInvalidParams) holds for every ParamError.
type ParamError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParams }
