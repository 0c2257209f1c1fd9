package blas

import (
	"errors"
	"fmt"

	"github.com/samcharles93/blockmm/pkg/matrix"
)

var (
	// ErrUnsupportedKernel is returned for a kernel value outside the
	// known set.
	ErrUnsupportedKernel = errors.New("blas: kernel not implemented")
	// ErrDimensionMismatch is returned when operand shapes do not line up.
	// It matches matrix.ErrDimensionMismatch under errors.Is.
	ErrDimensionMismatch = fmt.Errorf("blas: %w", matrix.ErrDimensionMismatch)
	// ErrInvalidConfig is returned for unusable blocking parameters.
	ErrInvalidConfig = errors.New("blas: invalid config")
	// ErrNoPool is returned when an Engine is built without a worker pool.
	ErrNoPool = errors.New("blas: nil thread pool")
)

// ShapeError describes a dimension mismatch between operands.
type ShapeError struct {
	Op   string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("blas: %s: want %s, got %s", e.Op, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error {
	return ErrDimensionMismatch
}

func shapeErr(op string, wr, wc, gr, gc int) error {
	return &ShapeError{
		Op:   op,
		Want: fmt.Sprintf("%dx%d", wr, wc),
		Got:  fmt.Sprintf("%dx%d", gr, gc),
	}
}
