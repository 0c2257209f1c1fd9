// Package blas implements dense matrix multiplication and transpose over
// pkg/matrix buffers.
//
// Two kernels are available. SM is a naive loop nest that runs on the
// calling goroutine and suits small operands. XL is a cache-blocked kernel:
// it packs MC x KC blocks of A and KC x NC blocks of B into contiguous
// panels and hands each block product to the Engine's worker pool, with a
// barrier after every KC step. Both produce the same result up to
// floating-point reassociation.
//
//	eng, err := blas.NewEngine(threadpool.New(0))
//	if err != nil {
//	    return err
//	}
//	c, err := blas.Multiply[float64](eng, a, b, blas.XL)
package blas

import (
	"fmt"
	"strings"

	"github.com/samcharles93/blockmm/pkg/matrix"
)

// Kernel selects the implementation used by Matmul and MatrixTranspose.
type Kernel int

const (
	XL Kernel = iota
	SM
)

func (k Kernel) String() string {
	switch k {
	case XL:
		return "xl"
	case SM:
		return "sm"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// Valid reports whether k names an implemented kernel.
func (k Kernel) Valid() bool {
	return k == XL || k == SM
}

// ParseKernel maps "xl" or "sm" (any case) to its Kernel.
func ParseKernel(s string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xl":
		return XL, nil
	case "sm":
		return SM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKernel, s)
	}
}

func (k Kernel) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKernel, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kernel) UnmarshalText(b []byte) error {
	v, err := ParseKernel(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Matmul accumulates A*B into C: C += A*B. A is m x k, B is k x n and C must
// be m x n. Pass a zeroed C for a plain product. e may be nil for SM.
//
// Shapes and the kernel are checked before any work is queued. If an XL
// task panics the call returns the pool's *threadpool.TaskError and the
// contents of C are unspecified.
func Matmul[T matrix.Number](e *Engine, a, b, c matrix.Dense[T], kernel Kernel) error {
	if !kernel.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKernel, kernel)
	}
	if a.Cols() != b.Rows() {
		return shapeErr("matmul rhs", a.Cols(), b.Cols(), b.Rows(), b.Cols())
	}
	if c.Rows() != a.Rows() || c.Cols() != b.Cols() {
		return shapeErr("matmul output", a.Rows(), b.Cols(), c.Rows(), c.Cols())
	}

	switch kernel {
	case XL:
		if e == nil {
			return ErrNoPool
		}
		return xlGemm(e, a, b, c)
	case SM:
		smGemm(a, b, c)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKernel, kernel)
	}
}

// MatrixTranspose writes the transpose of A into C. A is m x n and C must be
// n x m. e may be nil for SM.
func MatrixTranspose[T matrix.Number](e *Engine, a, c matrix.Dense[T], kernel Kernel) error {
	if !kernel.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedKernel, kernel)
	}
	if c.Rows() != a.Cols() || c.Cols() != a.Rows() {
		return shapeErr("transpose output", a.Cols(), a.Rows(), c.Rows(), c.Cols())
	}

	switch kernel {
	case XL:
		if e == nil {
			return ErrNoPool
		}
		return xlTranspose(e, a, c)
	case SM:
		smTranspose(a, c)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKernel, kernel)
	}
}

// Multiply returns A*B in a new matrix. On any error it returns nil.
func Multiply[T matrix.Number](e *Engine, a, b matrix.Dense[T], kernel Kernel) (*matrix.Dynamic[T], error) {
	c, err := matrix.New[T](a.Rows(), b.Cols())
	if err != nil {
		return nil, err
	}
	if err := Matmul(e, a, b, c, kernel); err != nil {
		return nil, err
	}
	return c, nil
}

// Transpose returns the transpose of A in a new matrix. On any error it
// returns nil.
func Transpose[T matrix.Number](e *Engine, a matrix.Dense[T], kernel Kernel) (*matrix.Dynamic[T], error) {
	c, err := matrix.New[T](a.Cols(), a.Rows())
	if err != nil {
		return nil, err
	}
	if err := MatrixTranspose(e, a, c, kernel); err != nil {
		return nil, err
	}
	return c, nil
}
