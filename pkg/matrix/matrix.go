// Package matrix provides the dense row-major buffers consumed by the blas
// kernels.
//
// Every matrix exposes its contiguous backing slice through Data; element
// (i, j) lives at Data()[i*Cols()+j]. Kernels index Data directly inside
// bounds they have already validated. At and Set are the checked accessors
// for everything else.
package matrix

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch reports ragged nested input or shapes that do
	// not line up.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")
	// ErrOverflow reports a shape whose element count does not fit in an int.
	ErrOverflow = errors.New("matrix: size overflow")
	// ErrOutOfBounds reports an element access outside the matrix.
	ErrOutOfBounds = errors.New("matrix: index out of bounds")
)

// Number is the set of element types the kernels operate on.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Dense is a row-major matrix with linear addressing.
type Dense[T Number] interface {
	Rows() int
	Cols() int
	// Data returns the backing slice. Its length is always Rows()*Cols().
	Data() []T
	At(i, j int) (T, error)
	Set(i, j int, v T) error
}

// checkedSize returns rows*cols or ErrOverflow.
func checkedSize(rows, cols int) (int, error) {
	if rows < 0 || cols < 0 {
		return 0, fmt.Errorf("%w: negative dimension %dx%d", ErrOverflow, rows, cols)
	}
	if rows != 0 && cols > math.MaxInt/rows {
		return 0, fmt.Errorf("%w: %dx%d", ErrOverflow, rows, cols)
	}
	return rows * cols, nil
}

func offset(rows, cols, i, j int) (int, error) {
	if i < 0 || i >= rows || j < 0 || j >= cols {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, i, j, rows, cols)
	}
	return i*cols + j, nil
}

// Dynamic is a heap-backed matrix whose shape can change with Resize.
type Dynamic[T Number] struct {
	rows, cols int
	data       []T
}

// New returns a zero-filled rows x cols matrix.
func New[T Number](rows, cols int) (*Dynamic[T], error) {
	size, err := checkedSize(rows, cols)
	if err != nil {
		return nil, err
	}
	return &Dynamic[T]{rows: rows, cols: cols, data: make([]T, size)}, nil
}

// MustNew is New for shapes known to be valid; it panics on error.
func MustNew[T Number](rows, cols int) *Dynamic[T] {
	m, err := New[T](rows, cols)
	if err != nil {
		panic(err)
	}
	return m
}

// FromData wraps data as a rows x cols matrix without copying.
func FromData[T Number](rows, cols int, data []T) (*Dynamic[T], error) {
	size, err := checkedSize(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %d elements for %dx%d", ErrDimensionMismatch, len(data), rows, cols)
	}
	return &Dynamic[T]{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies nested rows into a new matrix. Every row must have the
// same length.
func FromRows[T Number](rows [][]T) (*Dynamic[T], error) {
	if len(rows) == 0 {
		return &Dynamic[T]{}, nil
	}
	cols := len(rows[0])
	m, err := New[T](len(rows), cols)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), cols)
		}
		copy(m.data[i*cols:], row)
	}
	return m, nil
}

// Identity returns the n x n identity matrix.
func Identity[T Number](n int) (*Dynamic[T], error) {
	m, err := New[T](n, n)
	if err != nil {
		return nil, err
	}
	for i := range n {
		m.data[i*n+i] = 1
	}
	return m, nil
}

func (m *Dynamic[T]) Rows() int { return m.rows }
func (m *Dynamic[T]) Cols() int { return m.cols }
func (m *Dynamic[T]) Data() []T { return m.data }

// At returns element (i, j).
func (m *Dynamic[T]) At(i, j int) (T, error) {
	off, err := offset(m.rows, m.cols, i, j)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.data[off], nil
}

// Set stores v at (i, j).
func (m *Dynamic[T]) Set(i, j int, v T) error {
	off, err := offset(m.rows, m.cols, i, j)
	if err != nil {
		return err
	}
	m.data[off] = v
	return nil
}

// Resize changes the shape to rows x cols and zero-fills the contents. The
// backing array is reused when it is large enough.
func (m *Dynamic[T]) Resize(rows, cols int) error {
	size, err := checkedSize(rows, cols)
	if err != nil {
		return err
	}
	if cap(m.data) >= size {
		m.data = m.data[:size]
		clear(m.data)
	} else {
		m.data = make([]T, size)
	}
	m.rows, m.cols = rows, cols
	return nil
}

// Zero sets every element to zero.
func (m *Dynamic[T]) Zero() {
	clear(m.data)
}

// Clone returns a deep copy.
func (m *Dynamic[T]) Clone() *Dynamic[T] {
	return &Dynamic[T]{rows: m.rows, cols: m.cols, data: append([]T(nil), m.data...)}
}

// ToRows copies the matrix into nested rows.
func (m *Dynamic[T]) ToRows() [][]T {
	return ToRows[T](m)
}

func (m *Dynamic[T]) String() string {
	return Format[T](m)
}

// Fixed is a matrix whose shape and storage are set once at construction.
// It never reallocates, so slices obtained from Data stay valid for the
// lifetime of the value.
//
// Go generics cannot parameterise an array length, so capacity is not part
// of the type. NewFixed allocates exactly rows*cols elements; FixedOn places
// the matrix on a caller-owned buffer, which may be a stack array or a slab
// shared by several matrices.
type Fixed[T Number] struct {
	rows, cols int
	data       []T
}

// NewFixed returns a zero-filled rows x cols matrix with fixed storage.
func NewFixed[T Number](rows, cols int) (*Fixed[T], error) {
	size, err := checkedSize(rows, cols)
	if err != nil {
		return nil, err
	}
	return &Fixed[T]{rows: rows, cols: cols, data: make([]T, size)}, nil
}

// FixedOn returns a zero-filled rows x cols matrix stored in the first
// rows*cols elements of buf. buf is used in place and must not be resized
// by the caller while the matrix is live.
func FixedOn[T Number](rows, cols int, buf []T) (*Fixed[T], error) {
	size, err := checkedSize(rows, cols)
	if err != nil {
		return nil, err
	}
	if len(buf) < size {
		return nil, fmt.Errorf("%w: buffer holds %d elements, %dx%d needs %d", ErrDimensionMismatch, len(buf), rows, cols, size)
	}
	data := buf[:size:size]
	clear(data)
	return &Fixed[T]{rows: rows, cols: cols, data: data}, nil
}

// FixedFromRows copies nested rows into a fixed matrix whose shape must be
// exactly rows x cols.
func FixedFromRows[T Number](rows, cols int, src [][]T) (*Fixed[T], error) {
	if len(src) != rows {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrDimensionMismatch, len(src), rows)
	}
	m, err := NewFixed[T](rows, cols)
	if err != nil {
		return nil, err
	}
	for i, row := range src {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), cols)
		}
		copy(m.data[i*cols:], row)
	}
	return m, nil
}

func (m *Fixed[T]) Rows() int { return m.rows }
func (m *Fixed[T]) Cols() int { return m.cols }
func (m *Fixed[T]) Data() []T { return m.data }

func (m *Fixed[T]) At(i, j int) (T, error) {
	off, err := offset(m.rows, m.cols, i, j)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.data[off], nil
}

func (m *Fixed[T]) Set(i, j int, v T) error {
	off, err := offset(m.rows, m.cols, i, j)
	if err != nil {
		return err
	}
	m.data[off] = v
	return nil
}

func (m *Fixed[T]) String() string {
	return Format[T](m)
}
