package blas

import (
	"math"
	"sync"

	"github.com/samcharles93/blockmm/pkg/matrix"
)

// DefaultSmallThreshold is the largest m*k*n volume routed to SM by default.
const DefaultSmallThreshold = 64 * 64 * 64

// Shape is the m x k by k x n problem size a Selector keys on. A transpose
// of an m x n matrix is keyed as Shape{M: m, K: 1, N: n}.
type Shape struct {
	M int
	K int
	N int
}

// Volume returns M*K*N, saturating at math.MaxInt.
func (s Shape) Volume() int {
	v := 1
	for _, d := range []int{s.M, s.K, s.N} {
		if d <= 0 {
			return 0
		}
		if v > math.MaxInt/d {
			return math.MaxInt
		}
		v *= d
	}
	return v
}

// Choice is a cached selection.
type Choice struct {
	Kernel Kernel
	// Score is the measurement that won a Tune run; zero for heuristic picks.
	Score float64
	Tuned bool
}

// Selector picks a kernel per problem shape and remembers the answer.
type Selector struct {
	smallThreshold int

	mu    sync.RWMutex
	cache map[Shape]Choice
}

// NewSelector returns a Selector routing volumes up to smallThreshold to SM.
// A non-positive threshold uses DefaultSmallThreshold.
func NewSelector(smallThreshold int) *Selector {
	if smallThreshold <= 0 {
		smallThreshold = DefaultSmallThreshold
	}
	return &Selector{
		smallThreshold: smallThreshold,
		cache:          make(map[Shape]Choice),
	}
}

func (s *Selector) SmallThreshold() int { return s.smallThreshold }

func (s *Selector) lookup(shape Shape) (Choice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[shape]
	return c, ok
}

func (s *Selector) store(shape Shape, c Choice) {
	s.mu.Lock()
	s.cache[shape] = c
	s.mu.Unlock()
}

// Select returns the cached kernel for shape, falling back to the volume
// heuristic on a miss.
func (s *Selector) Select(shape Shape) Kernel {
	if c, ok := s.lookup(shape); ok {
		return c.Kernel
	}
	k := XL
	if shape.Volume() <= s.smallThreshold {
		k = SM
	}
	s.store(shape, Choice{Kernel: k})
	return k
}

// Tune measures every kernel with run (higher score is better) and caches
// the winner. A shape that has already been tuned is not measured again.
func (s *Selector) Tune(shape Shape, run func(Kernel) float64) Kernel {
	if c, ok := s.lookup(shape); ok && c.Tuned {
		return c.Kernel
	}

	best := Choice{Kernel: SM, Score: run(SM), Tuned: true}
	if score := run(XL); score > best.Score {
		best.Kernel = XL
		best.Score = score
	}

	s.store(shape, best)
	return best.Kernel
}

// Cached returns the stored choice for shape, if any.
func (s *Selector) Cached(shape Shape) (Choice, bool) {
	return s.lookup(shape)
}

// Reset drops every cached choice.
func (s *Selector) Reset() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// MultiplyAuto multiplies with the kernel s selects for the operands' shape
// and reports which kernel ran.
func MultiplyAuto[T matrix.Number](e *Engine, s *Selector, a, b matrix.Dense[T]) (*matrix.Dynamic[T], Kernel, error) {
	k := s.Select(Shape{M: a.Rows(), K: a.Cols(), N: b.Cols()})
	c, err := Multiply(e, a, b, k)
	return c, k, err
}

// TransposeAuto transposes with the kernel s selects for A's shape.
func TransposeAuto[T matrix.Number](e *Engine, s *Selector, a matrix.Dense[T]) (*matrix.Dynamic[T], Kernel, error) {
	k := s.Select(Shape{M: a.Rows(), K: 1, N: a.Cols()})
	c, err := Transpose(e, a, k)
	return c, k, err
}
