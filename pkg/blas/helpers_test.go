package blas

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/samcharles93/blockmm/pkg/matrix"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

// tinyConfig makes every blocking boundary reachable with small operands.
var tinyConfig = Config{MR: 3, NR: 2, MC: 7, KC: 5, NC: 4}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	pool := threadpool.New(4)
	t.Cleanup(pool.Stop)
	e, err := NewEngine(pool, WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func randInts(t *testing.T, rows, cols int, seed uint64) *matrix.Dynamic[int64] {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	m := matrix.MustNew[int64](rows, cols)
	for i := range m.Data() {
		m.Data()[i] = r.Int64N(19) - 9
	}
	return m
}

func randFloats(t *testing.T, rows, cols int, seed uint64) *matrix.Dynamic[float64] {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	m := matrix.MustNew[float64](rows, cols)
	for i := range m.Data() {
		m.Data()[i] = r.Float64()*2 - 1
	}
	return m
}

func naiveMultiply[T matrix.Number](a, b matrix.Dense[T]) *matrix.Dynamic[T] {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	c := matrix.MustNew[T](m, n)
	for i := range m {
		for j := range n {
			var sum T
			for l := range k {
				sum += a.Data()[i*k+l] * b.Data()[l*n+j]
			}
			c.Data()[i*n+j] = sum
		}
	}
	return c
}

func naiveTranspose[T matrix.Number](a matrix.Dense[T]) *matrix.Dynamic[T] {
	c := matrix.MustNew[T](a.Cols(), a.Rows())
	for i := range a.Rows() {
		for j := range a.Cols() {
			c.Data()[j*a.Rows()+i] = a.Data()[i*a.Cols()+j]
		}
	}
	return c
}

func assertEqual[T matrix.Number](t *testing.T, want, got matrix.Dense[T]) {
	t.Helper()
	if !matrix.Equal(want, got) {
		t.Fatalf("matrices differ\nwant:\n%sgot:\n%s", matrix.Format(want), matrix.Format(got))
	}
}

func assertClose(t *testing.T, want, got matrix.Dense[float64], rtol float64) {
	t.Helper()
	if !matrix.SameShape(want, got) {
		t.Fatalf("shape %dx%d, want %dx%d", got.Rows(), got.Cols(), want.Rows(), want.Cols())
	}
	for i, w := range want.Data() {
		g := got.Data()[i]
		if math.Abs(w-g) > rtol*math.Max(1, math.Abs(w)) {
			t.Fatalf("element %d = %g, want %g", i, g, w)
		}
	}
}
