package blas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samcharles93/blockmm/pkg/matrix"
)

func TestTransposeScenario(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultConfig())
	a, _ := matrix.FromRows([][]int{{1, 2, 3}, {4, 5, 6}})
	want, _ := matrix.FromRows([][]int{{1, 4}, {2, 5}, {3, 6}})
	for _, kernel := range []Kernel{XL, SM} {
		got, err := Transpose[int](e, a, kernel)
		if err != nil {
			t.Fatalf("%s: %v", kernel, err)
		}
		assertEqual[int](t, want, got)
	}
}

func TestXLTransposeBoundaries(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, tinyConfig)
	cfg := tinyConfig
	sizes := []int{1}
	for _, b := range []int{cfg.MR, cfg.MC, cfg.KC} {
		sizes = append(sizes, b-1, b, b+1)
	}
	sizes = append(sizes, 3*cfg.MC+2, 4*cfg.KC+1)

	for _, m := range sizes {
		for _, n := range sizes {
			t.Run(fmt.Sprintf("%dx%d", m, n), func(t *testing.T) {
				a := randInts(t, m, n, uint64(m*100+n))
				got, err := Transpose[int64](e, a, XL)
				if err != nil {
					t.Fatalf("Transpose: %v", err)
				}
				assertEqual[int64](t, naiveTranspose[int64](a), got)
			})
		}
	}
}

func TestTransposeInvolution(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, tinyConfig)
	a := randFloats(t, 29, 17, 5)
	for _, kernel := range []Kernel{XL, SM} {
		once, err := Transpose[float64](e, a, kernel)
		if err != nil {
			t.Fatalf("%s: %v", kernel, err)
		}
		twice, err := Transpose[float64](e, once, kernel)
		if err != nil {
			t.Fatalf("%s: %v", kernel, err)
		}
		assertEqual[float64](t, a, twice)
	}
}

func TestTransposeDefaultConfigLarge(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, DefaultConfig())
	a := randInts(t, 300, 520, 9)
	got, err := Transpose[int64](e, a, XL)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	assertEqual[int64](t, naiveTranspose[int64](a), got)
}

func TestMatrixTransposeOutputShape(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, tinyConfig)
	a := matrix.MustNew[int](2, 3)
	for _, kernel := range []Kernel{XL, SM} {
		if err := MatrixTranspose[int](e, a, matrix.MustNew[int](2, 3), kernel); !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("%s: expected dimension mismatch, got %v", kernel, err)
		}
	}
	if err := MatrixTranspose[int](nil, a, matrix.MustNew[int](3, 2), XL); !errors.Is(err, ErrNoPool) {
		t.Fatalf("expected ErrNoPool, got %v", err)
	}
}

func BenchmarkTranspose(b *testing.B) {
	e := Default()
	for _, n := range []int{256, 1024} {
		a := matrix.MustNew[float64](n, n)
		for _, kernel := range []Kernel{SM, XL} {
			b.Run(fmt.Sprintf("%s/%d", kernel, n), func(b *testing.B) {
				for b.Loop() {
					if _, err := Transpose[float64](e, a, kernel); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
