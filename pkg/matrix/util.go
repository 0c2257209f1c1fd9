package matrix

import (
	"fmt"
	"math"
	"strings"
)

// ToRows copies m into nested rows.
func ToRows[T Number](m Dense[T]) [][]T {
	rows, cols := m.Rows(), m.Cols()
	data := m.Data()
	out := make([][]T, rows)
	for i := range rows {
		out[i] = append([]T(nil), data[i*cols:(i+1)*cols]...)
	}
	return out
}

// SameShape reports whether a and b have identical dimensions.
func SameShape[T Number](a, b Dense[T]) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols()
}

// Equal reports whether a and b have the same shape and identical elements.
func Equal[T Number](a, b Dense[T]) bool {
	if !SameShape(a, b) {
		return false
	}
	ad, bd := a.Data(), b.Data()
	for i := range ad {
		if ad[i] != bd[i] {
			return false
		}
	}
	return true
}

// AllClose reports whether a and b have the same shape and every pair of
// elements satisfies |x-y| <= atol + rtol*max(|x|,|y|).
func AllClose[T Number](a, b Dense[T], rtol, atol float64) bool {
	if !SameShape(a, b) {
		return false
	}
	ad, bd := a.Data(), b.Data()
	for i := range ad {
		x, y := float64(ad[i]), float64(bd[i])
		if math.Abs(x-y) > atol+rtol*max(math.Abs(x), math.Abs(y)) {
			return false
		}
	}
	return true
}

// Format renders m one row per line with space-separated elements.
func Format[T Number](m Dense[T]) string {
	var sb strings.Builder
	rows, cols := m.Rows(), m.Cols()
	data := m.Data()
	for i := range rows {
		for j := range cols {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprint(&sb, data[i*cols+j])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
