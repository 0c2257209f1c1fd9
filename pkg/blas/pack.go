package blas

import "github.com/samcharles93/blockmm/pkg/matrix"

// PackVertical copies a rows x cols block starting at src[srcOff] (row stride
// stride) into dst in column-major order: element (i, l) lands at
// dst[l*rows+i]. The micro-kernel walks the packed strip one column at a
// time, so every load within a column is contiguous.
//
// Callers pass rows <= MR and cols <= KC. dst must hold rows*cols elements.
func PackVertical[T matrix.Number](src []T, srcOff, stride int, dst []T, rows, cols int) {
	for l := range cols {
		col := dst[l*rows : l*rows+rows]
		off := srcOff + l
		for i := range col {
			col[i] = src[off+i*stride]
		}
	}
}

// PackHorizontal copies a rows x cols block starting at src[srcOff] (row
// stride stride) into dst unchanged in row-major order: element (l, j) lands
// at dst[l*cols+j].
//
// Callers pass rows <= KC and cols <= NR.
func PackHorizontal[T matrix.Number](src []T, srcOff, stride int, dst []T, rows, cols int) {
	for l := range rows {
		off := srcOff + l*stride
		copy(dst[l*cols:l*cols+cols], src[off:off+cols])
	}
}
