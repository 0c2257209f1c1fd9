package blas

import "github.com/samcharles93/blockmm/pkg/matrix"

// smGemm accumulates A*B into C with the plain k-m-n loop nest. It runs on
// the calling goroutine and needs no scratch memory.
func smGemm[T matrix.Number](a, b, c matrix.Dense[T]) {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	aData, bData, cData := a.Data(), b.Data(), c.Data()
	for l := range k {
		bRow := bData[l*n : l*n+n]
		for i := range m {
			av := aData[i*k+l]
			cRow := cData[i*n : i*n+n]
			for j, bv := range bRow {
				cRow[j] += av * bv
			}
		}
	}
}

// smTranspose writes C(j, i) = A(i, j).
func smTranspose[T matrix.Number](a, c matrix.Dense[T]) {
	m, n := a.Rows(), a.Cols()
	aData, cData := a.Data(), c.Data()
	for i := range m {
		for j, v := range aData[i*n : i*n+n] {
			cData[j*m+i] = v
		}
	}
}
