package blas

import "github.com/samcharles93/blockmm/pkg/matrix"

// transposeTask scatters one packed (mc x kc) block of A into C. It owns
// its panel.
type transposeTask[T matrix.Number] struct {
	cfg     Config
	mc, kc  int
	pack    *Panel[T]
	c       []T
	cOff    int
	cStride int
	panels  *panelAllocator
}

func (t *transposeTask[T]) run() {
	defer putPanel(t.panels, t.pack)
	macroKernelTranspose(t.cfg, t.mc, t.kc, t.pack.buf, t.c, t.cOff, t.cStride)
}

// xlTranspose writes the transpose of the m x n matrix A into the n x m
// matrix C block by block.
func xlTranspose[T matrix.Number](e *Engine, a, c matrix.Dense[T]) error {
	m, n := a.Rows(), a.Cols()
	if m == 0 || n == 0 {
		return nil
	}

	cfg := e.cfg
	aData, cData := a.Data(), c.Data()
	vSize := cfg.verticalPanelFor(m, n)

	g := e.pool.Group()
	tasks := 0
	for iMC := 0; iMC < m; iMC += cfg.MC {
		mc := min(m-iMC, cfg.MC)
		for iKC := 0; iKC < n; iKC += cfg.KC {
			kc := min(n-iKC, cfg.KC)
			pack := getPanel[T](e.panels, vSize)
			for iMR := 0; iMR < mc; iMR += cfg.MR {
				PackVertical(aData, (iMC+iMR)*n+iKC, n, pack.buf[iMR*kc:], min(mc-iMR, cfg.MR), kc)
			}

			task := &transposeTask[T]{
				cfg:     cfg,
				mc:      mc,
				kc:      kc,
				pack:    pack,
				c:       cData,
				cOff:    iKC*m + iMC,
				cStride: m,
				panels:  e.panels,
			}
			if err := g.Enqueue(task.run); err != nil {
				putPanel(e.panels, pack)
				return err
			}
			tasks++
		}
		if err := e.barrier(g); err != nil {
			return err
		}
	}

	e.log.Debug("xl transpose", "m", m, "n", n, "tasks", tasks)
	return nil
}

// macroKernelTranspose handles one MR-row strip of the packed block at a
// time. Strip i covers output columns cOff+i onward.
func macroKernelTranspose[T matrix.Number](cfg Config, mc, kc int, pack, c []T, cOff, cStride int) {
	for i := 0; i < mc; i += cfg.MR {
		microKernelTranspose(kc, min(mc-i, cfg.MR), pack[i*kc:], c, cOff+i, cStride)
	}
}

// microKernelTranspose copies column l of a column-major (m x k) strip into
// row l of C.
func microKernelTranspose[T matrix.Number](k, m int, a, c []T, cOff, cStride int) {
	for l := range k {
		off := cOff + l*cStride
		copy(c[off:off+m], a[l*m:l*m+m])
	}
}
