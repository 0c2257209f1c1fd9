package blas

import (
	"github.com/samcharles93/blockmm/pkg/matrix"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

// gemmTask multiplies one packed (mc x kc) A block by one packed (kc x nc)
// B block into its own (mc x nc) rectangle of C.
//
// packA is borrowed: it is the driver's vertical panel and stays valid only
// until the driver's next Sync. packB is owned and goes back to the
// allocator when the task finishes.
type gemmTask[T matrix.Number] struct {
	cfg        Config
	mc, nc, kc int
	packA      []T
	packB      *Panel[T]
	c          []T
	cOff       int
	cStride    int
	panels     *panelAllocator
}

func (t *gemmTask[T]) run() {
	defer putPanel(t.panels, t.packB)
	macroKernelGemm(t.cfg, t.mc, t.nc, t.kc, t.packA, t.packB.buf, t.c, t.cOff, t.cStride)
}

// xlGemm accumulates A*B into C using the three-level blocked loop nest.
// Shapes have already been validated.
func xlGemm[T matrix.Number](e *Engine, a, b, c matrix.Dense[T]) error {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	if m == 0 || k == 0 || n == 0 {
		return nil
	}

	cfg := e.cfg
	aData, bData, cData := a.Data(), b.Data(), c.Data()
	hSize := cfg.horizontalPanelFor(k, n)

	g := e.pool.Group()
	packA := getPanel[T](e.panels, cfg.verticalPanelFor(m, k))
	tasks := 0
	for iMC := 0; iMC < m; iMC += cfg.MC {
		mc := min(m-iMC, cfg.MC)
		for iKC := 0; iKC < k; iKC += cfg.KC {
			kc := min(k-iKC, cfg.KC)
			for iMR := 0; iMR < mc; iMR += cfg.MR {
				PackVertical(aData, (iMC+iMR)*k+iKC, k, packA.buf[iMR*kc:], min(mc-iMR, cfg.MR), kc)
			}

			for iNC := 0; iNC < n; iNC += cfg.NC {
				nc := min(n-iNC, cfg.NC)
				packB := getPanel[T](e.panels, hSize)
				for iNR := 0; iNR < nc; iNR += cfg.NR {
					PackHorizontal(bData, iKC*n+iNC+iNR, n, packB.buf[iNR*kc:], kc, min(nc-iNR, cfg.NR))
				}

				task := &gemmTask[T]{
					cfg:     cfg,
					mc:      mc,
					nc:      nc,
					kc:      kc,
					packA:   packA.buf,
					packB:   packB,
					c:       cData,
					cOff:    iMC*n + iNC,
					cStride: n,
					panels:  e.panels,
				}
				if err := g.Enqueue(task.run); err != nil {
					// Tasks already queued may still read packA; leave it to
					// the collector.
					putPanel(e.panels, packB)
					return err
				}
				tasks++
			}

			// packA is rewritten on the next iteration.
			if err := e.barrier(g); err != nil {
				return err
			}
		}
	}
	putPanel(e.panels, packA)

	e.log.Debug("xl gemm", "m", m, "k", k, "n", n, "tasks", tasks)
	return nil
}

// macroKernelGemm walks an (mc x nc) block in MR x NR register tiles. packA
// holds MR-row strips of kc columns each, packB NR-column strips of kc rows.
func macroKernelGemm[T matrix.Number](cfg Config, mc, nc, kc int, packA, packB, c []T, cOff, cStride int) {
	for i := 0; i < mc; i += cfg.MR {
		m := min(mc-i, cfg.MR)
		for j := 0; j < nc; j += cfg.NR {
			microKernelGemm(kc, m, min(nc-j, cfg.NR), packA[i*kc:], packB[j*kc:], c, cOff+i*cStride+j, cStride)
		}
	}
}

// microKernelGemm accumulates the product of a column-major (m x k) strip and
// a row-major (k x n) strip into C.
func microKernelGemm[T matrix.Number](k, m, n int, a, b, c []T, cOff, cStride int) {
	for l := range k {
		aCol := a[l*m : l*m+m]
		bRow := b[l*n : l*n+n]
		for j, bv := range bRow {
			off := cOff + j
			for i, av := range aCol {
				c[off+i*cStride] += av * bv
			}
		}
	}
}

// barrier waits for every queued task and reports panics from this call's
// tasks only. A pool stopped underneath the call fails it, since tasks may
// still be running against borrowed panels.
func (e *Engine) barrier(g *threadpool.Group) error {
	if err := g.Sync(); err != nil {
		return err
	}
	if e.pool.Stopped() {
		return threadpool.ErrStopped
	}
	return nil
}
