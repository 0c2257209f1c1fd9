package blas

import (
	"reflect"
	"sync"

	"github.com/samcharles93/blockmm/pkg/matrix"
)

// Panel is a fixed-capacity scratch buffer holding a packed copy of one
// sub-block. Its length never changes after allocation.
type Panel[T matrix.Number] struct {
	buf []T
}

func (p *Panel[T]) Data() []T { return p.buf }
func (p *Panel[T]) Cap() int { return len(p.buf) }

type panelKey struct {
	elem reflect.Type
	size int
}

// panelAllocator recycles panels through one sync.Pool per element type and
// capacity. Panels are not cleared on reuse; packing overwrites every element
// the kernels read.
type panelAllocator struct {
	mu    sync.RWMutex
	pools map[panelKey]*sync.Pool
}

func newPanelAllocator() *panelAllocator {
	return &panelAllocator{pools: make(map[panelKey]*sync.Pool)}
}

func (a *panelAllocator) pool(key panelKey, alloc func() any) *sync.Pool {
	a.mu.RLock()
	p, ok := a.pools[key]
	a.mu.RUnlock()
	if ok {
		return p
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pools[key]; ok {
		return p
	}
	p = &sync.Pool{New: alloc}
	a.pools[key] = p
	return p
}

func getPanel[T matrix.Number](a *panelAllocator, size int) *Panel[T] {
	key := panelKey{elem: reflect.TypeFor[T](), size: size}
	p := a.pool(key, func() any {
		return &Panel[T]{buf: make([]T, size)}
	})
	return p.Get().(*Panel[T])
}

func putPanel[T matrix.Number](a *panelAllocator, panel *Panel[T]) {
	if panel == nil {
		return
	}
	key := panelKey{elem: reflect.TypeFor[T](), size: len(panel.buf)}
	a.mu.RLock()
	p, ok := a.pools[key]
	a.mu.RUnlock()
	if ok {
		p.Put(panel)
	}
}
