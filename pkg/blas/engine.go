package blas

import (
	"sync"

	"github.com/samcharles93/blockmm/internal/logger"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

// Engine binds the xl kernels to a worker pool and a set of blocking
// parameters. An Engine is safe for concurrent use. Calls sharing one pool
// interleave their tasks, and each call's barrier also waits for tasks
// enqueued by the others. Each call submits through its own
// threadpool.Group, so a panicking task fails only the call that queued it.
type Engine struct {
	pool   *threadpool.Pool
	cfg    Config
	log    logger.Logger
	panels *panelAllocator
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConfig overrides the blocking parameters.
func WithConfig(cfg Config) EngineOption {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger used for driver records.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an Engine dispatching onto pool.
func NewEngine(pool *threadpool.Pool, opts ...EngineOption) (*Engine, error) {
	if pool == nil {
		return nil, ErrNoPool
	}
	e := &Engine{
		pool:   pool,
		cfg:    DefaultConfig(),
		log:    logger.Nop(),
		panels: newPanelAllocator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns an Engine over threadpool.Global() with the default
// blocking parameters.
func Default() *Engine {
	defaultOnce.Do(func() {
		e, err := NewEngine(threadpool.Global())
		if err != nil {
			panic(err)
		}
		defaultEngine = e
	})
	return defaultEngine
}

func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) Pool() *threadpool.Pool { return e.pool }
func (e *Engine) Logger() logger.Logger { return e.log }
