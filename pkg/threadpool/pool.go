// Package threadpool provides the fixed-size worker pool that the blocked
// kernels dispatch their macro-kernel work onto.
//
// A Pool owns a FIFO task queue and an in-flight counter guarded by one
// mutex. Idle workers and Sync callers wait on separate condition variables
// so that waking a worker can never be absorbed by a waiting Sync. Workers
// are started once by New and live until Stop. Sync is a full barrier: it
// returns once every task enqueued before the call has finished executing.
//
//	pool := threadpool.New(runtime.NumCPU())
//	defer pool.Stop()
//
//	for _, block := range blocks {
//	    pool.Enqueue(func() { compute(block) })
//	}
//	if err := pool.Sync(); err != nil {
//	    return err
//	}
package threadpool

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/samcharles93/blockmm/internal/logger"
)

// fallbackThreads is used when the hardware thread count is unknown.
const fallbackThreads = 4

// ErrStopped is returned by Enqueue once the pool has been stopped.
var ErrStopped = errors.New("threadpool: pool stopped")

// Task is a unit of work. Tasks carry everything they need in their closure;
// they have no identity beyond their queue position.
type Task func()

// Pool is a fixed-capacity worker pool.
type Pool struct {
	numThreads int
	log        logger.Logger

	mu        sync.Mutex
	work      *sync.Cond
	idle      *sync.Cond
	queue     []entry
	head      int
	inFlight  int
	terminate bool
	panics    []*TaskPanic
	dropped   int

	workers sync.WaitGroup
}

// entry is a queued task and the group its panics are reported to. A nil
// group reports to the pool's own Sync.
type entry struct {
	task  Task
	group *Group
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for lifecycle and panic records.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// HardwareThreads returns the number of hardware threads, or 4 when it
// cannot be determined.
func HardwareThreads() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return fallbackThreads
}

// New starts a pool with min(HardwareThreads(), n) workers. n <= 0 requests
// one worker per hardware thread.
func New(n int, opts ...Option) *Pool {
	hw := HardwareThreads()
	if n <= 0 || n > hw {
		n = hw
	}

	p := &Pool{
		numThreads: n,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.workers.Add(n)
	for range n {
		go p.spin()
	}
	p.log.Debug("thread pool started", "threads", n)
	return p
}

// NumThreads returns the number of worker goroutines.
func (p *Pool) NumThreads() int {
	return p.numThreads
}

// Enqueue appends task to the queue and wakes one idle worker. It never
// waits for the task to run. Completion order across workers is
// unspecified.
func (p *Pool) Enqueue(task Task) error {
	return p.enqueue(task, nil)
}

func (p *Pool) enqueue(task Task, g *Group) error {
	if task == nil {
		return errors.New("threadpool: nil task")
	}
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		return ErrStopped
	}
	p.queue = append(p.queue, entry{task: task, group: g})
	p.inFlight++
	p.mu.Unlock()

	p.work.Signal()
	return nil
}

func (p *Pool) spin() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for p.head == len(p.queue) && !p.terminate {
			p.work.Wait()
		}
		if p.terminate {
			p.mu.Unlock()
			return
		}
		e := p.pop()
		p.mu.Unlock()

		tp := p.run(e.task)

		p.mu.Lock()
		switch {
		case tp == nil:
		case e.group != nil:
			e.group.panics = append(e.group.panics, tp)
		default:
			p.panics = append(p.panics, tp)
		}
		p.inFlight--
		idle := p.inFlight == 0
		p.mu.Unlock()

		if idle {
			p.idle.Broadcast()
		}
	}
}

// pop removes the queue head. Callers hold p.mu.
func (p *Pool) pop() entry {
	e := p.queue[p.head]
	p.queue[p.head] = entry{}
	p.head++
	if p.head == len(p.queue) {
		p.queue = p.queue[:0]
		p.head = 0
	}
	return e
}

func (p *Pool) run(task Task) (tp *TaskPanic) {
	defer func() {
		if r := recover(); r != nil {
			tp = &TaskPanic{Value: r, Stack: debug.Stack()}
			p.log.Error("task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
	return nil
}

// Sync blocks until every enqueued task has finished. The pool stays usable
// afterwards. Panics recovered from tasks enqueued directly on the pool
// since the previous Sync are returned as a *TaskError; panics from Group
// tasks go to that Group.
//
// Sync waits for all in-flight work, including tasks enqueued by other
// goroutines sharing the pool.
func (p *Pool) Sync() error {
	p.mu.Lock()
	p.waitIdle()
	panics := p.panics
	p.panics = nil
	p.mu.Unlock()
	return taskError(panics)
}

// waitIdle blocks until nothing is in flight. Callers hold p.mu.
func (p *Pool) waitIdle() {
	for p.inFlight != 0 && !p.terminate {
		p.idle.Wait()
	}
}

func taskError(panics []*TaskPanic) error {
	if len(panics) == 0 {
		return nil
	}
	return &TaskError{Panics: panics}
}

// Group is a batch of tasks submitted by one caller. Its tasks run on the
// pool like any other, but their panics are reported only by the Group's
// own Sync, so callers sharing a pool never see each other's failures.
//
// A Group is used by one goroutine at a time.
type Group struct {
	p      *Pool
	panics []*TaskPanic // guarded by p.mu
}

// Group returns a new, empty task group on p.
func (p *Pool) Group() *Group {
	return &Group{p: p}
}

// Enqueue queues task on the pool as part of g.
func (g *Group) Enqueue(task Task) error {
	return g.p.enqueue(task, g)
}

// Sync has the barrier semantics of Pool.Sync but returns only the panics
// of g's tasks.
func (g *Group) Sync() error {
	p := g.p
	p.mu.Lock()
	p.waitIdle()
	panics := g.panics
	g.panics = nil
	p.mu.Unlock()
	return taskError(panics)
}

// Busy reports whether any task is queued or executing.
func (p *Pool) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight != 0
}

// Stop terminates the workers and waits for them to exit. Tasks already
// executing run to completion; tasks still queued are dropped without being
// run. The pool cannot be restarted. Stop is idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		p.workers.Wait()
		return
	}
	p.terminate = true
	dropped := len(p.queue) - p.head
	p.dropped += dropped
	p.inFlight -= dropped
	p.queue = nil
	p.head = 0
	p.mu.Unlock()

	p.work.Broadcast()
	p.idle.Broadcast()
	p.workers.Wait()

	if dropped > 0 {
		p.log.Warn("thread pool stopped with queued tasks", "dropped", dropped)
	}
	p.log.Debug("thread pool stopped", "threads", p.numThreads)
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminate
}

// Dropped returns how many queued tasks Stop discarded.
func (p *Pool) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

var (
	globalOnce sync.Once
	globalPool *Pool
)

// Global returns the process-wide pool, creating it on first use with one
// worker per hardware thread. It is never stopped.
func Global() *Pool {
	globalOnce.Do(func() {
		globalPool = New(HardwareThreads())
	})
	return globalPool
}
