// Package executor provides the fixed-size worker pool the capture and
// decoder tasks run on. Each submitted task occupies one worker for its
// lifetime; submissions beyond the pool's maximum queue until a worker
// frees up. Shutdown is cooperative: workers observe a shared cancellation
// and are joined by the caller.
package executor

import (
	"context"
	"sync"

	"github.com/rfnet/nfctap/internal/logging"
)

// Task is the unit of work the pool runs. Run is expected to loop until
// ctx is done.
type Task interface {
	Name() string
	Run(ctx context.Context)
}

// Executor is a worker pool bounded by [core, max] workers. core workers
// are started up front; more are added on demand up to max.
type Executor struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []Task
	workers  int
	idle     int
	stopping bool

	core int
	max  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	join   sync.Once
	log    *logging.Logger
}

// New creates an executor with the given pool bounds. core is clamped to
// [1, max]; max must be at least 1.
func New(core, max int, log *logging.Logger) *Executor {
	if max < 1 {
		max = 1
	}
	if core < 1 {
		core = 1
	}
	if core > max {
		core = max
	}
	if log == nil {
		log = logging.NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		core:   core,
		max:    max,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	e.cond = sync.NewCond(&e.mu)

	for i := 0; i < core; i++ {
		e.spawn()
	}
	return e
}

// Submit hands a task to the pool. The task is picked up by an idle worker,
// by a newly-spawned worker while the pool is below max, or queued until a
// worker frees up. Submissions after Shutdown are dropped.
func (e *Executor) Submit(t Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopping {
		e.log.Warn("task submitted after shutdown", "task", t.Name())
		return
	}

	e.pending = append(e.pending, t)
	if e.idle == 0 && e.workers < e.max {
		e.spawn()
	}
	e.cond.Signal()
}

// Shutdown cancels the shared task context, wakes every worker, and waits
// for all of them to return. It is idempotent and safe to invoke multiple
// times; every call blocks until the pool has fully drained.
func (e *Executor) Shutdown() {
	e.join.Do(func() {
		e.mu.Lock()
		e.stopping = true
		e.mu.Unlock()

		e.cancel()
		e.cond.Broadcast()
	})
	e.wg.Wait()
}

// Workers returns the current worker count.
func (e *Executor) Workers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers
}

// spawn starts one worker. Caller must hold e.mu or be in New.
func (e *Executor) spawn() {
	e.workers++
	e.wg.Add(1)
	go e.worker()
}

func (e *Executor) worker() {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		e.idle++
		for len(e.pending) == 0 && !e.stopping {
			e.cond.Wait()
		}
		if e.stopping && len(e.pending) == 0 {
			e.idle--
			e.workers--
			e.mu.Unlock()
			return
		}
		t := e.pending[0]
		e.pending = e.pending[1:]
		e.idle--
		e.mu.Unlock()

		e.log.Debug("task started", "task", t.Name())
		t.Run(e.ctx)
		e.log.Debug("task finished", "task", t.Name())
	}
}
