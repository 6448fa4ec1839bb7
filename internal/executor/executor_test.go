package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rfnet/nfctap/internal/logging"
)

// loopTask runs until its context is cancelled, signalling on started.
type loopTask struct {
	name    string
	started chan struct{}
	once    sync.Once
}

func newLoopTask(name string) *loopTask {
	return &loopTask{name: name, started: make(chan struct{})}
}

func (t *loopTask) Name() string { return t.name }

func (t *loopTask) Run(ctx context.Context) {
	t.once.Do(func() { close(t.started) })
	<-ctx.Done()
}

func TestExecutor_RunsSubmittedTasks(t *testing.T) {
	e := New(1, 4, logging.NopLogger())
	defer e.Shutdown()

	capture := newLoopTask("capture")
	decode := newLoopTask("decode")
	e.Submit(capture)
	e.Submit(decode)

	for _, task := range []*loopTask{capture, decode} {
		select {
		case <-task.started:
		case <-time.After(time.Second):
			t.Fatalf("task %s never started", task.name)
		}
	}
}

func TestExecutor_SubmissionsBeyondMaxQueue(t *testing.T) {
	e := New(1, 2, logging.NopLogger())

	first := newLoopTask("first")
	second := newLoopTask("second")
	third := newLoopTask("third")
	e.Submit(first)
	e.Submit(second)

	<-first.started
	<-second.started

	// Both workers are occupied by long-lived tasks; the third submission
	// must wait for a free worker, which only happens at shutdown here.
	e.Submit(third)

	select {
	case <-third.started:
		t.Fatal("third task ran while the pool was saturated")
	case <-time.After(50 * time.Millisecond):
	}

	if got := e.Workers(); got != 2 {
		t.Errorf("workers: got %d, want 2", got)
	}

	e.Shutdown()
}

func TestExecutor_ShutdownJoinsWorkers(t *testing.T) {
	e := New(2, 4, logging.NopLogger())

	var running atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		e.Submit(taskFunc(func(ctx context.Context) {
			defer wg.Done()
			running.Add(1)
			<-ctx.Done()
			running.Add(-1)
		}))
	}

	// Give tasks time to start, then shut down and verify all returned.
	time.Sleep(20 * time.Millisecond)
	e.Shutdown()
	wg.Wait()

	if n := running.Load(); n != 0 {
		t.Errorf("%d tasks still running after Shutdown", n)
	}
}

func TestExecutor_ShutdownIdempotent(t *testing.T) {
	e := New(1, 2, logging.NopLogger())
	e.Submit(newLoopTask("capture"))

	done := make(chan struct{})
	go func() {
		e.Shutdown()
		e.Shutdown()
		close(done)
	}()
	e.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("concurrent repeated Shutdown deadlocked")
	}
}

func TestExecutor_SubmitAfterShutdownDropped(t *testing.T) {
	e := New(1, 1, logging.NopLogger())
	e.Shutdown()

	late := newLoopTask("late")
	e.Submit(late)

	select {
	case <-late.started:
		t.Error("task submitted after shutdown must not run")
	case <-time.After(50 * time.Millisecond):
	}
}

// taskFunc adapts a func to the Task interface.
type taskFunc func(ctx context.Context)

func (f taskFunc) Name() string            { return "func" }
func (f taskFunc) Run(ctx context.Context) { f(ctx) }
