// Package supervisor implements the reconciliation control loop that
// converges the capture and decoder tasks toward their desired
// configuration and sequences start/stop actions.
//
// The loop owns each task's view (observed status, desired configuration,
// optimistic configured flag). Status snapshots arrive on the publishing
// task's goroutine through subject subscriptions; the view is the single
// shared-state boundary between those goroutines and the loop, and every
// access serializes through the loop mutex paired with its wait condition.
package supervisor

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/catalog"
	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/executor"
	"github.com/rfnet/nfctap/internal/frame"
	"github.com/rfnet/nfctap/internal/logging"
	"github.com/rfnet/nfctap/internal/queue"
	"github.com/rfnet/nfctap/internal/task"
)

const defaultTick = 500 * time.Millisecond

// view is the control loop's picture of one managed task.
type view struct {
	observed   conftree.Tree
	desired    conftree.Tree
	configured bool
}

// Supervisor drives the capture pipeline: it subscribes to both tasks'
// status subjects, diffs observed state against desired configuration each
// tick, issues Configure/Start commands, drains decoded frames to the
// output sink, and governs termination.
type Supervisor struct {
	log  *logging.Logger
	reg  *bus.Registry
	exec *executor.Executor

	out     *frame.Writer
	notices io.Writer

	cat    catalog.Catalog
	tick   time.Duration
	budget time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	terminate bool
	reason    string

	radio   view
	decoder view

	frames *queue.Blocking[frame.Record]

	radioCmd   *bus.Subject[bus.Event]
	decoderCmd *bus.Subject[bus.Event]
	subs       []*bus.Subscription

	started time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTick overrides the reconciliation tick interval.
func WithTick(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithTimeLimit sets the wall-clock capture budget. Zero means unlimited.
func WithTimeLimit(d time.Duration) Option {
	return func(s *Supervisor) { s.budget = d }
}

// WithCatalog replaces the built-in device parameter catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Supervisor) { s.cat = c }
}

// WithSink redirects frame output. Defaults to stdout.
func WithSink(w io.Writer) Option {
	return func(s *Supervisor) { s.out = frame.NewWriter(w) }
}

// WithNotices redirects the capture-finished notices. Defaults to stdout.
func WithNotices(w io.Writer) Option {
	return func(s *Supervisor) { s.notices = w }
}

// WithDecoderParams merges params into the decoder's desired configuration
// document.
func WithDecoderParams(params conftree.Tree) Option {
	return func(s *Supervisor) { s.decoder.desired.Merge(params) }
}

// New creates a Supervisor wired to the given registry and executor.
// The decoder's desired document starts from the protocol defaults; its
// sampleRate is filled in once the capture task reports one.
func New(log *logging.Logger, reg *bus.Registry, exec *executor.Executor, opts ...Option) (*Supervisor, error) {
	s := &Supervisor{
		log:     log,
		reg:     reg,
		exec:    exec,
		out:     frame.NewWriter(os.Stdout),
		notices: os.Stdout,
		cat:     catalog.Default(),
		tick:    defaultTick,
		frames:  queue.New[frame.Record](),
		decoder: view{desired: defaultDecoderParams()},
		radio:   view{},
	}
	s.cond = sync.NewCond(&s.mu)

	var err error
	if s.radioCmd, err = bus.Named[bus.Event](reg, task.RadioCommandSubject); err != nil {
		return nil, err
	}
	if s.decoderCmd, err = bus.Named[bus.Event](reg, task.DecoderCommandSubject); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func defaultDecoderParams() conftree.Tree {
	return conftree.Tree{
		"debugEnabled": false,
		"nfca":         conftree.Tree{"enabled": true},
		"nfcb":         conftree.Tree{"enabled": true},
		"nfcf":         conftree.Tree{"enabled": true},
		"nfcv":         conftree.Tree{"enabled": true},
	}
}

// Start submits the managed tasks to the executor, wires the status and
// frame subscriptions, and publishes the initial Query on the capture
// command subject.
func (s *Supervisor) Start(radio, decoder task.Task) error {
	radioStatus, err := bus.Named[bus.Event](s.reg, task.RadioStatusSubject)
	if err != nil {
		return err
	}
	decoderStatus, err := bus.Named[bus.Event](s.reg, task.DecoderStatusSubject)
	if err != nil {
		return err
	}
	frames, err := bus.Named[frame.Record](s.reg, task.DecoderFrameSubject)
	if err != nil {
		return err
	}

	// Subscriber callbacks run on the publishing task's goroutine and must
	// stay cheap: a guarded state update or an enqueue, nothing more.
	s.subs = append(s.subs,
		radioStatus.Subscribe(func(e bus.Event) {
			s.mu.Lock()
			s.radio.observed = e.Payload
			s.mu.Unlock()
		}),
		decoderStatus.Subscribe(func(e bus.Event) {
			s.mu.Lock()
			s.decoder.observed = e.Payload
			s.mu.Unlock()
		}),
		frames.Subscribe(func(r frame.Record) {
			s.frames.Add(r)
		}),
	)

	s.exec.Submit(radio)
	s.exec.Submit(decoder)

	s.radioCmd.Publish(bus.NewEvent(task.Query))
	return nil
}

// Run executes the control loop until shutdown, then joins the executor.
// It returns once every worker has finished. Frames still queued when the
// loop ends are drained once more before returning; frames published
// after the subscriptions are cancelled are dropped.
func (s *Supervisor) Run() {
	s.started = time.Now()

	for {
		s.mu.Lock()
		s.waitTickLocked()
		if s.terminate {
			s.mu.Unlock()
			break
		}
		cmds, err := s.evaluateLocked()
		s.mu.Unlock()

		// Commands are published outside the loop mutex: delivery is
		// synchronous and a task may resolve a completion inline, which
		// takes the mutex again.
		for _, publish := range cmds {
			publish()
		}

		if err != nil {
			s.log.Error("capture aborted", "error", err.Error())
			s.notice(abortNotice(err))
			s.Shutdown(err.Error())
		}

		if s.budget > 0 && time.Since(s.started) >= s.budget {
			s.notice("Finish capture, time limit reached!")
			s.Shutdown("time limit reached")
		}

		s.drainFrames()
	}

	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.exec.Shutdown()
	s.drainFrames()
}

// Shutdown requests termination: it sets the terminate flag and wakes the
// loop's wait. The call is fast and non-blocking, safe from a signal
// handling goroutine; the blocking executor join stays on the loop's own
// goroutine. The first reason wins.
func (s *Supervisor) Shutdown(reason string) {
	s.mu.Lock()
	if !s.terminate {
		s.terminate = true
		s.reason = reason
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Reason returns the recorded shutdown cause, if any.
func (s *Supervisor) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// UpdateDesired merges a reloaded desired configuration into the decoder
// document and the device catalog. The configured flags are cleared so the
// next tick reconverges against the new desired state.
func (s *Supervisor) UpdateDesired(decoderParams conftree.Tree, receiverOverrides map[string]conftree.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if decoderParams != nil {
		s.decoder.desired.Merge(decoderParams)
		s.decoder.configured = false
	}
	if receiverOverrides != nil {
		s.cat.Merge(receiverOverrides)
		s.radio.configured = false
	}
}

// waitTickLocked suspends until the tick interval elapses or a shutdown
// request wakes the condition. Caller holds s.mu.
func (s *Supervisor) waitTickLocked() {
	if s.terminate {
		return
	}
	timer := time.AfterFunc(s.tick, s.cond.Broadcast)
	s.cond.Wait()
	timer.Stop()
}

func (s *Supervisor) drainFrames() {
	wrote := false
	for {
		r, ok := s.frames.TryGet()
		if !ok {
			break
		}
		if err := s.out.Write(r); err != nil {
			s.log.Error("frame output failed", "error", err.Error())
			return
		}
		wrote = true
	}
	if wrote {
		if err := s.out.Flush(); err != nil {
			s.log.Error("frame output flush failed", "error", err.Error())
		}
	}
}

func (s *Supervisor) notice(msg string) {
	io.WriteString(s.notices, msg+"\n") //nolint:errcheck // console notice
}
