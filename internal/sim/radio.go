// Package sim provides in-process capture and decoder tasks that honor the
// runtime's bus contract: they accept Query, Configure and Start commands,
// resolve each accepted command's completion exactly once, and publish
// periodic status snapshots. They stand in for real SDR and DSP drivers so
// the pipeline runs end-to-end without hardware; real drivers plug in
// through the same task and subject contract.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/logging"
	"github.com/rfnet/nfctap/internal/queue"
	"github.com/rfnet/nfctap/internal/task"
)

const defaultStatusInterval = 100 * time.Millisecond

// Radio simulates an SDR capture device. It reports itself under a fixed
// device identity and applies whatever configuration it is sent.
type Radio struct {
	log      *logging.Logger
	identity string
	interval time.Duration

	status *bus.Subject[bus.Event]
	inbox  *queue.Blocking[bus.Event]

	mu     sync.Mutex
	state  string
	params conftree.Tree
}

// NewRadio creates a simulated capture device publishing under identity
// (for example "airspy:0"). It subscribes to the radio command subject and
// publishes snapshots on the radio status subject every interval.
func NewRadio(log *logging.Logger, reg *bus.Registry, identity string, interval time.Duration) (*Radio, error) {
	if interval <= 0 {
		interval = defaultStatusInterval
	}

	r := &Radio{
		log:      log.WithTask("sim-radio"),
		identity: identity,
		interval: interval,
		inbox:    queue.New[bus.Event](),
		state:    task.StatusIdle,
		params: conftree.Tree{
			"centerFreq": 13560000,
			"sampleRate": 10000000,
			"gainMode":   0,
			"gainValue":  0,
			"mixerAgc":   0,
			"tunerAgc":   0,
		},
	}

	status, err := bus.Named[bus.Event](reg, task.RadioStatusSubject)
	if err != nil {
		return nil, err
	}
	r.status = status

	command, err := bus.Named[bus.Event](reg, task.RadioCommandSubject)
	if err != nil {
		return nil, err
	}
	command.Subscribe(r.inbox.Add)

	return r, nil
}

// Name implements task.Task.
func (r *Radio) Name() string { return "sim-radio" }

// Run processes commands and publishes status snapshots until ctx is done.
func (r *Radio) Run(ctx context.Context) {
	r.publishStatus()

	for {
		if ctx.Err() != nil {
			return
		}
		if ev, ok := r.inbox.Get(r.interval); ok {
			r.handle(ev)
		}
		r.publishStatus()
	}
}

func (r *Radio) handle(ev bus.Event) {
	switch ev.Code {
	case task.Query:
		r.publishStatus()
	case task.Configure:
		r.mu.Lock()
		r.params.Merge(ev.Payload)
		r.mu.Unlock()
		r.log.Debug("configuration applied", "config", ev.Payload.Dump())
	case task.Start:
		r.setState(task.StatusStreaming)
	case task.Stop:
		r.setState(task.StatusIdle)
	default:
		r.log.Warn("unsupported command", "code", ev.Code)
		ev.Fail()
		return
	}
	ev.Complete()
}

func (r *Radio) setState(state string) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

// publishStatus emits a snapshot carrying the device identity, its state
// and the full current parameter set.
func (r *Radio) publishStatus() {
	r.mu.Lock()
	snapshot := r.params.Clone()
	snapshot.Set("status", r.state)
	snapshot.Set("name", r.identity)
	r.mu.Unlock()

	r.status.Publish(bus.Event{Payload: snapshot})
}
