package sim

import (
	"context"
	"sync"
	"time"

	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/frame"
	"github.com/rfnet/nfctap/internal/logging"
	"github.com/rfnet/nfctap/internal/queue"
	"github.com/rfnet/nfctap/internal/task"
)

// Decoder simulates the protocol decoder. Once started it replays a short
// canned exchange (carrier on, poll, listen, carrier off) on the frame
// subject, advancing the frame clock by its status interval.
type Decoder struct {
	log      *logging.Logger
	interval time.Duration

	status *bus.Subject[bus.Event]
	frames *bus.Subject[frame.Record]
	inbox  *queue.Blocking[bus.Event]

	mu      sync.Mutex
	state   string
	params  conftree.Tree
	started time.Time
	next    int
}

// replay is the canned frame sequence the simulated decoder emits.
var replay = []frame.Record{
	{Type: frame.CarrierOn},
	{Type: frame.Poll, Tech: frame.TechNfcA, BitRate: 106000, Payload: []byte{0x26}},
	{Type: frame.Listen, Tech: frame.TechNfcA, BitRate: 106000, Payload: []byte{0x04, 0x00}},
	{Type: frame.Poll, Tech: frame.TechNfcA, BitRate: 106000, Payload: []byte{0x93, 0x20}},
	{Type: frame.CarrierOff},
}

// NewDecoder creates a simulated decoder wired to the decoder status,
// command and frame subjects.
func NewDecoder(log *logging.Logger, reg *bus.Registry, interval time.Duration) (*Decoder, error) {
	if interval <= 0 {
		interval = defaultStatusInterval
	}

	d := &Decoder{
		log:      log.WithTask("sim-decoder"),
		interval: interval,
		inbox:    queue.New[bus.Event](),
		state:    task.StatusIdle,
		params: conftree.Tree{
			"debugEnabled": false,
			"nfca":         conftree.Tree{"enabled": true},
			"nfcb":         conftree.Tree{"enabled": true},
			"nfcf":         conftree.Tree{"enabled": true},
			"nfcv":         conftree.Tree{"enabled": true},
		},
	}

	status, err := bus.Named[bus.Event](reg, task.DecoderStatusSubject)
	if err != nil {
		return nil, err
	}
	d.status = status

	frames, err := bus.Named[frame.Record](reg, task.DecoderFrameSubject)
	if err != nil {
		return nil, err
	}
	d.frames = frames

	command, err := bus.Named[bus.Event](reg, task.DecoderCommandSubject)
	if err != nil {
		return nil, err
	}
	command.Subscribe(d.inbox.Add)

	return d, nil
}

// Name implements task.Task.
func (d *Decoder) Name() string { return "sim-decoder" }

// Run processes commands, publishes status snapshots, and emits replay
// frames while decoding, until ctx is done.
func (d *Decoder) Run(ctx context.Context) {
	d.publishStatus()

	for {
		if ctx.Err() != nil {
			return
		}
		if ev, ok := d.inbox.Get(d.interval); ok {
			d.handle(ev)
		}
		d.emitFrame()
		d.publishStatus()
	}
}

func (d *Decoder) handle(ev bus.Event) {
	switch ev.Code {
	case task.Query:
		d.publishStatus()
	case task.Configure:
		d.mu.Lock()
		d.params.Merge(ev.Payload)
		d.mu.Unlock()
		d.log.Debug("configuration applied", "config", ev.Payload.Dump())
	case task.Start:
		d.mu.Lock()
		d.state = task.StatusDecoding
		d.started = time.Now()
		d.mu.Unlock()
	case task.Stop:
		d.mu.Lock()
		d.state = task.StatusIdle
		d.mu.Unlock()
	default:
		d.log.Warn("unsupported command", "code", ev.Code)
		ev.Fail()
		return
	}
	ev.Complete()
}

// emitFrame publishes the next replay frame while the decoder is running.
func (d *Decoder) emitFrame() {
	d.mu.Lock()
	if d.state != task.StatusDecoding || d.next >= len(replay) {
		d.mu.Unlock()
		return
	}
	record := replay[d.next]
	record.TimeStart = time.Since(d.started).Seconds()
	d.next++
	d.mu.Unlock()

	d.frames.Publish(record)
}

func (d *Decoder) publishStatus() {
	d.mu.Lock()
	snapshot := d.params.Clone()
	snapshot.Set("status", d.state)
	d.mu.Unlock()

	d.status.Publish(bus.Event{Payload: snapshot})
}
