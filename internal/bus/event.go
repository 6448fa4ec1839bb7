package bus

import (
	"sync/atomic"

	"github.com/rfnet/nfctap/internal/conftree"
)

// Event is the immutable message envelope published on command and status
// subjects. It carries a command code, an optional configuration payload,
// and up to two completion continuations.
//
// Status events are one-way snapshots with no continuation. Command events
// embed continuations the receiving task must resolve exactly once when it
// finishes acting on that specific event: success xor failure, never both.
// The bus itself never invokes them.
type Event struct {
	// Code identifies the command or status kind.
	Code int

	// Payload is the optional configuration or status document.
	Payload conftree.Tree

	done *completion
}

type completion struct {
	fired     atomic.Bool
	onSuccess func()
	onFailure func()
}

// NewEvent creates an event with the given code and no payload.
func NewEvent(code int) Event {
	return Event{Code: code}
}

// WithPayload returns a copy of the event carrying the given payload.
func (e Event) WithPayload(payload conftree.Tree) Event {
	e.Payload = payload
	return e
}

// WithCompletion returns a copy of the event carrying the given
// continuations. Either may be nil.
func (e Event) WithCompletion(onSuccess, onFailure func()) Event {
	e.done = &completion{onSuccess: onSuccess, onFailure: onFailure}
	return e
}

// Complete fires the success continuation. The first of Complete or Fail
// wins; later calls on either are no-ops.
func (e Event) Complete() {
	if e.done == nil {
		return
	}
	if e.done.fired.CompareAndSwap(false, true) && e.done.onSuccess != nil {
		e.done.onSuccess()
	}
}

// Fail fires the failure continuation. The first of Complete or Fail wins;
// later calls on either are no-ops.
func (e Event) Fail() {
	if e.done == nil {
		return
	}
	if e.done.fired.CompareAndSwap(false, true) && e.done.onFailure != nil {
		e.done.onFailure()
	}
}
