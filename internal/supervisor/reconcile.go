package supervisor

import (
	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/conftree"
	"github.com/rfnet/nfctap/internal/errors"
	"github.com/rfnet/nfctap/internal/task"
)

// evaluateLocked runs one tick's reconciliation over both task views and
// returns the commands to publish once the mutex is released. A non-nil
// error is a fatal condition that must initiate shutdown. Caller holds
// s.mu.
func (s *Supervisor) evaluateLocked() ([]func(), error) {
	var cmds []func()

	radioCmds, err := s.evaluateRadioLocked()
	if err != nil {
		return radioCmds, err
	}
	cmds = append(cmds, radioCmds...)

	decoderCmds, err := s.evaluateDecoderLocked()
	cmds = append(cmds, decoderCmds...)
	return cmds, err
}

// evaluateRadioLocked reconciles the capture task. Until a first status
// snapshot arrives there is nothing to do. A status reporting the device
// absent, a missing identity, or an identity prefix unknown to the catalog
// is fatal.
func (s *Supervisor) evaluateRadioLocked() ([]func(), error) {
	observed := s.radio.observed
	if observed == nil {
		return nil, nil
	}

	status, ok := observed.String("status")
	if !ok || status == task.StatusAbsent {
		return nil, errors.ErrDeviceAbsent
	}

	name, ok := observed.String("name")
	if !ok || name == "" {
		return nil, errors.ErrDeviceAbsent
	}

	// Cross-task dependency: the decoder's desired configuration is
	// incomplete until the capture sample rate is known. A rate change
	// (the receiver's own configuration can move it) reopens the
	// decoder's configuration so the next tick reconverges.
	if rate, ok := observed["sampleRate"]; ok {
		if len(conftree.Diff(s.decoder.desired, conftree.Tree{"sampleRate": rate})) != 0 {
			s.decoder.desired.Set("sampleRate", rate)
			s.decoder.configured = false
		}
	}

	desired, ok := s.cat.Lookup(name)
	if !ok {
		return nil, errors.NewDeviceError(name, errors.ErrUnknownDevice)
	}
	s.radio.desired = desired

	cmds := s.reconcileViewLocked(&s.radio, s.radioCmd, status, "receiver")
	return cmds, nil
}

// evaluateDecoderLocked reconciles the decoder task. No snapshot yet means
// wait; a snapshot without a status value means the decoder process is not
// functioning, which is fatal. Reconciliation is gated on the sample rate
// learned from the capture task.
func (s *Supervisor) evaluateDecoderLocked() ([]func(), error) {
	observed := s.decoder.observed
	if observed == nil {
		return nil, nil
	}

	status, ok := observed.String("status")
	if !ok {
		return nil, errors.ErrDecoderUnavailable
	}

	if !s.decoder.desired.Has("sampleRate") {
		return nil, nil
	}

	cmds := s.reconcileViewLocked(&s.decoder, s.decoderCmd, status, "decoder")
	return cmds, nil
}

// reconcileViewLocked closes the gap between a task's observed and desired
// state. An empty diff marks the view configured. A non-empty diff issues
// one Configure command whose success continuation optimistically sets
// configured before the confirming status snapshot arrives, so the command
// is not reissued every tick while the update is in flight; a command that
// never completes leaves the flag false and the next tick's recomputation
// reissues it. A configured, idle task gets a Start command that
// optimistically advances the observed status to waiting.
func (s *Supervisor) reconcileViewLocked(v *view, cmd *bus.Subject[bus.Event], status, name string) []func() {
	var cmds []func()

	changes := conftree.Diff(v.observed, v.desired)
	if len(changes) == 0 {
		v.configured = true
	} else if !v.configured {
		s.log.Info("set configuration", "target", name, "config", changes.Dump())
		ev := bus.NewEvent(task.Configure).
			WithPayload(changes).
			WithCompletion(func() {
				s.mu.Lock()
				v.configured = true
				s.mu.Unlock()
			}, nil)
		cmds = append(cmds, func() { cmd.Publish(ev) })
	}

	if v.configured && status == task.StatusIdle {
		s.log.Info("start", "target", name)
		ev := bus.NewEvent(task.Start).
			WithCompletion(func() {
				s.mu.Lock()
				if v.observed != nil {
					v.observed.Set("status", task.StatusWaiting)
				}
				s.mu.Unlock()
			}, nil)
		cmds = append(cmds, func() { cmd.Publish(ev) })
	}

	return cmds
}

func abortNotice(err error) string {
	if errors.Is(err, errors.ErrDecoderUnavailable) {
		return "Finish capture, invalid decoder!"
	}
	return "Finish capture, invalid receiver!"
}
