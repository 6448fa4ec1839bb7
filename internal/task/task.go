// Package task defines the contract between the control loop and the
// long-running capture and decoder tasks: the command vocabulary, the
// subject names both sides rendezvous on, and the status values a task
// reports in its snapshots.
//
// A task subscribes to its own command subject and must accept at least
// Query, Configure and Start, resolving each accepted command's completion
// exactly once. It must publish periodic snapshots on its status subject
// containing at minimum a "status" value; the capture task additionally
// reports "name" (device identity) and "sampleRate". The decoder task also
// publishes decoded frames on the frame subject.
package task

import "context"

// Task is a long-running unit occupying one executor worker. Run loops
// until ctx is cancelled; cancellation is cooperative, there is no forced
// preemption.
type Task interface {
	// Name identifies the task in logs.
	Name() string

	// Run executes the task's internal loop until ctx is done.
	Run(ctx context.Context)
}

// Command codes carried by events on the command subjects.
const (
	Query = iota + 1
	Configure
	Start
	Stop
)

// Subject names the runtime components rendezvous on.
const (
	RadioStatusSubject    = "radio.status"
	RadioCommandSubject   = "radio.command"
	DecoderStatusSubject  = "decoder.status"
	DecoderCommandSubject = "decoder.command"
	DecoderFrameSubject   = "decoder.frame"
)

// Status values reported in snapshots.
const (
	StatusAbsent    = "absent"
	StatusIdle      = "idle"
	StatusWaiting   = "waiting"
	StatusStreaming = "streaming"
	StatusDecoding  = "decoding"
)
