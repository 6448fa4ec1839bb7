// Package internal contains integration tests that run the capture
// pipeline end to end: simulated devices, the worker pool, the subject
// registry and the reconciliation loop working together.
package internal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rfnet/nfctap/internal/bus"
	"github.com/rfnet/nfctap/internal/executor"
	"github.com/rfnet/nfctap/internal/logging"
	"github.com/rfnet/nfctap/internal/sim"
	"github.com/rfnet/nfctap/internal/supervisor"
)

// TestCaptureToTimeLimit drives the full pipeline against the simulated
// devices: both devices must converge to their desired configuration,
// the decoder's replay frames must reach the sink in order, and the run
// must end with the time limit notice.
func TestCaptureToTimeLimit(t *testing.T) {
	log := logging.NopLogger()
	reg := bus.NewRegistry(log)
	exec := executor.New(1, 4, log)

	var sink, notices bytes.Buffer
	sup, err := supervisor.New(log, reg, exec,
		supervisor.WithTick(10*time.Millisecond),
		supervisor.WithTimeLimit(time.Second),
		supervisor.WithSink(&sink),
		supervisor.WithNotices(&notices),
	)
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}

	radio, err := sim.NewRadio(log, reg, "airspy:0", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("sim.NewRadio: %v", err)
	}
	decoder, err := sim.NewDecoder(log, reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("sim.NewDecoder: %v", err)
	}

	if err := sup.Start(radio, decoder); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sup.Run()

	if got := notices.String(); !strings.Contains(got, "time limit reached") {
		t.Errorf("notices = %q, want time limit notice", got)
	}

	wantOrder := []string{
		"(CarrierOn)",
		"(PCD->PICC) [NfcA@106]: 26",
		"(PICC->PCD) [NfcA@106]: 04 00",
		"(PCD->PICC) [NfcA@106]: 93 20",
		"(CarrierOff)",
	}
	output := sink.String()
	pos := 0
	for _, want := range wantOrder {
		idx := strings.Index(output[pos:], want)
		if idx < 0 {
			t.Fatalf("sink missing %q after position %d:\n%s", want, pos, output)
		}
		pos += idx + len(want)
	}
}

// TestCaptureShutdownBySignalPath exercises the cooperative shutdown path
// the signal handler uses: Shutdown ends the loop promptly and the reason
// is preserved.
func TestCaptureShutdownBySignalPath(t *testing.T) {
	log := logging.NopLogger()
	reg := bus.NewRegistry(log)
	exec := executor.New(1, 4, log)

	var sink, notices bytes.Buffer
	sup, err := supervisor.New(log, reg, exec,
		supervisor.WithTick(10*time.Millisecond),
		supervisor.WithSink(&sink),
		supervisor.WithNotices(&notices),
	)
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}

	radio, err := sim.NewRadio(log, reg, "airspy:0", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("sim.NewRadio: %v", err)
	}
	decoder, err := sim.NewDecoder(log, reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("sim.NewDecoder: %v", err)
	}

	if err := sup.Start(radio, decoder); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sup.Run()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	sup.Shutdown("signal interrupt")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	if got := sup.Reason(); got != "signal interrupt" {
		t.Errorf("Reason() = %q, want %q", got, "signal interrupt")
	}
}
