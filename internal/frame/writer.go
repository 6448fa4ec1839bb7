package frame

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format renders one frame as its output line (without trailing newline):
// start time in fixed 10.3 fractional-second format, the frame type label,
// and for data frames the technology label, the rounded kbps rate, and the
// payload as upper-case hex pairs.
func Format(r Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%010.3f (%s) ", r.TimeStart, r.Type.Label())

	if r.Type.IsData() {
		fmt.Fprintf(&b, "[%s@%.0f]: ", r.Tech.Label(), math.Round(float64(r.BitRate)/1000.0))
		for _, octet := range r.Payload {
			fmt.Fprintf(&b, "%02X ", octet)
		}
	}

	return b.String()
}

// Writer emits frame lines to an output sink. When the sink is a terminal
// each line is flushed as it is written; otherwise output is buffered and
// flushed once per drain via Flush.
type Writer struct {
	buf        *bufio.Writer
	isTerminal bool
}

// NewWriter wraps w as a frame sink.
func NewWriter(w io.Writer) *Writer {
	isTerminal := false
	if f, ok := w.(*os.File); ok {
		isTerminal = term.IsTerminal(int(f.Fd()))
	}
	return &Writer{
		buf:        bufio.NewWriter(w),
		isTerminal: isTerminal,
	}
}

// Write emits one frame line.
func (w *Writer) Write(r Record) error {
	if _, err := w.buf.WriteString(Format(r)); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	if w.isTerminal {
		return w.buf.Flush()
	}
	return nil
}

// Flush forces any buffered lines out to the sink.
func (w *Writer) Flush() error {
	return w.buf.Flush()
}
