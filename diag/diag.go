// Package diag provides the diagnostic sink used across the simulator to
// report non-fatal conditions: out-of-range memory access, a missing
// program file, an unrecognized predictor name. None of these stop the
// simulation; they are surfaced so a caller can see what happened.
package diag

import (
	"fmt"
	"io"
	"os"
)

// Sink receives formatted diagnostic messages. It never returns an error:
// a diagnostic sink that itself failed would have nowhere left to report
// the failure to.
type Sink interface {
	Logf(format string, args ...any)
}

// writerSink writes diagnostics to an underlying io.Writer, one line per
// call.
type writerSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a Sink. Passing nil is equivalent to os.Stderr.
func NewWriterSink(w io.Writer) Sink {
	if w == nil {
		w = os.Stderr
	}
	return &writerSink{w: w}
}

// Stderr is the default sink used when no other is configured.
var Stderr Sink = NewWriterSink(os.Stderr)

func (s *writerSink) Logf(format string, args ...any) {
	fmt.Fprintf(s.w, format+"\n", args...)
}

// discardSink swallows every message. Useful in tests that want to assert
// on behavior without asserting on diagnostic text.
type discardSink struct{}

func (discardSink) Logf(string, ...any) {}

// Discard is a Sink that drops every message.
var Discard Sink = discardSink{}
