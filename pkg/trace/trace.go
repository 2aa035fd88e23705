// Package trace keeps an ordered event log of interpreter activity and
// forwards each event to a leveled logger.
package trace

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcgregorio/logger"
	"github.com/jcgregorio/slog"
)

type Level int

const (
	Info Level = iota
	Error
	Debug
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Debug:
		return "DEBUG"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

type Event struct {
	Level   Level
	Message string
}

// Log records events in order. A nil *Log discards everything.
type Log struct {
	sink   slog.Logger
	events []Event
	debug  bool
}

// New returns a log forwarding to sink. Debug events are recorded only when
// debug is set.
func New(sink slog.Logger, debug bool) *Log {
	if sink == nil {
		sink = logger.NewNopLogger()
	}
	return &Log{sink: sink, debug: debug}
}

// NewStderr returns a log that also prints to stderr.
func NewStderr(debug bool) *Log {
	return New(logger.NewFromOptions(&logger.Options{
		SyncWriter:   os.Stderr,
		DepthDelta:   2,
		IncludeDebug: debug,
	}), debug)
}

// Silent returns a log that records events without printing them.
func Silent(debug bool) *Log {
	return New(logger.NewNopLogger(), debug)
}

func (l *Log) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.events = append(l.events, Event{Level: Info, Message: msg})
	l.sink.Info(msg)
}

func (l *Log) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.events = append(l.events, Event{Level: Error, Message: msg})
	l.sink.Error(msg)
}

func (l *Log) Debugf(format string, args ...any) {
	if !l.Debugging() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.events = append(l.events, Event{Level: Debug, Message: msg})
	l.sink.Debug(msg)
}

// Debugging reports whether debug events are kept.
func (l *Log) Debugging() bool { return l != nil && l.debug }

// Begin records entry into fn and returns the matching exit recorder:
//
//	defer log.Begin("eval")()
func (l *Log) Begin(fn string) func() {
	if !l.Debugging() {
		return func() {}
	}
	l.Debugf("%s :> begin", fn)
	return func() { l.Debugf("%s :> end", fn) }
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Reset forgets recorded events.
func (l *Log) Reset() {
	if l != nil {
		l.events = l.events[:0]
	}
}

// Dump writes one line per event, e.g. "[INFO]lexing main.se".
func (l *Log) Dump(w io.Writer) error {
	var b strings.Builder
	for _, ev := range l.Events() {
		fmt.Fprintf(&b, "[%s]%s\n", ev.Level, ev.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
