// Package progress reports review run lifecycle events. An Emitter travels
// on the context so deep call sites can report without plumbing; the Hub
// fans events out to websocket watchers.
package progress

import (
	"context"
	"time"
)

// Event is one observable step of a run.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId"`
	Iteration int       `json:"iteration,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Event types.
const (
	EventRunStarted    = "run_started"
	EventIteration     = "iteration"
	EventToolFulfilled = "tool_fulfilled"
	EventParseWarning  = "parse_warning"
	EventRunCompleted  = "run_completed"
	EventRunFailed     = "run_failed"
)

// Emitter receives events. Emit must not block.
type Emitter interface {
	Emit(evt Event)
}

type emitterKey struct{}

// WithEmitter attaches emitter to the context.
func WithEmitter(ctx context.Context, emitter Emitter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFrom returns the attached emitter, or nil.
func EmitterFrom(ctx context.Context) Emitter {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(emitterKey{}).(Emitter); ok {
		return v
	}
	return nil
}

// Emit sends evt to the context's emitter when one is attached. The event
// timestamp is filled in when unset.
func Emit(ctx context.Context, evt Event) {
	e := EmitterFrom(ctx)
	if e == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	e.Emit(evt)
}
