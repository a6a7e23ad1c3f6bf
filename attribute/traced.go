package attribute

import (
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"
)

// TraceStep is one recorded evaluation step contributing to a TracedValue,
// used for diagnostics.
type TraceStep struct {
	Description string
}

// TracedValue pairs a Value with the trace of steps that produced it.
type TracedValue struct {
	Value value.Value
	Trace []TraceStep
}

func traced(v value.Value, steps ...string) TracedValue {
	t := TracedValue{Value: v}
	for _, s := range steps {
		t.Trace = append(t.Trace, TraceStep{Description: s})
	}
	return t
}

// Finder is a registered attribute source, invoked when an Invocation misses
// the broker's cache, and again on every poll when the Invocation sets a
// PollInterval. It returns the raw upstream lazy sequence; the
// broker layers timeout/TTL/poll/backoff and multicasting on top, so Finder
// implementations stay simple — a sensor poll, a one-shot lookup, or a true
// push stream all look the same from here.
type Finder func(inv Invocation, args []value.Value) stream.Source[value.Value]
