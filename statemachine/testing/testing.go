// Package testing provides testing utilities for simulated actors.
//
//nolint:varnamelen // short names idiomatic
package testing

import (
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/simulation/statemachine"
	"github.com/stretchr/testify/require"
)

// TraceEntry records a single transition function call.
type TraceEntry struct {
	Timestamp  time.Time
	Transition string
	From       string
	To         string
	Error      error
}

// Recorder records the transition function calls of a machine.
type Recorder struct {
	mu      sync.Mutex
	entries []TraceEntry
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record wraps fn so every call is appended to the recorder. A nil fn is a no-op function.
func Record[T any](r *Recorder, name string, fn statemachine.TransitionFunction[T]) statemachine.TransitionFunction[T] {
	if fn == nil {
		fn = statemachine.Noop[T]()
	}

	return func(log *slog.Logger, current string, smCtx *T, target string) error {
		err := fn(log, current, smCtx, target)

		r.mu.Lock()
		defer r.mu.Unlock()

		r.entries = append(r.entries, TraceEntry{
			Timestamp:  time.Now(),
			Transition: name,
			From:       current,
			To:         target,
			Error:      err,
		})

		return err
	}
}

// Transition builds a recorded transition.
func Transition[T any](
	r *Recorder,
	name string,
	fn statemachine.TransitionFunction[T],
	target string,
	opts ...statemachine.TransitionOption,
) *statemachine.Transition[T] {
	return statemachine.NewTransition(name, Record(r, name, fn), target, opts...)
}

// Entries returns a copy of the recorded calls.
func (r *Recorder) Entries() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.entries)
}

// Count returns how often the named transition was called.
func (r *Recorder) Count(transition string) int {
	n := 0

	for _, e := range r.Entries() {
		if e.Transition == transition {
			n++
		}
	}

	return n
}

// Failures returns the number of failed calls.
func (r *Recorder) Failures() int {
	n := 0

	for _, e := range r.Entries() {
		if e.Error != nil {
			n++
		}
	}

	return n
}

// Path returns the states left by successful calls followed by the last target.
func (r *Recorder) Path() []string {
	var path []string

	for _, e := range r.Entries() {
		if e.Error != nil {
			continue
		}

		if len(path) == 0 || path[len(path)-1] != e.From {
			path = append(path, e.From)
		}

		if e.To != statemachine.End {
			path = append(path, e.To)
		}
	}

	return path
}

// Reset drops all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
}

// AssertCalled checks the number of calls of a transition.
func (r *Recorder) AssertCalled(t *testing.T, transition string, times int) {
	t.Helper()

	require.Equal(t, times, r.Count(transition), "transition '%s' call count", transition)
}

// AssertTransitionTaken checks that a transition between two states succeeded.
func (r *Recorder) AssertTransitionTaken(t *testing.T, from, to string) {
	t.Helper()

	ok, err := TransitionWasTaken(from, to).Match(nil, r)
	require.True(t, ok, "transition from '%s' to '%s' should have been taken: %v", from, to, err)
}

// AssertStateVisited checks that a state was visited.
func (r *Recorder) AssertStateVisited(t *testing.T, state string) {
	t.Helper()

	require.Contains(t, r.Path(), state, "state '%s' should have been visited", state)
}
