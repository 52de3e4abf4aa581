// Package statemachine provides the execution engine for simulated actors.
//
// An actor is described as a finite-state machine. Every State selects one of its
// outgoing Transitions, every Transition executes a TransitionFunction that performs
// an effect (the simulated human or attacker action) and the Statemachine drives the
// loop until a final state is reached or the error ceiling is exhausted.
package statemachine

import (
	"log/slog"
)

// End is the target of a transition that terminates the run.
const End = ""

// TransitionFunction performs the effect of a transition.
//
// It receives the logger bound to the current transition execution, the name of the
// state the machine is leaving, the shared context and the name of the target state
// (End when the transition terminates the run). Stateful functions are ordinary values
// whose method value has this signature, the engine never distinguishes the two.
type TransitionFunction[T any] func(log *slog.Logger, current string, smCtx *T, target string) error

// State represents a single node of the state machine.
type State[T any] interface {
	// Name returns the unique name of the state.
	Name() string
	// Transitions returns all transitions that can originate from this state.
	Transitions() []*Transition[T]
	// Next selects the transition to execute, nil means the run ends.
	Next(log *slog.Logger, smCtx *T) *Transition[T]
}

// Status is the execution state of the run loop itself.
type Status int

const (
	// StatusReady means the machine was built but no step was executed yet.
	StatusReady Status = iota
	// StatusRunning means the machine is stepping.
	StatusRunning
	// StatusFinished means the run ended normally.
	StatusFinished
	// StatusFatal means the run ended with a fatal error.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Done reports whether the run loop reached a terminal status.
func (s Status) Done() bool {
	return s == StatusFinished || s == StatusFatal
}
