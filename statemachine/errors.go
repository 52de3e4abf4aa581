package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrUnknownState indicates a lookup of a state name that is not registered with the machine.
	ErrUnknownState = errors.New("unknown state")
	// ErrInvalidWeights indicates that the weights of a probabilistic state are not a valid distribution.
	ErrInvalidWeights = errors.New("invalid transition weights")
	// ErrStateNameRequired indicates that a state was constructed without a name.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that two states of a machine share a name.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrTransitionRequired indicates that a state requiring a transition got none.
	ErrTransitionRequired = errors.New("transition is required")
	// ErrDuplicateTransitionName indicates that two transitions of a state share a name.
	ErrDuplicateTransitionName = errors.New("duplicate transition name")
	// ErrNegativeDelay indicates a transition configured with a negative delay.
	ErrNegativeDelay = errors.New("transition delay must not be negative")
	// ErrTransitionFailed is the sentinel matched by every TransitionExecutionError.
	ErrTransitionFailed = errors.New("transition execution failed")
	// ErrTransitionPanic indicates that a transition function panicked.
	ErrTransitionPanic = errors.New("transition function panicked")
	// ErrContextNotReady indicates a step on a machine whose context was not set up.
	ErrContextNotReady = errors.New("context not set up")
	// ErrMachineStopped indicates a step or run on a machine that already terminated.
	ErrMachineStopped = errors.New("state machine already stopped")
	// ErrNegativeMaxErrors indicates a negative error ceiling.
	ErrNegativeMaxErrors = errors.New("max errors must not be negative")

	// ErrFactoryNameRequired indicates a registration without a factory name.
	ErrFactoryNameRequired = errors.New("factory name is required")
	// ErrDuplicateFactory indicates that a factory name is already registered.
	ErrDuplicateFactory = errors.New("factory already registered")
	// ErrFactoryNotFound indicates a lookup of an unregistered factory.
	ErrFactoryNotFound = errors.New("factory not found")
	// ErrInvalidConfig indicates that a configuration document does not fit the factory.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrWrongConfigType indicates that Build received a config of an unexpected type.
	ErrWrongConfigType = errors.New("wrong config type")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %q: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// TransitionExecutionError is raised when a transition function fails.
//
// The run loop counts these against its error ceiling. Fallback optionally names
// the state the loop should recover into, empty means retry from the same state.
type TransitionExecutionError struct {
	Transition string
	State      string
	Fallback   string
	Cause      error
}

func (e *TransitionExecutionError) Error() string {
	msg := fmt.Sprintf("transition %q from state %q failed", e.Transition, e.State)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *TransitionExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches ErrTransitionFailed so callers don't need errors.As for the common check.
func (e *TransitionExecutionError) Is(target error) bool {
	return target == ErrTransitionFailed
}

// Fallback returns an error a transition function can use to ask the run loop to
// recover into the given state instead of retrying the current one.
func Fallback(state string, cause error) error {
	return &TransitionExecutionError{
		Fallback: state,
		Cause:    cause,
	}
}

// wrapTransitionError turns the error returned by a transition function into a
// TransitionExecutionError, keeping a requested fallback state.
func wrapTransitionError(transition, state string, err error) *TransitionExecutionError {
	var te *TransitionExecutionError
	if errors.As(err, &te) {
		wrapped := *te
		wrapped.Transition = transition
		wrapped.State = state

		return &wrapped
	}

	return &TransitionExecutionError{
		Transition: transition,
		State:      state,
		Cause:      err,
	}
}
