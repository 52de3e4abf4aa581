package testing

import (
	"errors"
	"fmt"

	"github.com/amp-labs/simulation/statemachine"
)

// Matcher errors.
var (
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrStatusMismatch     = errors.New("status mismatch")
	ErrErrorsMismatch     = errors.New("error count mismatch")
	ErrCallsMismatch      = errors.New("call count mismatch")
)

// Matcher defines an assertion matcher over a machine and its recorded calls.
type Matcher interface {
	Match(m statemachine.Machine, r *Recorder) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks if a state was visited.
func StateWasVisited(name string) Matcher {
	return &stateVisitedMatcher{stateName: name}
}

type stateVisitedMatcher struct {
	stateName string
}

func (m *stateVisitedMatcher) Match(_ statemachine.Machine, r *Recorder) (bool, error) {
	for _, state := range r.Path() {
		if state == m.stateName {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.stateName)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.stateName)
}

// TransitionWasTaken creates a matcher that checks a successful call from one state to another.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(_ statemachine.Machine, r *Recorder) (bool, error) {
	for _, e := range r.Entries() {
		if e.Error == nil && e.From == m.from && e.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// StatusIs creates a matcher on the final run status.
func StatusIs(status statemachine.Status) Matcher {
	return &statusMatcher{status: status}
}

type statusMatcher struct {
	status statemachine.Status
}

func (m *statusMatcher) Match(sm statemachine.Machine, _ *Recorder) (bool, error) {
	if sm.Status() == m.status {
		return true, nil
	}

	return false, fmt.Errorf("%w: expected %s, got %s", ErrStatusMismatch, m.status, sm.Status())
}

func (m *statusMatcher) Description() string {
	return fmt.Sprintf("status should be %s", m.status)
}

// ErrorsAre creates a matcher on the machine's error counter.
func ErrorsAre(count int) Matcher {
	return &errorsMatcher{count: count}
}

type errorsMatcher struct {
	count int
}

func (m *errorsMatcher) Match(sm statemachine.Machine, _ *Recorder) (bool, error) {
	if sm.Errors() == m.count {
		return true, nil
	}

	return false, fmt.Errorf("%w: expected %d, got %d", ErrErrorsMismatch, m.count, sm.Errors())
}

func (m *errorsMatcher) Description() string {
	return fmt.Sprintf("error counter should be %d", m.count)
}

// CalledTimes creates a matcher on the number of calls of a transition.
func CalledTimes(transition string, times int) Matcher {
	return &calledMatcher{transition: transition, times: times}
}

type calledMatcher struct {
	transition string
	times      int
}

func (m *calledMatcher) Match(_ statemachine.Machine, r *Recorder) (bool, error) {
	if got := r.Count(m.transition); got != m.times {
		return false, fmt.Errorf("%w: '%s' expected %d, got %d", ErrCallsMismatch, m.transition, m.times, got)
	}

	return true, nil
}

func (m *calledMatcher) Description() string {
	return fmt.Sprintf("transition '%s' should be called %d time(s)", m.transition, m.times)
}
