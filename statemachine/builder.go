package statemachine

import (
	"log/slog"
)

// Build wraps a transition function into a named transition.
func Build[T any](fn TransitionFunction[T], name, target string, opts ...TransitionOption) *Transition[T] {
	return NewTransition(name, fn, target, opts...)
}

// Builder provides a fluent API for constructing state machines. The first
// construction error is kept and returned by Build.
type Builder[T any] struct {
	name    string
	initial string
	states  []State[T]
	opts    []Option
	setup   SetupFunc[T]
	destroy DestroyFunc[T]
	err     error
}

// NewBuilder creates a new state machine builder.
func NewBuilder[T any](name string) *Builder[T] {
	return &Builder[T]{name: name}
}

// WithInitialState sets the initial state, the first added state by default.
func (b *Builder[T]) WithInitialState(state string) *Builder[T] {
	b.initial = state

	return b
}

// WithOptions appends machine options.
func (b *Builder[T]) WithOptions(opts ...Option) *Builder[T] {
	b.opts = append(b.opts, opts...)

	return b
}

// WithSetup sets the context setup function.
func (b *Builder[T]) WithSetup(setup SetupFunc[T]) *Builder[T] {
	b.setup = setup

	return b
}

// WithDestroy sets the context teardown function.
func (b *Builder[T]) WithDestroy(destroy DestroyFunc[T]) *Builder[T] {
	b.destroy = destroy

	return b
}

// AddState adds an already constructed state.
func (b *Builder[T]) AddState(state State[T]) *Builder[T] {
	if b.initial == "" && state != nil {
		b.initial = state.Name()
	}

	b.states = append(b.states, state)

	return b
}

func (b *Builder[T]) add(state State[T], err error) *Builder[T] {
	if err != nil {
		if b.err == nil {
			b.err = err
		}

		return b
	}

	return b.AddState(state)
}

// Sequential adds a state that always takes transition.
func (b *Builder[T]) Sequential(name string, transition *Transition[T], opts ...StateOption) *Builder[T] {
	return b.add(NewSequentialState(name, transition, opts...))
}

// Final adds a final state.
func (b *Builder[T]) Final(name string, opts ...StateOption) *Builder[T] {
	return b.add(NewFinalState[T](name, opts...))
}

// Probabilistic adds a weighted random state.
func (b *Builder[T]) Probabilistic(
	name string,
	transitions []*Transition[T],
	weights []float64,
	opts ...StateOption,
) *Builder[T] {
	return b.add(NewProbabilisticState(name, transitions, weights, opts...))
}

// EquallyRandom adds a uniformly random state.
func (b *Builder[T]) EquallyRandom(name string, transitions []*Transition[T], opts ...StateOption) *Builder[T] {
	return b.add(NewEquallyRandomState(name, transitions, opts...))
}

// RoundRobin adds a state cycling through its transitions.
func (b *Builder[T]) RoundRobin(name string, transitions []*Transition[T], opts ...StateOption) *Builder[T] {
	return b.add(NewRoundRobinState(name, transitions, opts...))
}

// Choice adds a yes/no decision state.
func (b *Builder[T]) Choice(
	name string,
	decide func(log *slog.Logger, smCtx *T) bool,
	yes, no *Transition[T],
	opts ...StateOption,
) *Builder[T] {
	return b.add(NewChoiceState(name, decide, yes, no, opts...))
}

// Build constructs the state machine.
func (b *Builder[T]) Build() (*Statemachine[T], error) {
	if b.err != nil {
		return nil, b.err
	}

	opts := append([]Option{WithName(b.name)}, b.opts...)

	sm, err := New(b.initial, b.states, opts...)
	if err != nil {
		return nil, err
	}

	sm.SetSetup(b.setup)
	sm.SetDestroy(b.destroy)

	return sm, nil
}
