package statemachine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/simulation/schedule"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// Transition is a named edge that wraps one TransitionFunction and a target state.
// A transition with delays is what the simulation calls a timed transition: the
// delays are applied strictly before and after the function's effect.
type Transition[T any] struct {
	name        string
	fn          TransitionFunction[T]
	target      string
	delayBefore schedule.ApproximateDuration
	delayAfter  schedule.ApproximateDuration
	uniform     func() float64
}

// TransitionOption configures a Transition.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	delayBefore schedule.ApproximateDuration
	delayAfter  schedule.ApproximateDuration
	uniform     func() float64
}

// WithDelayBefore suspends the caller for d before the function is invoked.
func WithDelayBefore(d time.Duration) TransitionOption {
	return func(o *transitionOptions) {
		o.delayBefore = schedule.Exactly(d)
	}
}

// WithDelayAfter suspends the caller for d after the function returned successfully.
func WithDelayAfter(d time.Duration) TransitionOption {
	return func(o *transitionOptions) {
		o.delayAfter = schedule.Exactly(d)
	}
}

// WithApproximateDelayBefore draws the pre-delay from the given range on every execution.
func WithApproximateDelayBefore(d schedule.ApproximateDuration) TransitionOption {
	return func(o *transitionOptions) {
		o.delayBefore = d
	}
}

// WithApproximateDelayAfter draws the post-delay from the given range on every execution.
func WithApproximateDelayAfter(d schedule.ApproximateDuration) TransitionOption {
	return func(o *transitionOptions) {
		o.delayAfter = d
	}
}

// WithDelayRandom sets the uniform [0,1) source used for approximate delays.
func WithDelayRandom(uniform func() float64) TransitionOption {
	return func(o *transitionOptions) {
		o.uniform = uniform
	}
}

// NewTransition creates a transition. An End target terminates the run.
// Target names are not checked here, the run loop reports unknown targets.
func NewTransition[T any](
	name string,
	fn TransitionFunction[T],
	target string,
	opts ...TransitionOption,
) *Transition[T] {
	options := transitionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if fn == nil {
		fn = Noop[T]()
	}

	if options.uniform == nil {
		options.uniform = uniformFrom(nil)
	}

	return &Transition[T]{
		name:        name,
		fn:          fn,
		target:      target,
		delayBefore: options.delayBefore,
		delayAfter:  options.delayAfter,
		uniform:     options.uniform,
	}
}

// NewDelayedTransition creates a transition with fixed pre and post delays.
// Negative delays are rejected when the transition is added to a state.
func NewDelayedTransition[T any](
	name string,
	fn TransitionFunction[T],
	target string,
	before, after time.Duration,
) *Transition[T] {
	return NewTransition(name, fn, target, WithDelayBefore(before), WithDelayAfter(after))
}

// Name returns the transition name.
func (t *Transition[T]) Name() string {
	return t.name
}

// Target returns the target state name, End when the transition terminates the run.
func (t *Transition[T]) Target() string {
	return t.target
}

// DelayBefore returns the configured pre-delay range.
func (t *Transition[T]) DelayBefore() schedule.ApproximateDuration {
	return t.delayBefore
}

// DelayAfter returns the configured post-delay range.
func (t *Transition[T]) DelayAfter() schedule.ApproximateDuration {
	return t.delayAfter
}

// Validate checks that both delays are non-negative ranges. States validate
// their transitions on construction.
func (t *Transition[T]) Validate() error {
	if err := validateDelay("before", t.delayBefore); err != nil {
		return fmt.Errorf("transition %q: %w", t.name, err)
	}

	if err := validateDelay("after", t.delayAfter); err != nil {
		return fmt.Errorf("transition %q: %w", t.name, err)
	}

	return nil
}

func validateDelay(which string, d schedule.ApproximateDuration) error {
	if d.Min < 0 || d.Max < 0 {
		return fmt.Errorf("%w: delay %s is %s", ErrNegativeDelay, which, d.Min)
	}

	if err := d.Validate(); err != nil {
		return fmt.Errorf("delay %s: %w", which, err)
	}

	return nil
}

func (t *Transition[T]) String() string {
	target := t.target
	if target == End {
		target = "<end>"
	}

	return fmt.Sprintf("%s -> %s", t.name, target)
}

// Execute runs the transition function with the configured delays and returns the
// target state name.
//
// The logger handed to the function carries the transition execution id, the
// transition name, the current state and the target. A failing function yields a
// *TransitionExecutionError and the post-delay is skipped.
func (t *Transition[T]) Execute(
	ctx context.Context,
	log *slog.Logger,
	current string,
	smCtx *T,
) (string, error) {
	if log == nil {
		log = discardLogger()
	}

	log = log.With(
		"transition_id", uuid.New().String(),
		"transition", t.name,
		"current_state", current,
		"target", t.target,
	)

	_, span := startTransitionSpan(ctx, t.name, current, t.target)
	defer span.End()

	sleep(t.delayBefore.Value(t.uniform))

	err := t.invoke(log, current, smCtx)
	if err != nil {
		te := wrapTransitionError(t.name, current, err)

		span.RecordError(te)
		span.SetStatus(codes.Error, te.Error())

		return current, te
	}

	sleep(t.delayAfter.Value(t.uniform))

	span.SetStatus(codes.Ok, "completed")

	return t.target, nil
}

// invoke calls the transition function and converts a panic into an error so a
// misbehaving function is counted like any other failure.
func (t *Transition[T]) invoke(log *slog.Logger, current string, smCtx *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTransitionPanic, r)
		}
	}()

	return t.fn(log, current, smCtx, t.target)
}

// sleep blocks the calling goroutine, a zero or negative duration is a no-op.
func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
