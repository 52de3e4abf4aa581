package testing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/amp-labs/simulation/runner"
	"github.com/amp-labs/simulation/statemachine"
	"github.com/neilotoole/slogt"
	"go.uber.org/atomic"
)

// ErrInjected is returned by the failing fixtures unless another error is given.
var ErrInjected = errors.New("injected failure")

// Failing returns a transition function that always fails with err.
func Failing[T any](err error) statemachine.TransitionFunction[T] {
	if err == nil {
		err = ErrInjected
	}

	return func(*slog.Logger, string, *T, string) error {
		return err
	}
}

// FailingTimes returns a transition function that fails the first n calls and
// succeeds afterwards.
func FailingTimes[T any](n int, err error) statemachine.TransitionFunction[T] {
	if err == nil {
		err = ErrInjected
	}

	calls := atomic.NewInt64(0)

	return func(*slog.Logger, string, *T, string) error {
		if calls.Inc() <= int64(n) {
			return fmt.Errorf("call %d: %w", calls.Load(), err)
		}

		return nil
	}
}

// Panicking returns a transition function that panics with v.
func Panicking[T any](v any) statemachine.TransitionFunction[T] {
	return func(*slog.Logger, string, *T, string) error {
		panic(v)
	}
}

// Mutating returns a transition function that applies mutate to the context.
func Mutating[T any](mutate func(smCtx *T)) statemachine.TransitionFunction[T] {
	return func(_ *slog.Logger, _ string, smCtx *T, _ string) error {
		mutate(smCtx)

		return nil
	}
}

// Logger returns a logger writing to the test log.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()

	return slogt.New(t)
}

// Drive steps a machine like a host process does, see runner.Drive.
func Drive(ctx context.Context, m statemachine.Machine) error {
	return runner.Drive(ctx, m)
}
