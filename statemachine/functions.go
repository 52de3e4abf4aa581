package statemachine

import (
	"fmt"
	"log/slog"
)

// Noop returns a transition function that does nothing and always succeeds.
func Noop[T any]() TransitionFunction[T] {
	return func(*slog.Logger, string, *T, string) error {
		return nil
	}
}

// Sequence returns a transition function that calls fns in order and stops at the
// first failure. Every function observes the context mutations of its predecessors.
func Sequence[T any](fns ...TransitionFunction[T]) TransitionFunction[T] {
	return func(log *slog.Logger, current string, smCtx *T, target string) error {
		for i, fn := range fns {
			if err := fn(log, current, smCtx, target); err != nil {
				return fmt.Errorf("sequence step %d failed: %w", i, err)
			}
		}

		return nil
	}
}

// Conditional calls thenFn when cond holds and elseFn otherwise (elseFn may be nil).
func Conditional[T any](
	cond func(log *slog.Logger, smCtx *T) bool,
	thenFn, elseFn TransitionFunction[T],
) TransitionFunction[T] {
	return func(log *slog.Logger, current string, smCtx *T, target string) error {
		if cond(log, smCtx) {
			return thenFn(log, current, smCtx, target)
		}

		if elseFn != nil {
			return elseFn(log, current, smCtx, target)
		}

		return nil
	}
}
