package statemachine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trail(step string, inc int) TransitionFunction[counterContext] {
	return func(_ *slog.Logger, _ string, smCtx *counterContext, _ string) error {
		smCtx.Trail = append(smCtx.Trail, step)
		smCtx.Value += inc

		return nil
	}
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	var destroyed *counterContext

	sm, err := NewBuilder[counterContext]("counter").
		WithOptions(WithLogger(slogt.New(t)), WithMaxErrors(1)).
		WithSetup(func(context.Context, *slog.Logger) (*counterContext, error) {
			return &counterContext{Trail: []string{"setup"}}, nil
		}).
		WithDestroy(func(_ context.Context, _ *slog.Logger, smCtx *counterContext) error {
			smCtx.Closed = true
			destroyed = smCtx

			return nil
		}).
		RoundRobin("tick", []*Transition[counterContext]{
			Build(trail("left", 1), "left", "decide"),
			Build(trail("right", 1), "right", "decide"),
		}).
		Choice("decide",
			func(_ *slog.Logger, smCtx *counterContext) bool { return smCtx.Value >= 2 },
			Build(trail("stop", 0), "stop", End),
			Build(trail("again", 0), "again", "tick"),
		).
		Final("unused").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "counter", sm.Name())
	assert.Equal(t, "tick", sm.InitialState())
	assert.Equal(t, 1, sm.MaxErrors())

	require.NoError(t, sm.Run(t.Context()))

	assert.Equal(t, StatusFinished, sm.Status())
	require.NotNil(t, destroyed)
	assert.True(t, destroyed.Closed)
	assert.Equal(t, []string{"setup", "left", "again", "right", "stop"}, destroyed.Trail)
}

func TestBuilderKeepsFirstError(t *testing.T) {
	t.Parallel()

	noop := trail("noop", 0)

	_, err := NewBuilder[counterContext]("broken").
		Probabilistic("odds", []*Transition[counterContext]{Build(noop, "a", End)}, []float64{0.5}).
		Sequential("", nil).
		Build()
	require.ErrorIs(t, err, ErrInvalidWeights)
}
