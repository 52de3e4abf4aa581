package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/simulation/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBuild = errors.New("build failed")

// runsTotal reads simulation_runs_total from the default registry.
func runsTotal(t *testing.T, machine, outcome string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "simulation_runs_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			if labels["machine"] == machine && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}

type tally struct {
	Steps int
}

func counting(t *testing.T, name string, steps int) *statemachine.Statemachine[tally] {
	t.Helper()

	tr := statemachine.NewTransition(
		"tick",
		func(_ *slog.Logger, _ string, ctx *tally, _ string) error {
			ctx.Steps++

			return nil
		},
		"count",
	)

	decide := func(_ *slog.Logger, ctx *tally) bool { return ctx.Steps < steps }

	sm, err := statemachine.NewBuilder[tally](name).
		Choice("count", decide, tr, statemachine.NewTransition[tally]("stop", nil, statemachine.End)).
		Build()
	require.NoError(t, err)

	return sm
}

func looping(t *testing.T, name string) *statemachine.Statemachine[tally] {
	t.Helper()

	tr := statemachine.NewTransition[tally]("again", nil, "loop", statemachine.WithDelayAfter(time.Millisecond))

	sm, err := statemachine.NewBuilder[tally](name).Sequential("loop", tr).Build()
	require.NoError(t, err)

	return sm
}

func TestDriveFinishes(t *testing.T) {
	t.Parallel()

	sm := counting(t, "drive_finishes", 3)
	sm.SetLogger(slogt.New(t))

	require.NoError(t, Drive(t.Context(), sm))
	assert.Equal(t, statemachine.StatusFinished, sm.Status())
	assert.Equal(t, 3, sm.Context().Steps)
}

func TestDriveStopsOnCancel(t *testing.T) {
	t.Parallel()

	sm := looping(t, "drive_cancel")
	sm.SetLogger(slogt.New(t))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, Drive(ctx, sm))
	assert.Equal(t, statemachine.StatusRunning, sm.Status())
	assert.InDelta(t, 1, runsTotal(t, "drive_cancel", "canceled"), 0)
	assert.Zero(t, runsTotal(t, "drive_cancel", "success"))
}

func TestDriveDestroysOnFatal(t *testing.T) {
	t.Parallel()

	destroyed := false

	fail := func(*slog.Logger, string, *tally, string) error { return errBuild }

	sm, err := statemachine.NewBuilder[tally]("drive_fatal").
		WithOptions(statemachine.WithMaxErrors(0)).
		WithDestroy(func(context.Context, *slog.Logger, *tally) error {
			destroyed = true

			return nil
		}).
		Sequential("start", statemachine.NewTransition("fail", fail, statemachine.End)).
		Build()
	require.NoError(t, err)

	err = Drive(t.Context(), sm)
	require.ErrorIs(t, err, errBuild)
	assert.True(t, destroyed)
	assert.Equal(t, statemachine.StatusFatal, sm.Status())
	assert.InDelta(t, 1, runsTotal(t, "drive_fatal", "fatal"), 0)
}

func TestRunInstances(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		built []int
	)

	build := func(instance int) (statemachine.Machine, error) {
		mu.Lock()
		built = append(built, instance)
		mu.Unlock()

		if instance == 2 {
			return nil, errBuild
		}

		return counting(t, "run_instances", instance+1), nil
	}

	stats := &Stats{}

	results, err := RunInstances(t.Context(), build, Options{
		Instances:   4,
		Concurrency: 2,
		Logger:      slogt.New(t),
	}, stats)
	require.ErrorIs(t, err, errBuild)
	require.Len(t, results, 4)

	assert.Len(t, built, 4)

	for i, r := range results {
		assert.Equal(t, i, r.Instance)

		if i == 2 {
			assert.Equal(t, statemachine.StatusFatal, r.Status)
			require.ErrorIs(t, r.Err, errBuild)

			continue
		}

		require.NoError(t, r.Err)
		assert.Equal(t, statemachine.StatusFinished, r.Status)
		assert.Equal(t, "run_instances", r.Machine)
		assert.Equal(t, "count", r.State)
		assert.NotEmpty(t, r.RunID)
	}

	assert.Equal(t, int64(3), stats.Finished.Load())
	assert.Equal(t, int64(1), stats.Fatal.Load())
	assert.Zero(t, stats.Running.Load())
	assert.InDelta(t, 3, runsTotal(t, "run_instances", "success"), 0)
}

func TestDriveIsSingleUse(t *testing.T) {
	t.Parallel()

	sm := counting(t, "drive_single_use", 1)
	sm.SetLogger(slogt.New(t))

	require.NoError(t, Drive(t.Context(), sm))
	require.ErrorIs(t, Drive(t.Context(), sm), statemachine.ErrMachineStopped)
	require.ErrorIs(t, sm.Run(t.Context()), statemachine.ErrMachineStopped)
	assert.InDelta(t, 1, runsTotal(t, "drive_single_use", "success"), 0)
}

func TestRunInstancesRequiresOne(t *testing.T) {
	t.Parallel()

	_, err := RunInstances(t.Context(), nil, Options{}, nil)
	require.ErrorIs(t, err, ErrNoInstances)
}
