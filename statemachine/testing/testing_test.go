package testing

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/simulation/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visits struct {
	Count int
}

func sequential(t *testing.T, name string, tr *statemachine.Transition[visits]) statemachine.State[visits] {
	t.Helper()

	state, err := statemachine.NewSequentialState(name, tr)
	require.NoError(t, err)

	return state
}

func TestRecorderPath(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()
	inc := Mutating(func(v *visits) { v.Count++ })

	machine, err := statemachine.New("start", []statemachine.State[visits]{
		sequential(t, "start", Transition(rec, "go", inc, "middle")),
		sequential(t, "middle", Transition(rec, "stop", inc, statemachine.End)),
	}, statemachine.WithLogger(Logger(t)))
	require.NoError(t, err)

	require.NoError(t, machine.Run(context.Background()))

	assert.Equal(t, []string{"start", "middle"}, rec.Path())
	assert.Equal(t, 2, machine.Context().Count)
	rec.AssertCalled(t, "go", 1)
	rec.AssertTransitionTaken(t, "start", "middle")
	rec.AssertStateVisited(t, "middle")

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, statemachine.End, entries[1].To)

	rec.Reset()
	assert.Empty(t, rec.Entries())
}

func TestFailingTimes(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()

	machine, err := statemachine.New("start", []statemachine.State[visits]{
		sequential(t, "start", Transition(rec, "flaky", FailingTimes[visits](2, nil), statemachine.End)),
	}, statemachine.WithMaxErrors(5), statemachine.WithLogger(Logger(t)))
	require.NoError(t, err)

	require.NoError(t, machine.Run(context.Background()))

	assert.Equal(t, 3, rec.Count("flaky"))
	assert.Equal(t, 2, rec.Failures())
	assert.Equal(t, 2, machine.Errors())
	assert.ErrorIs(t, rec.Entries()[0].Error, ErrInjected)
}

func TestDriveStopsOnCancel(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()

	machine, err := statemachine.New("loop", []statemachine.State[visits]{
		sequential(t, "loop", Transition(rec, "again", Mutating(func(v *visits) { v.Count++ }), "loop",
			statemachine.WithDelayAfter(time.Millisecond))),
	}, statemachine.WithLogger(Logger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, Drive(ctx, machine))

	assert.Positive(t, rec.Count("again"))
	assert.Equal(t, statemachine.StatusRunning, machine.Status())
}

func TestDriveFatal(t *testing.T) {
	t.Parallel()

	machine, err := statemachine.New("start", []statemachine.State[visits]{
		sequential(t, "start", statemachine.NewTransition("boom", Panicking[visits]("boom"), statemachine.End)),
	}, statemachine.WithMaxErrors(0), statemachine.WithLogger(Logger(t)))
	require.NoError(t, err)

	err = Drive(context.Background(), machine)
	require.ErrorIs(t, err, statemachine.ErrTransitionPanic)
	assert.Equal(t, statemachine.StatusFatal, machine.Status())
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	rec := NewRecorder()

	machine, err := statemachine.New("start", []statemachine.State[visits]{
		sequential(t, "start", Transition(rec, "finish", statemachine.Noop[visits](), statemachine.End)),
	}, statemachine.WithLogger(Logger(t)))
	require.NoError(t, err)
	require.NoError(t, machine.Run(context.Background()))

	ok, err := StateWasVisited("start").Match(machine, rec)
	assert.True(t, ok)
	require.NoError(t, err)

	ok, err = StateWasVisited("elsewhere").Match(machine, rec)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrStateNotVisited)

	ok, err = TransitionWasTaken("start", "other").Match(machine, rec)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrTransitionNotTaken)

	ok, err = StatusIs(statemachine.StatusFatal).Match(machine, rec)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrStatusMismatch)

	ok, err = ErrorsAre(1).Match(machine, rec)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrErrorsMismatch)

	ok, err = CalledTimes("finish", 2).Match(machine, rec)
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrCallsMismatch)

	assert.Equal(t, "state 'start' should be visited", StateWasVisited("start").Description())
}

func TestScenarios(t *testing.T) {
	t.Parallel()

	RunScenario(t, TestScenario{
		Name: "retries until success",
		Build: func(t *testing.T, r *Recorder) statemachine.Machine {
			t.Helper()

			machine, err := statemachine.New("start", []statemachine.State[visits]{
				sequential(t, "start", Transition(r, "flaky", FailingTimes[visits](1, nil), "done")),
				sequential(t, "done", Transition(r, "stop", statemachine.Noop[visits](), statemachine.End)),
			}, statemachine.WithMaxErrors(1))
			require.NoError(t, err)

			return machine
		},
		Matchers: []Matcher{
			StatusIs(statemachine.StatusFinished),
			ErrorsAre(1),
			CalledTimes("flaky", 2),
			TransitionWasTaken("start", "done"),
			StateWasVisited("done"),
		},
	})

	RunScenario(t, TestScenario{
		Name: "fatal after error ceiling",
		Build: func(t *testing.T, r *Recorder) statemachine.Machine {
			t.Helper()

			machine, err := statemachine.New("start", []statemachine.State[visits]{
				sequential(t, "start", Transition(r, "broken", Failing[visits](nil), statemachine.End)),
			}, statemachine.WithMaxErrors(2))
			require.NoError(t, err)

			return machine
		},
		WantErr: ErrInjected,
		Matchers: []Matcher{
			StatusIs(statemachine.StatusFatal),
			ErrorsAre(3),
			CalledTimes("broken", 3),
		},
	})
}
