package testing

import (
	"context"
	"testing"

	"github.com/amp-labs/simulation/statemachine"
	"github.com/stretchr/testify/require"
)

// TestScenario describes one run of a machine and its expected outcome.
type TestScenario struct {
	Name string
	// Build creates the machine, recording its transition calls into r.
	Build    func(t *testing.T, r *Recorder) statemachine.Machine
	WantErr  error
	Matchers []Matcher
}

// RunScenario runs the machine of a scenario and checks all matchers.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		recorder := NewRecorder()
		machine := scenario.Build(t, recorder)
		machine.SetLogger(Logger(t))

		err := machine.Run(context.Background())
		if scenario.WantErr != nil {
			require.ErrorIs(t, err, scenario.WantErr)
		} else {
			require.NoError(t, err)
		}

		for _, matcher := range scenario.Matchers {
			ok, err := matcher.Match(machine, recorder)
			if !ok {
				t.Errorf("Assertion failed: %s - %v", matcher.Description(), err)
			}
		}
	})
}
