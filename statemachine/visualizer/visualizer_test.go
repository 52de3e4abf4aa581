package visualizer

import (
	"strings"
	"testing"
	"time"

	"github.com/amp-labs/simulation/schedule"
	"github.com/amp-labs/simulation/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func travelGraph() statemachine.Graph {
	return statemachine.Graph{
		Name:    "traveler",
		Initial: "selecting_destination",
		States: []statemachine.StateInfo{
			{
				Name: "selecting_destination",
				Kind: statemachine.KindSequential,
				Transitions: []statemachine.TransitionInfo{
					{Name: "select_destination", Target: "selected_destination"},
				},
			},
			{
				Name: "selected_destination",
				Kind: statemachine.KindProbabilistic,
				Transitions: []statemachine.TransitionInfo{
					{Name: "bus", Target: "arrived", Weight: 0.4, Weighted: true},
					{
						Name: "train", Target: "arrived", Weight: 0.6, Weighted: true,
						DelayBefore: schedule.Exactly(time.Second),
						DelayAfter:  schedule.ApproximateDuration{Min: time.Second, Max: 3 * time.Second},
					},
				},
			},
			{
				Name: "arrived",
				Kind: statemachine.KindCustom,
				Transitions: []statemachine.TransitionInfo{
					{Name: "go_home", Target: statemachine.End},
					{Name: "again", Target: "selecting_destination"},
				},
			},
			{Name: "home", Kind: statemachine.KindFinal},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		graph          statemachine.Graph
		opts           Options
		wantErr        bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name:  "defaults",
			graph: travelGraph(),
			opts:  DefaultOptions(),
			wantContain: []string{
				"```mermaid",
				"title: traveler",
				"stateDiagram-v2",
				"direction TD",
				"[*] --> selecting_destination",
				"selecting_destination --> selected_destination: select_destination",
				"selected_destination --> arrived: bus 0.40",
				"selected_destination --> arrived: train 0.60",
				"arrived --> [*]: go_home",
				"home --> [*]",
				"class home finalState",
				"class selected_destination randomState",
				"class arrived decisionState",
			},
			wantNotContain: []string{"before 1s"},
		},
		{
			name:  "delays without names",
			graph: travelGraph(),
			opts: DefaultOptions().WithShowTransitions(false).WithShowWeights(false).
				WithShowDelays(true).WithDirection("LR").WithFenced(false),
			wantContain: []string{
				"direction LR",
				"selected_destination --> arrived: before 1s after 1s~3s",
				"selected_destination --> arrived\n",
			},
			wantNotContain: []string{"```", "0.40"},
		},
		{
			name:        "highlight",
			graph:       travelGraph(),
			opts:        DefaultOptions().WithHighlightPath([]string{"home"}),
			wantContain: []string{"class home highlighted"},
		},
		{
			name:    "missing initial state",
			graph:   statemachine.Graph{},
			opts:    DefaultOptions(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := GenerateMermaidWithOptions(tt.graph, tt.opts)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoInitialState)

				return
			}

			require.NoError(t, err)

			for _, want := range tt.wantContain {
				assert.Contains(t, result, want)
			}

			for _, unwanted := range tt.wantNotContain {
				assert.NotContains(t, result, unwanted)
			}
		})
	}
}

func TestGenerateMermaidFromMachine(t *testing.T) {
	t.Parallel()

	final, err := statemachine.NewFinalState[statemachine.MapContext]("done")
	require.NoError(t, err)

	start, err := statemachine.NewSequentialState("start",
		statemachine.NewTransition[statemachine.MapContext]("finish", nil, "done"))
	require.NoError(t, err)

	sm, err := statemachine.New("start", []statemachine.State[statemachine.MapContext]{start, final})
	require.NoError(t, err)

	result, err := GenerateMermaid(sm.Graph())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result, "```mermaid\nstateDiagram-v2"))
	assert.Contains(t, result, "start --> done: finish")
	assert.Contains(t, result, "done --> [*]")
}
