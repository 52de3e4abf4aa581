// Package visualizer generates Mermaid state diagrams from built state machines.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/simulation/schedule"
	"github.com/amp-labs/simulation/statemachine"
)

// Visualizer errors.
var (
	ErrNoInitialState = errors.New("graph must have an initial state")
)

// GenerateMermaid converts a machine graph to a Mermaid state diagram.
func GenerateMermaid(graph statemachine.Graph) (string, error) {
	return GenerateMermaidWithOptions(graph, DefaultOptions())
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions(graph statemachine.Graph, opts Options) (string, error) {
	if graph.Initial == "" {
		return "", ErrNoInitialState
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	if graph.Name != "" {
		fmt.Fprintf(&sb, "---\ntitle: %s\n---\n", graph.Name)
	}

	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", graph.Initial)

	highlightMap := make(map[string]bool)
	for _, state := range opts.HighlightPath {
		highlightMap[state] = true
	}

	for _, state := range graph.States {
		switch {
		case highlightMap[state.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state.Name)
		case state.Kind == statemachine.KindFinal:
			fmt.Fprintf(&sb, "    class %s finalState\n", state.Name)
		case state.Kind == statemachine.KindProbabilistic || state.Kind == statemachine.KindAdaptive:
			fmt.Fprintf(&sb, "    class %s randomState\n", state.Name)
		case state.Kind == statemachine.KindChoice || state.Kind == statemachine.KindCustom:
			fmt.Fprintf(&sb, "    class %s decisionState\n", state.Name)
		}

		for _, transition := range state.Transitions {
			target := transition.Target
			if target == statemachine.End {
				target = "[*]"
			}

			fmt.Fprintf(&sb, "    %s --> %s%s\n", state.Name, target, edgeLabel(transition, opts))
		}

		if len(state.Transitions) == 0 {
			fmt.Fprintf(&sb, "    %s --> [*]\n", state.Name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef randomState fill:#e1f5ff,stroke:#01579b,stroke-width:2px\n")
	sb.WriteString("    classDef decisionState fill:#f3e5f5,stroke:#6a1b9a,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func edgeLabel(t statemachine.TransitionInfo, opts Options) string {
	var parts []string

	if opts.ShowTransitions {
		parts = append(parts, t.Name)
	}

	if opts.ShowWeights && t.Weighted {
		parts = append(parts, fmt.Sprintf("%.2f", t.Weight))
	}

	if opts.ShowDelays {
		if d := formatDelay(t.DelayBefore); d != "" {
			parts = append(parts, "before "+d)
		}

		if d := formatDelay(t.DelayAfter); d != "" {
			parts = append(parts, "after "+d)
		}
	}

	if len(parts) == 0 {
		return ""
	}

	return ": " + strings.Join(parts, " ")
}

func formatDelay(d schedule.ApproximateDuration) string {
	switch {
	case d.Max <= 0:
		return ""
	case d.Min == d.Max:
		return d.Min.String()
	default:
		return d.Min.String() + "~" + d.Max.String()
	}
}
