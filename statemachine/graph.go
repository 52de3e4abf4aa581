package statemachine

import (
	"github.com/amp-labs/simulation/schedule"
)

// Graph is a type independent description of a built machine, used for
// visualization and structural validation.
type Graph struct {
	Name    string
	Initial string
	States  []StateInfo
}

// StateInfo describes one state of a Graph.
type StateInfo struct {
	Name        string
	Kind        string
	Transitions []TransitionInfo
}

// TransitionInfo describes one outgoing transition of a state.
type TransitionInfo struct {
	Name        string
	Target      string
	Weight      float64
	Weighted    bool
	DelayBefore schedule.ApproximateDuration
	DelayAfter  schedule.ApproximateDuration
}

// State looks up a state of the graph by name.
func (g Graph) State(name string) (StateInfo, bool) {
	for _, s := range g.States {
		if s.Name == name {
			return s, true
		}
	}

	return StateInfo{}, false
}

// Graph describes the registered states and transitions.
func (m *Statemachine[T]) Graph() Graph {
	graph := Graph{
		Name:    m.name,
		Initial: m.initial,
		States:  make([]StateInfo, 0, len(m.order)),
	}

	for _, state := range m.States() {
		graph.States = append(graph.States, describeState(state))
	}

	return graph
}

func describeState[T any](state State[T]) StateInfo {
	info := StateInfo{
		Name: state.Name(),
		Kind: KindCustom,
	}

	if k, ok := state.(interface{ Kind() string }); ok {
		info.Kind = k.Kind()
	}

	var weights []float64
	if w, ok := state.(interface{ Weights() []float64 }); ok {
		weights = w.Weights()
	}

	for i, t := range state.Transitions() {
		ti := TransitionInfo{
			Name:        t.Name(),
			Target:      t.Target(),
			DelayBefore: t.DelayBefore(),
			DelayAfter:  t.DelayAfter(),
		}

		if i < len(weights) {
			ti.Weight = weights[i]
			ti.Weighted = true
		}

		info.Transitions = append(info.Transitions, ti)
	}

	return info
}
