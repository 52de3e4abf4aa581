//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/simulation/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a graph for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(graph statemachine.Graph) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unknownInitialStateRule{},
		&unknownTargetRule{},
		&unreachableStateRule{},
		&noTerminationRule{},
		&duplicateTransitionRule{},
		&namingConventionRule{},
	}
}

// unknownInitialStateRule checks that the initial state is registered.
type unknownInitialStateRule struct{}

func (r *unknownInitialStateRule) Name() string {
	return "UnknownInitialState"
}

func (r *unknownInitialStateRule) Severity() Severity {
	return SeverityError
}

func (r *unknownInitialStateRule) Check(graph statemachine.Graph) RuleResult {
	if _, ok := graph.State(graph.Initial); ok {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "UNKNOWN_INITIAL_STATE",
		Message:  fmt.Sprintf("Initial state '%s' is not registered", graph.Initial),
		Location: Location{State: graph.Initial},
		Fix:      &Fix{Description: fmt.Sprintf("Register a state named '%s' or change the initial state", graph.Initial)},
	}}}
}

// unknownTargetRule checks that every transition targets a registered state or the end of the run.
type unknownTargetRule struct{}

func (r *unknownTargetRule) Name() string {
	return "UnknownTarget"
}

func (r *unknownTargetRule) Severity() Severity {
	return SeverityError
}

func (r *unknownTargetRule) Check(graph statemachine.Graph) RuleResult {
	var errors []ValidationError

	for _, state := range graph.States {
		for _, t := range state.Transitions {
			if t.Target == statemachine.End {
				continue
			}

			if _, ok := graph.State(t.Target); !ok {
				errors = append(errors, ValidationError{
					Code:     "UNKNOWN_TARGET",
					Message:  fmt.Sprintf("Transition '%s' targets unknown state '%s'", t.Name, t.Target),
					Location: Location{State: state.Name, Transition: t.Name},
					Fix:      &Fix{Description: fmt.Sprintf("Register a state named '%s' or retarget the transition", t.Target)},
				})
			}
		}
	}

	return RuleResult{Errors: errors}
}

// unreachableStateRule checks for states that cannot be reached from the initial state.
// Fallback states are only entered after failures, so this is a warning.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unreachableStateRule) Check(graph statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	reachable := reachableStates(graph)

	for _, state := range graph.States {
		if !reachable[state.Name] {
			warnings = append(warnings, ValidationWarning{
				Code:     "UNREACHABLE_STATE",
				Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state.Name, graph.Initial),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// noTerminationRule warns when no run starting at the initial state can ever end
// on its own. Such machines only stop at their end time or on errors.
type noTerminationRule struct{}

func (r *noTerminationRule) Name() string {
	return "NoTermination"
}

func (r *noTerminationRule) Severity() Severity {
	return SeverityWarning
}

func (r *noTerminationRule) Check(graph statemachine.Graph) RuleResult {
	reachable := reachableStates(graph)

	for _, state := range graph.States {
		if !reachable[state.Name] {
			continue
		}

		if len(state.Transitions) == 0 {
			return RuleResult{}
		}

		for _, t := range state.Transitions {
			if t.Target == statemachine.End {
				return RuleResult{}
			}
		}
	}

	return RuleResult{Warnings: []ValidationWarning{{
		Code:    "NO_TERMINATION",
		Message: "No final state or ending transition is reachable, the machine runs until its end time",
	}}}
}

// duplicateTransitionRule checks that transition names are unique across the machine.
// Transition names identify executions in logs and traces.
type duplicateTransitionRule struct{}

func (r *duplicateTransitionRule) Name() string {
	return "DuplicateTransition"
}

func (r *duplicateTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *duplicateTransitionRule) Check(graph statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	owners := make(map[string]string)

	for _, state := range graph.States {
		for _, t := range state.Transitions {
			owner, seen := owners[t.Name]
			if seen && owner != state.Name {
				warnings = append(warnings, ValidationWarning{
					Code:     "DUPLICATE_TRANSITION",
					Message:  fmt.Sprintf("Transition name '%s' is also used by state '%s'", t.Name, owner),
					Location: Location{State: state.Name, Transition: t.Name},
				})

				continue
			}

			owners[t.Name] = state.Name
		}
	}

	return RuleResult{Warnings: warnings}
}

// namingConventionRule checks that state and transition names use snake_case.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string {
	return "NamingConvention"
}

func (r *namingConventionRule) Severity() Severity {
	return SeverityWarning
}

func (r *namingConventionRule) Check(graph statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	for _, state := range graph.States {
		if !isSnakeCase(state.Name) {
			warnings = append(warnings, ValidationWarning{
				Code:     "NAMING_CONVENTION",
				Message:  fmt.Sprintf("State name '%s' should use snake_case (suggested: '%s')", state.Name, toSnakeCase(state.Name)),
				Location: Location{State: state.Name},
			})
		}

		for _, t := range state.Transitions {
			if !isSnakeCase(t.Name) {
				warnings = append(warnings, ValidationWarning{
					Code:     "NAMING_CONVENTION",
					Message:  fmt.Sprintf("Transition name '%s' should use snake_case (suggested: '%s')", t.Name, toSnakeCase(t.Name)),
					Location: Location{State: state.Name, Transition: t.Name},
				})
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

// reachableStates finds all states reachable from the initial state using BFS.
func reachableStates(graph statemachine.Graph) map[string]bool {
	reachable := map[string]bool{graph.Initial: true}

	queue := []string{graph.Initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		state, ok := graph.State(current)
		if !ok {
			continue
		}

		for _, t := range state.Transitions {
			if t.Target != statemachine.End && !reachable[t.Target] {
				reachable[t.Target] = true
				queue = append(queue, t.Target)
			}
		}
	}

	return reachable
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}

	return true
}

func toSnakeCase(s string) string {
	var sb strings.Builder

	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				sb.WriteRune('_')
			}

			sb.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ' || r == '.':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
