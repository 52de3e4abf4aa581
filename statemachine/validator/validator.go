// Package validator lints built state machines for structural mistakes.
//
// The run loop never validates a machine up front, unknown states only surface
// when the loop tries to enter them. Validate reports them before a run.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/simulation/statemachine"
)

// ValidationResult contains the results of validating a state machine.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error with a fix suggestion.
type ValidationError struct {
	Code     string   // Error code like "UNKNOWN_TARGET", "UNKNOWN_INITIAL_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string   // Warning code
	Message  string   // Human-readable warning message
	Location Location // Where the warning occurred
}

// Location identifies where an issue occurred.
type Location struct {
	State      string // State name if applicable
	Transition string // Transition name if applicable
}

// Fix describes how to resolve an error.
type Fix struct {
	Description string
}

// Validate performs validation with the default rules.
func Validate(graph statemachine.Graph) ValidationResult {
	return ValidateWithRules(graph, DefaultRules())
}

// ValidateMachine validates a built machine.
func ValidateMachine(m statemachine.Machine) ValidationResult {
	return Validate(m.Graph())
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(graph statemachine.Graph, rules []Rule) ValidationResult {
	var result ValidationResult

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(graph)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(graph statemachine.Graph, rules []Rule) ValidationResult {
	result := ValidateWithRules(graph, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
		})
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ State machine is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ State machine has %d error(s)\n", len(r.Errors))
	}

	for _, err := range r.Errors {
		fmt.Fprintf(&sb, "  [%s] %s%s\n", err.Code, err.Message, err.Location)

		if err.Fix != nil {
			fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s%s\n", warn.Code, warn.Message, warn.Location)
		}
	}

	return sb.String()
}

func (l Location) String() string {
	switch {
	case l.State != "" && l.Transition != "":
		return fmt.Sprintf(" (state: %s, transition: %s)", l.State, l.Transition)
	case l.State != "":
		return fmt.Sprintf(" (state: %s)", l.State)
	default:
		return ""
	}
}
