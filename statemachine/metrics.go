package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome labels.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeFatal    = "fatal"
	outcomeCanceled = "canceled"
)

// Metric definitions with appropriate labels.
var (
	// transitionsTotal counts transition executions by machine, transition and outcome.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_transitions_total",
		Help: "Total number of transition executions by machine, transition and outcome (success or error)",
	}, []string{"machine", "transition", "outcome"})

	// transitionDuration tracks transition execution time including delays.
	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_transition_duration_seconds",
		Help:    "Duration of transition execution by machine and transition, including delays",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}, []string{"machine", "transition"})

	// transitionErrorsTotal counts failed transitions by the state they were attempted from.
	transitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_transition_errors_total",
		Help: "Total number of failed transition executions by machine and state",
	}, []string{"machine", "state"})

	// runsTotal counts completed runs by machine and final outcome.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of statemachine runs by machine and outcome (success, fatal or canceled)",
	}, []string{"machine", "outcome"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
