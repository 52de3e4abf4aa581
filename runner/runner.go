// Package runner hosts machines: it drives one machine step by step and runs
// several independent instances on a worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/simulation/logger"
	"github.com/amp-labs/simulation/statemachine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// ErrNoInstances is returned when fewer than one instance is requested.
var ErrNoInstances = errors.New("at least one instance is required")

var instancesRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
	Name: "simulation_instances_running",
	Help: "Number of machine instances currently driven by the host.",
}, []string{"machine"})

// BuildFunc creates the machine of one instance.
type BuildFunc func(instance int) (statemachine.Machine, error)

// Options configure RunInstances.
type Options struct {
	// Instances is the number of independent machines to run.
	Instances int
	// Concurrency bounds the machines running at once, 0 runs all instances concurrently.
	Concurrency int
	// Logger is handed to every machine, slog.Default when nil.
	Logger *slog.Logger
}

// Result is the outcome of one instance.
type Result struct {
	Instance int
	Machine  string
	RunID    string
	Status   statemachine.Status
	Errors   int
	State    string
	Duration time.Duration
	Err      error
}

// Stats counts instances while RunInstances is in progress.
type Stats struct {
	Running  atomic.Int64
	Finished atomic.Int64
	Fatal    atomic.Int64
}

// Drive runs a machine the way a host process does: open the run, wait for the
// start time, set up the context, step until the run is done or ctx is
// canceled, tear the context down and close the run. Cancellation is checked
// between steps only, a step that is blocked in a transition delay completes
// first.
func Drive(ctx context.Context, m statemachine.Machine) (err error) {
	ctx, err = m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() { m.End(err) }()

	m.WaitForStart()

	if err := m.SetupContext(ctx); err != nil {
		return err
	}

	var runErr error

	for !m.Status().Done() {
		if ctx.Err() != nil {
			break
		}

		if runErr = m.Step(ctx); runErr != nil {
			break
		}
	}

	return errors.Join(runErr, m.DestroyContext(ctx))
}

// RunInstances builds and drives opts.Instances machines on a worker pool and
// returns one result per instance, ordered by instance index. The error joins
// the failures of all instances.
func RunInstances(ctx context.Context, build BuildFunc, opts Options, stats *Stats) ([]Result, error) {
	if opts.Instances < 1 {
		return nil, ErrNoInstances
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if stats == nil {
		stats = &Stats{}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 || concurrency > opts.Instances {
		concurrency = opts.Instances
	}

	pool := pond.NewPool(concurrency)
	defer pool.StopAndWait()

	results := make([]Result, opts.Instances)
	tasks := make([]pond.Task, 0, opts.Instances)

	for i := range opts.Instances {
		tasks = append(tasks, pool.Submit(func() {
			results[i] = runInstance(ctx, build, i, opts.Logger, stats)
		}))
	}

	for _, task := range tasks {
		_ = task.Wait()
	}

	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("instance %d: %w", r.Instance, r.Err))
		}
	}

	return results, errors.Join(errs...)
}

func runInstance(ctx context.Context, build BuildFunc, instance int, log *slog.Logger, stats *Stats) Result {
	result := Result{Instance: instance}

	machine, err := build(instance)
	if err != nil {
		result.Err = logger.AnnotateError(fmt.Errorf("build failed: %w", err), "instance", instance)
		result.Status = statemachine.StatusFatal

		stats.Fatal.Inc()

		return result
	}

	result.Machine = machine.Name()

	ctx = logger.WithInstance(ctx, instance)
	machine.SetLogger(log.With("instance", instance))

	gauge := instancesRunning.WithLabelValues(machine.Name())
	gauge.Inc()
	stats.Running.Inc()

	started := time.Now()
	err = Drive(ctx, machine)

	stats.Running.Dec()
	gauge.Dec()

	result.Duration = time.Since(started)
	result.RunID = machine.RunID()
	result.Status = machine.Status()
	result.Errors = machine.Errors()
	result.State = machine.CurrentState()
	result.Err = err

	if err != nil || result.Status == statemachine.StatusFatal {
		stats.Fatal.Inc()
	} else {
		stats.Finished.Inc()
	}

	logger.Get(ctx).Info("Instance stopped",
		"machine", result.Machine,
		"status", result.Status,
		"errors", result.Errors,
		"state", result.State,
		"duration", result.Duration,
	)

	return result
}
