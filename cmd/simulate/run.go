package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/amp-labs/simulation/cli"
	"github.com/amp-labs/simulation/logger"
	"github.com/amp-labs/simulation/runner"
	"github.com/amp-labs/simulation/should"
	"github.com/amp-labs/simulation/shutdown"
	"github.com/amp-labs/simulation/statemachine"
	"github.com/amp-labs/simulation/telemetry"
	"github.com/spf13/cobra"
)

var errFatalInstances = errors.New("simulation ended with fatal instances")

func newRunCmd(a *app) *cobra.Command {
	var (
		mf          machineFlags
		instances   int
		concurrency int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more instances of a state machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("instances") {
				a.settings.Instances = instances
			}

			if cmd.Flags().Changed("metrics-addr") {
				a.settings.Metrics.Addr = metricsAddr
			}

			return a.run(cmd.Context(), cmd.OutOrStdout(), mf, concurrency)
		},
	}

	mf.register(cmd)
	cmd.Flags().IntVarP(&instances, "instances", "n", 1, "Number of independent instances to run")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum instances running at once (0 for all)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func (a *app) run(ctx context.Context, out io.Writer, mf machineFlags, concurrency int) error {
	f, err := a.factory(mf.factory)
	if err != nil {
		return err
	}

	raw, err := statemachine.LoadConfigFile(mf.smConfig)
	if err != nil {
		return err
	}

	config, err := statemachine.DecodeConfig(f, raw)
	if err != nil {
		return err
	}

	provider, err := telemetry.Initialize(ctx, a.settings.Telemetry)
	if err != nil {
		return err
	}

	timeout := a.settings.Telemetry.Timeout
	if timeout <= 0 {
		timeout = telemetry.DefaultTimeout
	}

	defer should.ShutdownWithin(timeout, provider.Shutdown, "Failed to flush telemetry")

	if tee := provider.LogHandler(); tee != nil {
		opts := a.logOpts
		opts.Tee = tee
		logger.ConfigureLoggingWithOptions(opts)
	}

	handler := shutdown.NewHandler()
	ctx = handler.Setup(ctx)

	defer handler.Stop()

	stats := &runner.Stats{}

	if a.settings.Metrics.Addr != "" {
		stop := serveMetrics(a.settings.Metrics.Addr, stats)
		handler.BeforeShutdown(stop)

		defer stop()
	}

	log := logger.Get(logger.With(ctx, "factory", f.Name()))
	log.Info("Starting simulation", "instances", a.settings.Instances)

	fmt.Fprint(out, cli.BannerAutoWidth("Simulating "+f.Name(), cli.AlignCenter))

	results, runErr := runner.RunInstances(ctx, func(int) (statemachine.Machine, error) {
		return f.Build(config)
	}, runner.Options{
		Instances:   a.settings.Instances,
		Concurrency: concurrency,
		Logger:      log,
	}, stats)

	printSummary(out, results)

	if runErr != nil {
		log.Error("Simulation stopped with errors", "error", runErr)
	}

	if stats.Fatal.Load() > 0 {
		return fmt.Errorf("%w: %d of %d", errFatalInstances, stats.Fatal.Load(), len(results))
	}

	return runErr
}

func printSummary(out io.Writer, results []runner.Result) {
	for _, r := range results {
		line := fmt.Sprintf("instance %d: %s after %s in state %q with %d error(s)",
			r.Instance, r.Status, r.Duration.Round(time.Millisecond), r.State, r.Errors)

		if r.Err != nil {
			line += ": " + r.Err.Error()
		}

		fmt.Fprintln(out, line)
	}
}
