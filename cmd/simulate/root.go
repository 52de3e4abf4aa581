package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amp-labs/simulation/cli"
	"github.com/amp-labs/simulation/logger"
	"github.com/amp-labs/simulation/settings"
	"github.com/amp-labs/simulation/statemachine"
	"github.com/spf13/cobra"
)

const subsystem = "simulate"

var errFactoryRequired = errors.New("a state machine factory is required (--factory)")

// app carries the state shared by all commands of one invocation.
type app struct {
	registry  *statemachine.Registry
	available *statemachine.Registry
	settings  settings.Settings
	logOpts   logger.Options
	closeLog  func() error

	configPath string
	logLevel   string
	seed       uint64
}

func newRootCmd(registry *statemachine.Registry) (*cobra.Command, *app) {
	a := &app{registry: registry}

	root := &cobra.Command{
		Use:           "simulate",
		Short:         "Run simulated actors described as state machines",
		Long:          `simulate builds state machines from registered factories and runs them to completion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", settings.DefaultPath, "The simulation settings file")
	flags.StringVar(&a.logLevel, "log-level", "", "The log level (debug, info, warn, error)")
	flags.Uint64Var(&a.seed, "seed", 0, "Global seed for the random sources used during simulation")

	root.AddCommand(
		newVersionCmd(),
		newListCmd(a),
		newRunCmd(a),
		newGraphCmd(a),
		newValidateCmd(a),
	)

	return root, a
}

// execute runs the command line and releases what setup opened, also when the
// command fails.
func execute(ctx context.Context, root *cobra.Command, a *app) (err error) {
	defer func() {
		err = errors.Join(err, a.close())
	}()

	return root.ExecuteContext(ctx)
}

// close closes the log output opened by setup. It is safe to call more than once.
func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}

	closeLog := a.closeLog
	a.closeLog = nil

	return closeLog()
}

// setup loads the settings, applies flag overrides, configures logging and
// seeds the random sources.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := settings.Loader{Path: a.configPath, EnvFiles: []string{settings.DefaultEnvFile}}.Load()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		s.Log.Level = a.logLevel
	}

	if cmd.Flags().Changed("seed") {
		seed := a.seed
		s.Seed = &seed
	}

	opts, closeLog, err := s.LoggerOptions(subsystem)
	if err != nil {
		return err
	}

	a.settings = s
	a.logOpts = opts
	a.closeLog = closeLog

	logger.ConfigureLoggingWithOptions(opts)

	if s.Seed != nil {
		statemachine.SeedRandom(*s.Seed)
		slog.Debug("Seeded random sources", "seed", *s.Seed)
	}

	include, err := s.IncludePatterns()
	if err != nil {
		return err
	}

	exclude, err := s.ExcludePatterns()
	if err != nil {
		return err
	}

	a.available = a.registry.Filter(include, exclude)

	return nil
}

// factory resolves the named factory, prompting for one on a terminal when no name is given.
func (a *app) factory(name string) (statemachine.Factory, error) {
	if name == "" {
		if !cli.IsInteractive() {
			return nil, errFactoryRequired
		}

		selected, err := cli.SelectOne("Select a state machine factory", a.available.Names()...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFactoryRequired, err)
		}

		name = selected
	}

	return a.available.Lookup(name)
}

// build decodes the machine configuration file and builds one machine.
func (a *app) build(factoryName, configPath string) (statemachine.Factory, statemachine.Machine, error) {
	f, err := a.factory(factoryName)
	if err != nil {
		return nil, nil, err
	}

	machine, err := statemachine.BuildFromFile(f, configPath)
	if err != nil {
		return nil, nil, logger.AnnotateError(err, "factory", f.Name(), "sm_config", configPath)
	}

	return f, machine, nil
}

type machineFlags struct {
	factory  string
	smConfig string
}

func (m *machineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.factory, "factory", "f", "", "The state machine factory to use")
	cmd.Flags().StringVarP(&m.smConfig, "sm-config", "s", "sm.yml", "The state machine configuration file")
}
