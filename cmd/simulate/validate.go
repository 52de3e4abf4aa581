package main

import (
	"errors"
	"fmt"

	"github.com/amp-labs/simulation/statemachine/validator"
	"github.com/spf13/cobra"
)

var errInvalidMachine = errors.New("state machine is invalid")

func newValidateCmd(a *app) *cobra.Command {
	var (
		mf     machineFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Build a state machine and check its structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, machine, err := a.build(mf.factory, mf.smConfig)
			if err != nil {
				return err
			}

			graph := machine.Graph()

			result := validator.ValidateWithRules(graph, validator.DefaultRules())
			if strict {
				result = validator.ValidateWithRulesStrict(graph, validator.DefaultRules())
			}

			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", f.Name(), result.String()); err != nil {
				return err
			}

			if !result.Valid {
				return fmt.Errorf("%w: %s", errInvalidMachine, f.Name())
			}

			return nil
		},
	}

	mf.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}
