package main

import (
	"fmt"

	"github.com/amp-labs/simulation/statemachine/visualizer"
	"github.com/spf13/cobra"
)

func newGraphCmd(a *app) *cobra.Command {
	var (
		mf        machineFlags
		direction string
		delays    bool
		weights   bool
		fenced    bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print a Mermaid diagram of a state machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, machine, err := a.build(mf.factory, mf.smConfig)
			if err != nil {
				return err
			}

			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithShowDelays(delays).
				WithShowWeights(weights).
				WithFenced(fenced)

			diagram, err := visualizer.GenerateMermaidWithOptions(machine.Graph(), opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), diagram)

			return err
		},
	}

	mf.register(cmd)
	cmd.Flags().StringVar(&direction, "direction", "TD", "Diagram direction (TD or LR)")
	cmd.Flags().BoolVar(&delays, "delays", false, "Show transition delays")
	cmd.Flags().BoolVar(&weights, "weights", true, "Show transition weights")
	cmd.Flags().BoolVar(&fenced, "fenced", true, "Wrap the diagram in a markdown code fence")

	return cmd
}
