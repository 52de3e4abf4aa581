package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available state machine factories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if _, err := fmt.Fprintln(out, "Available state machine factories:"); err != nil {
				return err
			}

			for _, name := range a.available.Names() {
				if _, err := fmt.Fprintf(out, "\t%s\n", name); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
