// Command simulate runs simulated actors described as state machines.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/amp-labs/simulation/examples/traveler"
	"github.com/amp-labs/simulation/statemachine"
)

func main() {
	cmd, a := newRootCmd(statemachine.DefaultRegistry)

	if err := execute(context.Background(), cmd, a); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
