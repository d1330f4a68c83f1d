// Command conductor is the Conductor flow engine's CLI: run a flow
// definition to completion, or render one (optionally annotated with a
// trace) as a Mermaid diagram.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "conductor:", err)
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "conductor",
		Short:         "Run and inspect configuration-driven flows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDiagramCmd())
	return cmd
}
