package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	serve := serveCmd()

	root := &cobra.Command{
		Use:   "recurringtasks",
		Short: "Materialize recurring task definitions into board items",
		Long: `recurringtasks keeps recurring task definitions and periodically
creates their items on the workflow board.

Without a subcommand it runs the service (same as "serve").
Settings come from CONFIG_FILE and environment variables.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve)
	root.AddCommand(runCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(taskCmd())
	return root
}
