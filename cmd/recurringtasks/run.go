package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"recurring-tasks/internal/service"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one materialization batch now and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.trigger.RunNow(cmd.Context())
			printBatch(cmd.OutOrStdout(), res)
			return err
		},
	}
}

func printBatch(w io.Writer, res service.BatchResult) {
	fmt.Fprintf(w, "Processed: %d\nCreated:   %d\nFailed:    %d\nWaiting:   %d\nEnded:     %d\n", res.Processed, res.Created, res.Failed, res.Skipped, res.Expired)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  %s (%s): %v\n", f.TaskID, f.Name, f.Err)
	}
}
