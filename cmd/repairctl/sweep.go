package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one auto-assignment pass over unassigned requests",
		Long:  "Retries automatic assignment for every request still pending assignment, oldest first, up to SWEEP_LIMIT.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.Start(cmd.Context())

			result, err := a.Assignments.SweepPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, assigned %d, still pending %d, failed %d\n",
				result.Scanned, result.Assigned, result.Unassigned, result.Failed)
			return nil
		},
	}
}
