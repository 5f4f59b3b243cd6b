package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Technician capacity ledger tools",
	}
	cmd.AddCommand(newLedgerAuditCmd())
	return cmd
}

func newLedgerAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report technicians whose counters disagree with their open assignments",
		Long:  "Read-only. Compares active_request_count and can_receive_requests against the requests each technician actually holds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			drift, err := a.Ledger.Audit(cmd.Context())
			if err != nil {
				return err
			}
			writeDrift(cmd.OutOrStdout(), drift)
			return nil
		},
	}
}

func writeDrift(out io.Writer, drift []models.LedgerDrift) {
	if len(drift) == 0 {
		fmt.Fprintln(out, "ledger consistent")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TECHNICIAN\tCOUNT\tACCEPTING\tOPEN")
	for _, d := range drift {
		fmt.Fprintf(w, "%s\t%d\t%t\t%d\n", d.TechnicianID, d.ActiveRequestCount, d.CanReceiveRequests, d.OpenAssignments)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "%d technician(s) drifted\n", len(drift))
}
