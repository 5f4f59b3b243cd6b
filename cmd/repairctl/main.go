package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/app"
	"github.com/repairjunction/repairjunction-api/pkg/config"
	"github.com/repairjunction/repairjunction-api/pkg/logger"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "repairctl",
		Short:         "RepairJunction operations tool",
		Long:          "repairctl runs maintenance tasks against the RepairJunction database: pending sweeps, ledger audits and pincode diagnostics.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newPincodeCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newLedgerCmd())
	cmd.AddCommand(newCacheCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "repairctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// connect loads configuration from the environment and builds the service graph.
func connect(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to connect", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
