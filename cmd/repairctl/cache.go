package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush-feeds",
		Short: "Drop every cached technician feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Redis == nil {
				return fmt.Errorf("redis is not reachable")
			}
			n, err := a.Cache.DeleteByPattern(cmd.Context(), "feed:technician:*")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d technician feeds\n", n)
			return nil
		},
	})
	return cmd
}
