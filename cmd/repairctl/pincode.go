package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repairjunction/repairjunction-api/pkg/pincode"
)

func newPincodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pincode",
		Short: "Pincode diagnostics",
	}
	cmd.AddCommand(newPincodeExtractCmd())
	return cmd
}

func newPincodeExtractCmd() *cobra.Command {
	var near string
	cmd := &cobra.Command{
		Use:   "extract <address>",
		Short: "Show which pincode the extractor finds in an address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if near != "" && !pincode.Valid(near) {
				return fmt.Errorf("--near must be a 6-digit pincode, got %q", near)
			}
			address := strings.Join(args, " ")
			pin, strategy, found := pincode.Extract(address)
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "no pincode found in %q\n", pincode.Normalize(address))
				return nil
			}
			fmt.Fprintf(out, "pincode:  %s\nstrategy: %s\nprefix:   %s\n", pin, strategy, pincode.Prefix(pin, pincode.ProximityPrefix))
			if near != "" {
				fmt.Fprintf(out, "near %s: %t\n", near, pincode.InProximity(pin, near))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&near, "near", "", "compare the extracted pincode with this one")
	return cmd
}
