package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "vendroute-admin", Version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Open already ran the schema and column migrations.
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", db.Driver())
		return nil
	},
}

func newSeedCmd() *cobra.Command {
	var withFlex bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo customers and routes into empty tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.SeedSampleData(); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			if withFlex {
				n, err := db.SeedFlexRows()
				if err != nil {
					return fmt.Errorf("seed stops: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d stops\n", n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withFlex, "flex", false, "also add demo stops under the first three routes")
	return cmd
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print row counts per table and per route",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := db.Stats()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "customers: %d\n", stats.Customers)
		fmt.Fprintf(out, "routes:    %d\n", len(stats.Parents))
		fmt.Fprintf(out, "stops:     %d\n", stats.FlexRows)
		for _, p := range stats.Parents {
			fmt.Fprintf(out, "  %-8s %-28s %3d stops, %d with power mode\n", p.Code, p.Name, p.FlexRows, p.Powered)
		}
		return nil
	},
}
