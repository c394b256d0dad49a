// Command vendroute-admin runs maintenance tasks against the vendroute database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vendroute/config"
	"vendroute/store"
)

var Version = "dev"

var (
	// configPath is set by the --config flag.
	configPath string

	// db is opened before every command except version.
	db *store.DB
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "vendroute-admin",
		Short:             "Maintenance commands for the vendroute database",
		SilenceUsage:      true,
		PersistentPreRunE: openDB,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeDB()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "vendroute.yaml", "path to config file")

	root.AddCommand(versionCmd, migrateCmd, newSeedCmd(), checkCmd)
	return root
}

// openDB loads the config and opens the store, which also applies migrations.
func openDB(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err = store.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return nil
}

func closeDB() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}
