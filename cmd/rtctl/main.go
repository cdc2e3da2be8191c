// Command rtctl runs maintenance tasks against the RT database: schema
// migration, account setup, reports, summary repair and expense imports.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/pkg/config"
	"github.com/mastermind064/RT06/pkg/database"
)

var Version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rtctl",
		Short:         "rtctl - maintenance tool for the RT/RW portal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createRtCmd())
	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(resetPasswordCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(recalcCmd())
	rootCmd.AddCommand(sanitizeCmd())
	rootCmd.AddCommand(importCmd())
	return rootCmd
}

// openDB loads the environment configuration and connects without migrating.
func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.DBAutoMigrate = false
	return database.Open(cfg)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			if failed := database.Migrate(gdb); failed > 0 {
				return fmt.Errorf("%d tables failed to migrate", failed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration completed")
			return nil
		},
	}
}
