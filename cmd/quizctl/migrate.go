package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer d.close()

		if err := d.store.Migrate(); err != nil {
			return err
		}
		return printVersion(cmd, d)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps <= 0 {
			return fmt.Errorf("--steps must be > 0")
		}
		d, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer d.close()

		if err := d.store.MigrateDown(steps); err != nil {
			return err
		}
		return printVersion(cmd, d)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer d.close()
		return printVersion(cmd, d)
	},
}

func printVersion(cmd *cobra.Command, d *deps) error {
	version, dirty, err := d.store.MigrationVersion()
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)

	rootCmd.AddCommand(migrateCmd)
}
