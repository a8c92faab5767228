/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zidesign/catalog/config"
	"github.com/zidesign/catalog/internal/db"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	Long: `Applies the embedded Postgres migrations. SQLite databases are
created with their schema on first open and need no migration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		driver, err := db.ParseDriver(cfg.Database.Driver)
		if err != nil {
			return err
		}
		if driver != db.DriverPostgres {
			return fmt.Errorf("migrate up: driver %s manages its own schema", driver)
		}
		return db.MigrateUp(db.PostgresURL(cfg))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}
