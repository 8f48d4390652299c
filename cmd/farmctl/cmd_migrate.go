package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/R3E-Network/farm_backoffice/internal/config"
	"github.com/R3E-Network/farm_backoffice/internal/platform/database"
	"github.com/R3E-Network/farm_backoffice/internal/platform/migrations"
)

var (
	migrateDSN   string
	migrateSteps int
)

// migrateCmd manages the Postgres schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSchema(cmd, func(db *sqlx.DB) error {
			if err := migrations.Up(db.DB); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSchema(cmd, func(db *sqlx.DB) error {
			if err := migrations.Down(db.DB, migrateSteps); err != nil {
				return err
			}
			return printVersion(cmd, db)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSchema(cmd, func(db *sqlx.DB) error {
			return printVersion(cmd, db)
		})
	},
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDSN, "dsn", "", "Postgres DSN (defaults to DATABASE_URL)")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Number of versions to revert")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withSchema(cmd *cobra.Command, fn func(db *sqlx.DB) error) error {
	dsn := migrateDSN
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return fmt.Errorf("no database: pass --dsn or set DATABASE_URL")
	}
	cfg := config.Default().Database
	cfg.Driver = "postgres"
	cfg.DSN = dsn
	db, err := database.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func printVersion(cmd *cobra.Command, db *sqlx.DB) error {
	v, dirty, err := migrations.Version(db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
