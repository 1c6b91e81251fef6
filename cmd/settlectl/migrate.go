package main

import (
	"fmt"

	pgStorage "settlement-core/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded schema migrations to the configured PostgreSQL database.

Migrations are idempotent; running them on an up-to-date schema is a no-op.

Examples:
  settlectl migrate
  SC_DATABASE_HOST=db.internal settlectl migrate --config /etc/settlement/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Storage.UsePostgres() {
		return fmt.Errorf("storage driver is %q, migrations only apply to postgres", cfg.Storage.Driver)
	}

	fmt.Printf("Migrating %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	if err := pgStorage.Migrate(cfg.Database.DSN()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Schema is up to date")
	return nil
}
