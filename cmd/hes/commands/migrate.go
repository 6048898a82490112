package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfmesh/hes/internal/logger"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the relational store.

This command applies the engine's AutoMigrate schema against the configured
store (SQLite or PostgreSQL). It is safe to run after every upgrade, and on
a fresh database it creates the schema from scratch.

Examples:
  # Run migrations with default config
  hes migrate

  # Run migrations with custom config
  hes migrate --config /etc/hes/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("running database migrations", "type", cfg.Database.Type)

	if _, err := store.New(&cfg.Database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
