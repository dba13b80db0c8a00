package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/pkg/config"
	"github.com/marmos91/talko/pkg/store/chat/database"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage versioned SQL migrations for the PostgreSQL chat store.

Versioned migrations only apply to the postgres backend. SQLite deployments
migrate automatically at startup, and the memory and badger backends carry
no schema.

Examples:
  # Show the current schema version
  talko migrate status

  # Apply all pending migrations
  talko migrate up

  # Roll back the last migration
  talko migrate down

  # Roll back the last two migrations
  talko migrate down --steps 2`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE:  runMigrateStatus,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE:  runMigrateDown,
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")

	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// loadDatabaseConfig loads the configuration and converts the postgres
// section into the store's database config. Errors out for other backends.
func loadDatabaseConfig() (*database.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Type != config.DatabaseTypePostgres {
		return nil, fmt.Errorf("migrations require database.type postgres (got %q)", cfg.Database.Type)
	}

	pg := cfg.Database.Postgres
	return &database.Config{
		Type: database.TypePostgres,
		Postgres: database.PostgresConfig{
			Host:         pg.Host,
			Port:         pg.Port,
			Database:     pg.Database,
			User:         pg.User,
			Password:     pg.Password,
			SSLMode:      pg.SSLMode,
			SSLRootCert:  pg.SSLRootCert,
			MaxOpenConns: pg.MaxOpenConns,
			MaxIdleConns: pg.MaxIdleConns,
		},
	}, nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return err
	}

	version, dirty, err := database.MigrationVersion(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version == 0 {
		fmt.Println("No migrations applied yet")
		return nil
	}

	fmt.Printf("Schema version: %d\n", version)
	if dirty {
		fmt.Println("WARNING: schema is dirty, manual intervention may be required")
	}
	return nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return err
	}

	if err := database.RunMigrations(context.Background(), dbCfg); err != nil {
		return err
	}

	fmt.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return err
	}

	if err := database.RollbackMigrations(context.Background(), dbCfg, migrateSteps); err != nil {
		return err
	}

	fmt.Printf("Rolled back %d migration(s)\n", migrateSteps)
	return nil
}
