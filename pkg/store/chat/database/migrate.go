package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/pkg/store/chat/database/migrations"
)

// runMigrations executes database migrations using golang-migrate.
// golang-migrate takes PostgreSQL advisory locks so only one instance
// runs migrations at a time.
func runMigrations(ctx context.Context, connString, dbName string) error {
	logger.Info("Running database migrations...")

	// Open database connection using database/sql (required by golang-migrate)
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Create postgres driver instance for migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    dbName,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	// Create source driver from embedded filesystem
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	// Create migrate instance
	m, err := migrate.NewWithInstance(
		"iofs",
		sourceDriver,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Info("Applying migrations...")
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No migrations to apply (database is up to date)")
	} else {
		logger.Info("Migrations completed successfully")
	}

	// Get current version
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		logger.Info("No migrations applied yet")
	} else {
		logger.Info("Current schema version",
			"version", version,
			"dirty", dirty,
		)

		if dirty {
			logger.Warn("Database schema is in dirty state - manual intervention may be required")
		}
	}

	return nil
}

// RunMigrations is a public wrapper for manual migration execution (e.g., from CLI).
// Versioned migrations only apply to the PostgreSQL backend; SQLite relies on
// GORM AutoMigrate at open.
func RunMigrations(ctx context.Context, cfg *Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Type != TypePostgres {
		return fmt.Errorf("versioned migrations require the postgres backend (got %q)", cfg.Type)
	}

	return runMigrations(ctx, cfg.Postgres.DSN(), cfg.Postgres.Database)
}

// RollbackMigrations rolls the PostgreSQL schema back by steps migrations.
func RollbackMigrations(ctx context.Context, cfg *Config, steps int) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != TypePostgres {
		return fmt.Errorf("versioned migrations require the postgres backend (got %q)", cfg.Type)
	}
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1 (got %d)", steps)
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    cfg.Postgres.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Info("Rolling back migrations", "steps", steps)
	if err := m.Steps(-steps); err != nil {
		if err == migrate.ErrNoChange {
			logger.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rollback failed: %w", err)
	}

	logger.Info("Rollback completed successfully")
	return nil
}

// MigrationVersion returns the current migration version of a PostgreSQL
// database. The second return value reports whether the schema is dirty.
func MigrationVersion(cfg *Config) (uint, bool, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return 0, false, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != TypePostgres {
		return 0, false, fmt.Errorf("versioned migrations require the postgres backend (got %q)", cfg.Type)
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, err
	}

	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}

	return version, dirty, nil
}
