package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct tags cover field-level constraints (ranges, enumerations); the
// cross-field rules that tags cannot express are checked explicitly below.
// Validation never mutates the configuration, so callers can validate
// user input before applying defaults.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	// Telemetry requires a collector endpoint when enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling is enabled but no endpoint is configured")
	}

	// A backend with both servers disabled has nothing to serve
	if !cfg.Servers.Data.IsEnabled() && !cfg.Servers.Broadcast.IsEnabled() {
		return fmt.Errorf("at least one of servers.data or servers.broadcast must be enabled")
	}

	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}

	return nil
}

// validateDatabase checks backend-specific requirements for the chat store.
// The oneof tag on Type already rejects unknown backends.
func validateDatabase(cfg *DatabaseConfig) error {
	switch cfg.Type {
	case DatabaseTypeMemory:
		// Nothing to validate

	case DatabaseTypeSQLite:
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required when type is %q", cfg.Type)
		}

	case DatabaseTypePostgres:
		if cfg.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when type is %q", cfg.Type)
		}
		if cfg.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when type is %q", cfg.Type)
		}
		if cfg.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required when type is %q", cfg.Type)
		}

	case DatabaseTypeBadger:
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
			return fmt.Errorf("database.badger.path is required when type is %q", cfg.Type)
		}
	}

	return nil
}
