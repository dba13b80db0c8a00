package config

import (
	"context"
	"fmt"

	"github.com/marmos91/talko/pkg/store/chat"
	"github.com/marmos91/talko/pkg/store/chat/badger"
	"github.com/marmos91/talko/pkg/store/chat/database"
	"github.com/marmos91/talko/pkg/store/chat/memory"
)

// DatabaseType identifies a chat store backend.
type DatabaseType string

// Supported chat store backends.
const (
	DatabaseTypeMemory   DatabaseType = "memory"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeBadger   DatabaseType = "badger"
)

// DatabaseConfig selects and configures the chat store backend.
type DatabaseConfig struct {
	// Type selects the storage backend
	// Valid values: memory, sqlite, postgres, badger
	Type DatabaseType `mapstructure:"type" validate:"required,oneof=memory sqlite postgres badger" yaml:"type"`

	// SQLite configures the SQLite backend (used when type is "sqlite")
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// Postgres configures the PostgreSQL backend (used when type is "postgres")
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`

	// Badger configures the BadgerDB backend (used when type is "badger")
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger,omitempty"`
}

// SQLiteConfig configures the SQLite chat store.
type SQLiteConfig struct {
	// Path is the SQLite database file location
	// Default: <config dir>/talko.db
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// PostgresConfig configures the PostgreSQL chat store.
type PostgresConfig struct {
	// Host is the PostgreSQL server hostname
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port
	// Default: 5432
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`

	// Database is the database name
	Database string `mapstructure:"database" yaml:"database"`

	// User is the database user
	User string `mapstructure:"user" yaml:"user"`

	// Password is the database password
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// SSLMode controls TLS for the connection
	// Valid values: disable, require, verify-ca, verify-full
	// Default: disable
	SSLMode string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full" yaml:"ssl_mode,omitempty"`

	// SSLRootCert is the path to the CA certificate for verify modes
	SSLRootCert string `mapstructure:"ssl_root_cert" yaml:"ssl_root_cert,omitempty"`

	// MaxOpenConns caps open connections in the pool
	// Default: 25
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`

	// MaxIdleConns caps idle connections in the pool
	// Default: 5
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`

	// Migrate runs versioned SQL migrations on startup
	Migrate bool `mapstructure:"migrate" yaml:"migrate,omitempty"`
}

// BadgerConfig configures the BadgerDB chat store.
type BadgerConfig struct {
	// Path is the directory holding the database files
	// Default: <config dir>/badger
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// InMemory keeps all data in memory (lost on shutdown)
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory,omitempty"`
}

// CreateChatStore creates a chat store instance from configuration.
func CreateChatStore(ctx context.Context, cfg DatabaseConfig) (chat.Store, error) {
	switch cfg.Type {
	case DatabaseTypeMemory:
		return memory.New(), nil
	case DatabaseTypeSQLite:
		return createSQLiteChatStore(cfg.SQLite)
	case DatabaseTypePostgres:
		return createPostgresChatStore(ctx, cfg.Postgres)
	case DatabaseTypeBadger:
		return createBadgerChatStore(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown database type: %q", cfg.Type)
	}
}

// createSQLiteChatStore creates a SQLite-backed chat store.
func createSQLiteChatStore(cfg SQLiteConfig) (chat.Store, error) {
	store, err := database.New(&database.Config{
		Type:   database.TypeSQLite,
		SQLite: database.SQLiteConfig{Path: cfg.Path},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return store, nil
}

// createPostgresChatStore creates a PostgreSQL-backed chat store.
// When cfg.Migrate is set, versioned SQL migrations run before the store opens.
func createPostgresChatStore(ctx context.Context, cfg PostgresConfig) (chat.Store, error) {
	dbCfg := &database.Config{
		Type: database.TypePostgres,
		Postgres: database.PostgresConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			Database:     cfg.Database,
			User:         cfg.User,
			Password:     cfg.Password,
			SSLMode:      cfg.SSLMode,
			SSLRootCert:  cfg.SSLRootCert,
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		},
	}

	if cfg.Migrate {
		if err := database.RunMigrations(ctx, dbCfg); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	store, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	return store, nil
}

// createBadgerChatStore creates a BadgerDB-backed chat store.
func createBadgerChatStore(cfg BadgerConfig) (chat.Store, error) {
	store, err := badger.NewWithOptions(badger.Options{
		Path:     cfg.Path,
		InMemory: cfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return store, nil
}
