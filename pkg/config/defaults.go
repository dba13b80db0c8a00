package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/talko/internal/bytesize"
	"github.com/marmos91/talko/pkg/api"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Servers)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default service name identifies this backend in traces and profiles
	if cfg.ServiceName == "" {
		cfg.ServiceName = "talko"
	}

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	// Apply profiling defaults
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in for profiling)
	// No need to set, zero value is false

	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyServerDefaults sets data and broadcast server defaults.
func applyServerDefaults(cfg *ServersConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	// Broadcast server defaults come first: the data server's default
	// broadcast address depends on the broadcast port.
	if cfg.Broadcast.Port == 0 {
		cfg.Broadcast.Port = 8889
	}
	if cfg.Broadcast.MaxWorkers == 0 {
		cfg.Broadcast.MaxWorkers = 10000
	}
	if cfg.Broadcast.ReadTimeout == 0 {
		cfg.Broadcast.ReadTimeout = 30 * time.Second
	}
	if cfg.Broadcast.WriteTimeout == 0 {
		cfg.Broadcast.WriteTimeout = 10 * time.Second
	}
	if cfg.Broadcast.MaxFrameSize == 0 {
		cfg.Broadcast.MaxFrameSize = bytesize.ByteSize(bytesize.MiB) // 1 MiB
	}

	if cfg.Data.Port == 0 {
		cfg.Data.Port = 8888
	}
	if cfg.Data.MaxWorkers == 0 {
		cfg.Data.MaxWorkers = 10000
	}
	if cfg.Data.ReadTimeout == 0 {
		cfg.Data.ReadTimeout = 30 * time.Second
	}
	if cfg.Data.WriteTimeout == 0 {
		cfg.Data.WriteTimeout = 10 * time.Second
	}
	if cfg.Data.MaxFrameSize == 0 {
		cfg.Data.MaxFrameSize = bytesize.ByteSize(bytesize.MiB) // 1 MiB
	}
	if cfg.Data.BroadcastAddress == "" {
		cfg.Data.BroadcastAddress = fmt.Sprintf("127.0.0.1:%d", cfg.Broadcast.Port)
	}
	if cfg.Data.BroadcastTimeout == 0 {
		cfg.Data.BroadcastTimeout = 5 * time.Second
	}
}

// applyDatabaseDefaults sets chat store defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	// Default to SQLite for single-node deployments
	if cfg.Type == "" {
		cfg.Type = DatabaseTypeSQLite
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(getConfigDir(), "talko.db")
	}

	if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
		cfg.Badger.Path = filepath.Join(getConfigDir(), "badger")
	}

	// PostgreSQL connection defaults (port, SSL mode, pool sizes) are
	// applied by the store package when the store is created.
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets admin API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{},
		Telemetry: TelemetryConfig{
			Insecure: true, // Local collectors rarely speak TLS
		},
		Database: DatabaseConfig{
			Type: DatabaseTypeSQLite, // Default to SQLite for single-node
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
