package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/talko/internal/logger"
	"github.com/marmos91/talko/internal/telemetry"
	"github.com/marmos91/talko/pkg/config"
	"github.com/marmos91/talko/pkg/server"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/talko/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the talko servers",
	Long: `Start the talko data and broadcast servers with the specified
configuration.

The process runs in the foreground until it receives SIGINT or SIGTERM,
then shuts down gracefully: listeners stop accepting, in-flight requests
get the configured shutdown timeout to finish, and open streams are
closed.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/talko/config.yaml.

Examples:
  # Start with default config location
  talko start

  # Start with custom config file
  talko start --config /etc/talko/config.yaml

  # Start with environment variable overrides
  TALKO_LOGGING_LEVEL=DEBUG talko start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Starting talko",
		"version", Version,
		"commit", Commit,
		"data_port", cfg.Servers.Data.Port,
		"broadcast_port", cfg.Servers.Broadcast.Port,
	)

	srv, err := server.New(ctx, cfg, Version)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
