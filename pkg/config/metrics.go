package config

import (
	"github.com/marmos91/talko/pkg/metrics"
)

// MetricsResult holds the components created by InitializeMetrics.
//
// All fields are nil when metrics are disabled; every consumer accepts
// nil with zero overhead.
type MetricsResult struct {
	// Server is the /metrics HTTP server, nil when metrics are disabled.
	Server *metrics.Server

	// Adapter collects TCP server metrics.
	Adapter metrics.AdapterMetrics

	// Broadcast collects subscriber table and fan-out metrics.
	Broadcast metrics.BroadcastMetrics

	// Store collects chat store operation metrics.
	Store metrics.StoreMetrics
}

// InitializeMetrics initializes the Prometheus registry and creates the
// metrics server and typed collectors when metrics are enabled.
//
// Must be called before creating adapters or stores so that the typed
// constructors see an initialized registry. The Prometheus implementations
// register themselves via a blank import of pkg/metrics/prometheus in the
// main package.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	return MetricsResult{
		Server:    metrics.NewServer(cfg.Metrics.Port),
		Adapter:   metrics.NewAdapterMetrics(),
		Broadcast: metrics.NewBroadcastMetrics(),
		Store:     metrics.NewStoreMetrics(),
	}
}
