// Package metrics provides optional Prometheus instrumentation for the
// chat servers and stores.
//
// Metrics collection is opt-in. Call InitRegistry once at startup (before
// creating adapters or stores) to enable collection; the typed constructors
// in this package return nil until then, and all instrumented components
// accept nil with zero overhead.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// registry is the global Prometheus registry for all collectors
	registry *prometheus.Registry

	// enabled indicates whether metrics collection is active
	enabled bool
)

// InitRegistry creates the global Prometheus registry and enables metrics
// collection. Must be called before any New*Metrics constructor.
//
// Go runtime and process collectors are registered alongside the
// application collectors.
func InitRegistry() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	enabled = true
}

// IsEnabled returns whether metrics collection is enabled
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the global Prometheus registry.
// Returns nil if InitRegistry has not been called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Handler returns an HTTP handler that serves the registry in the
// Prometheus exposition format.
func Handler() http.Handler {
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
