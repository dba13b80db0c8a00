package metrics

import (
	"time"
)

// AdapterMetrics provides observability for the TCP server adapters.
//
// Implementations can collect metrics about RPC requests, connection
// lifecycle, frame sizes, and overload shedding. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	m := metrics.NewAdapterMetrics()
//	adapter := data.New(config, store, m)
//
//	// Without metrics (pass nil for zero overhead)
//	adapter := data.New(config, store, nil)
type AdapterMetrics interface {
	// RecordRequest records a completed RPC request with its method name,
	// serving endpoint, duration, and outcome.
	//
	// Parameters:
	//   - server: Serving endpoint ("data" or "broadcast")
	//   - method: RPC method name (e.g., "GetUser", "InsertMessage")
	//   - duration: Time taken to process the request
	//   - errorCode: Protocol error code if the request failed
	//     (e.g., "not_found", "store_error"), empty if successful
	RecordRequest(server string, method string, duration time.Duration, errorCode string)

	// RecordRequestStart increments the in-flight request counter.
	// Should be called when starting to process a request.
	RecordRequestStart(server string, method string)

	// RecordRequestEnd decrements the in-flight request counter.
	// Should be called when request processing completes.
	RecordRequestEnd(server string, method string)

	// RecordFrameBytes records the payload size of a wire frame.
	//
	// Parameters:
	//   - server: Serving endpoint
	//   - direction: "read" or "write"
	//   - bytes: Payload size in bytes
	RecordFrameBytes(server string, direction string, bytes int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(server string, count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted(server string)

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed(server string)

	// RecordConnectionForceClosed increments the force-closed connections counter.
	// Called when connections are forcibly closed after shutdown timeout.
	RecordConnectionForceClosed(server string)

	// RecordConnectionRejected increments the rejected connections counter.
	// Called when a connection is turned away because the worker limit
	// is reached.
	RecordConnectionRejected(server string)
}

// NewAdapterMetrics creates a new Prometheus-backed AdapterMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to adapters, which
// results in zero overhead.
func NewAdapterMetrics() AdapterMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusAdapterMetrics()
}

// newPrometheusAdapterMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusAdapterMetrics func() AdapterMetrics

// RegisterAdapterMetricsConstructor registers the Prometheus adapter metrics
// constructor. Called by pkg/metrics/prometheus during package initialization.
func RegisterAdapterMetricsConstructor(constructor func() AdapterMetrics) {
	newPrometheusAdapterMetrics = constructor
}
