package metrics

import (
	"time"
)

// StoreMetrics provides observability for chat store operations.
//
// This interface is optional - pass nil to disable metrics collection
// with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	storeMetrics := metrics.NewStoreMetrics()
//	store := instrument.Wrap(store, storeMetrics)
//
//	// Without metrics (zero overhead)
//	store := instrument.Wrap(store, nil)
type StoreMetrics interface {
	// ObserveOperation records a store operation with its duration and outcome.
	//
	// Parameters:
	//   - operation: Store method name (e.g., "GetUser", "CreateMessage")
	//   - duration: Time taken to perform the operation
	//   - err: Error if operation failed, nil if successful
	ObserveOperation(operation string, duration time.Duration, err error)
}

// NewStoreMetrics creates a new Prometheus-backed StoreMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to instrument.Wrap,
// which returns the store unwrapped.
func NewStoreMetrics() StoreMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusStoreMetrics()
}

// newPrometheusStoreMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusStoreMetrics func() StoreMetrics

// RegisterStoreMetricsConstructor registers the Prometheus store metrics
// constructor. Called by pkg/metrics/prometheus during package initialization.
func RegisterStoreMetricsConstructor(constructor func() StoreMetrics) {
	newPrometheusStoreMetrics = constructor
}

// ObserveOperation records a store operation on m if metrics are enabled.
//
// Example usage:
//
//	start := time.Now()
//	user, err := store.GetUser(ctx, id)
//	metrics.ObserveOperation(m, "GetUser", time.Since(start), err)
func ObserveOperation(m StoreMetrics, operation string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveOperation(operation, duration, err)
	}
}
