package metrics

import (
	"time"
)

// BroadcastMetrics provides observability for the broadcast server's
// subscriber table and push delivery.
//
// This interface is optional - pass nil to disable metrics collection
// with zero overhead.
type BroadcastMetrics interface {
	// SetSubscribers updates the current number of open streams.
	SetSubscribers(count int)

	// RecordStreamOpened increments the total opened streams counter.
	RecordStreamOpened()

	// RecordStreamClosed increments the total closed streams counter.
	// reason can be: "close_stream", "push_failure", "disconnect"
	RecordStreamClosed(reason string)

	// RecordNotification records a message fan-out with the number of
	// intended receivers, the number actually delivered, and the time
	// taken to push to all of them.
	RecordNotification(receivers int, delivered int, duration time.Duration)
}

// NewBroadcastMetrics creates a new Prometheus-backed BroadcastMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBroadcastMetrics() BroadcastMetrics {
	if !IsEnabled() {
		return nil
	}

	return newPrometheusBroadcastMetrics()
}

// newPrometheusBroadcastMetrics is implemented in pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusBroadcastMetrics func() BroadcastMetrics

// RegisterBroadcastMetricsConstructor registers the Prometheus broadcast
// metrics constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterBroadcastMetricsConstructor(constructor func() BroadcastMetrics) {
	newPrometheusBroadcastMetrics = constructor
}
