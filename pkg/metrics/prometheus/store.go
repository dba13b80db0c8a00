package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/talko/pkg/metrics"
)

// storeMetrics is the Prometheus implementation of metrics.StoreMetrics.
type storeMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates a new Prometheus-backed StoreMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() metrics.StoreMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &storeMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_store_operations_total",
				Help: "Total number of chat store operations by operation and status",
			},
			[]string{"operation", "status"}, // status: "ok", "error"
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "talko_store_operation_duration_milliseconds",
				Help: "Duration of chat store operations in milliseconds",
				Buckets: []float64{
					0.01, // 10us - memory store
					0.1,  // 100us
					0.5,  // 500us
					1,    // 1ms - embedded stores
					5,    // 5ms
					10,   // 10ms - database roundtrip
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
				},
			},
			[]string{"operation"},
		),
	}
}

func (m *storeMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}
