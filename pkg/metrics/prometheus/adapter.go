// Package prometheus provides Prometheus-backed implementations of the
// metrics interfaces in pkg/metrics.
//
// Import this package for its side effects to make the implementations
// available to the typed constructors:
//
//	import _ "github.com/marmos91/talko/pkg/metrics/prometheus"
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/talko/pkg/metrics"
)

func init() {
	metrics.RegisterAdapterMetricsConstructor(NewAdapterMetrics)
	metrics.RegisterBroadcastMetricsConstructor(NewBroadcastMetrics)
	metrics.RegisterStoreMetricsConstructor(NewStoreMetrics)
}

// adapterMetrics is the Prometheus implementation of metrics.AdapterMetrics.
type adapterMetrics struct {
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestsInFlight  *prometheus.GaugeVec
	frameBytes        *prometheus.HistogramVec
	activeConnections *prometheus.GaugeVec
	connsAccepted     *prometheus.CounterVec
	connsClosed       *prometheus.CounterVec
	connsForceClosed  *prometheus.CounterVec
	connsRejected     *prometheus.CounterVec
}

// NewAdapterMetrics creates a new Prometheus-backed AdapterMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAdapterMetrics() metrics.AdapterMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &adapterMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_rpc_requests_total",
				Help: "Total number of RPC requests by server, method and status",
			},
			[]string{"server", "method", "status"}, // status: "ok" or error code
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "talko_rpc_request_duration_milliseconds",
				Help: "Duration of RPC request processing in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - memory store lookups
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms - typical database roundtrip
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms - slow fan-out
					1000, // 1s
					5000, // 5s - broadcast timeout
				},
			},
			[]string{"server", "method"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "talko_rpc_requests_in_flight",
				Help: "Current number of RPC requests being processed",
			},
			[]string{"server", "method"},
		),
		frameBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "talko_rpc_frame_bytes",
				Help: "Distribution of wire frame payload sizes",
				Buckets: []float64{
					64,      // tiny requests
					256,     // single message
					1024,    // 1KB
					4096,    // 4KB
					16384,   // 16KB
					65536,   // 64KB - large history pages
					262144,  // 256KB
					1048576, // 1MB - frame size cap
				},
			},
			[]string{"server", "direction"}, // direction: "read", "write"
		),
		activeConnections: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "talko_connections_active",
				Help: "Current number of active client connections",
			},
			[]string{"server"},
		),
		connsAccepted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_connections_accepted_total",
				Help: "Total number of accepted client connections",
			},
			[]string{"server"},
		),
		connsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_connections_closed_total",
				Help: "Total number of closed client connections",
			},
			[]string{"server"},
		),
		connsForceClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_connections_force_closed_total",
				Help: "Total number of connections forcibly closed after shutdown timeout",
			},
			[]string{"server"},
		),
		connsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_connections_rejected_total",
				Help: "Total number of connections rejected at the worker limit",
			},
			[]string{"server"},
		),
	}
}

func (m *adapterMetrics) RecordRequest(server, method string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}

	status := errorCode
	if status == "" {
		status = "ok"
	}

	m.requests.WithLabelValues(server, method, status).Inc()
	m.requestDuration.WithLabelValues(server, method).Observe(duration.Seconds() * 1000)
}

func (m *adapterMetrics) RecordRequestStart(server, method string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(server, method).Inc()
}

func (m *adapterMetrics) RecordRequestEnd(server, method string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(server, method).Dec()
}

func (m *adapterMetrics) RecordFrameBytes(server, direction string, bytes int) {
	if m == nil {
		return
	}
	if bytes > 0 {
		m.frameBytes.WithLabelValues(server, direction).Observe(float64(bytes))
	}
}

func (m *adapterMetrics) SetActiveConnections(server string, count int32) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(server).Set(float64(count))
}

func (m *adapterMetrics) RecordConnectionAccepted(server string) {
	if m == nil {
		return
	}
	m.connsAccepted.WithLabelValues(server).Inc()
}

func (m *adapterMetrics) RecordConnectionClosed(server string) {
	if m == nil {
		return
	}
	m.connsClosed.WithLabelValues(server).Inc()
}

func (m *adapterMetrics) RecordConnectionForceClosed(server string) {
	if m == nil {
		return
	}
	m.connsForceClosed.WithLabelValues(server).Inc()
}

func (m *adapterMetrics) RecordConnectionRejected(server string) {
	if m == nil {
		return
	}
	m.connsRejected.WithLabelValues(server).Inc()
}
