package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/talko/pkg/metrics"
)

// broadcastMetrics is the Prometheus implementation of metrics.BroadcastMetrics.
type broadcastMetrics struct {
	subscribers    prometheus.Gauge
	streamsOpened  prometheus.Counter
	streamsClosed  *prometheus.CounterVec
	notifications  prometheus.Counter
	deliveries     *prometheus.CounterVec
	notifyDuration prometheus.Histogram
}

// NewBroadcastMetrics creates a new Prometheus-backed BroadcastMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBroadcastMetrics() metrics.BroadcastMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &broadcastMetrics{
		subscribers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "talko_broadcast_subscribers",
				Help: "Current number of open notification streams",
			},
		),
		streamsOpened: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "talko_broadcast_streams_opened_total",
				Help: "Total number of notification streams opened",
			},
		),
		streamsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_broadcast_streams_closed_total",
				Help: "Total number of notification streams closed by reason",
			},
			[]string{"reason"}, // "close_stream", "push_failure", "disconnect"
		),
		notifications: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "talko_broadcast_notifications_total",
				Help: "Total number of message fan-outs processed",
			},
		),
		deliveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "talko_broadcast_deliveries_total",
				Help: "Total number of per-subscriber push attempts by status",
			},
			[]string{"status"}, // "delivered", "failed"
		),
		notifyDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "talko_broadcast_notify_duration_milliseconds",
				Help: "Duration of message fan-out in milliseconds",
				Buckets: []float64{
					0.5,  // 500us - no subscribers
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms
					1000, // 1s
					5000, // 5s - per-push timeout
				},
			},
		),
	}
}

func (m *broadcastMetrics) SetSubscribers(count int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(count))
}

func (m *broadcastMetrics) RecordStreamOpened() {
	if m == nil {
		return
	}
	m.streamsOpened.Inc()
}

func (m *broadcastMetrics) RecordStreamClosed(reason string) {
	if m == nil {
		return
	}
	m.streamsClosed.WithLabelValues(reason).Inc()
}

func (m *broadcastMetrics) RecordNotification(receivers, delivered int, duration time.Duration) {
	if m == nil {
		return
	}

	m.notifications.Inc()
	m.notifyDuration.Observe(duration.Seconds() * 1000)

	if delivered > 0 {
		m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	}
	if failed := receivers - delivered; failed > 0 {
		m.deliveries.WithLabelValues("failed").Add(float64(failed))
	}
}
