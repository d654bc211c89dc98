package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics contains Prometheus metrics for the user admin screen.
type Metrics struct {
	UsersAPIRequests       *prometheus.CounterVec
	UsersAPIDuration       *prometheus.HistogramVec
	Operations             *prometheus.CounterVec
	ActiveViews            prometheus.Gauge
	NotificationsPublished *prometheus.CounterVec
	WebSocketConnections   prometheus.Gauge
}

// New creates and registers the metrics with the given registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		UsersAPIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "useradmin_users_api_requests_total",
				Help: "Total number of requests sent to the users API",
			},
			[]string{"operation", "status"}, // status: success/failed
		),
		UsersAPIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "useradmin_users_api_request_duration_seconds",
				Help:    "Round trip time of users API requests",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "useradmin_table_operations_total",
				Help: "Total number of user table operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		ActiveViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "useradmin_active_views",
			Help: "Current number of live table views",
		}),
		NotificationsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "useradmin_notifications_published_total",
				Help: "Total number of toast notifications published",
			},
			[]string{"kind"},
		),
		WebSocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "useradmin_websocket_connections",
			Help: "Current number of connected websocket clients",
		}),
	}

	registerer.MustRegister(
		m.UsersAPIRequests,
		m.UsersAPIDuration,
		m.Operations,
		m.ActiveViews,
		m.NotificationsPublished,
		m.WebSocketConnections,
	)

	return m
}

// ObserveRequest records one users API round trip.
func (m *Metrics) ObserveRequest(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.UsersAPIRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.UsersAPIDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveOperation records the outcome of a table operation (load, delete, edit).
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveNotification counts a published toast by kind.
func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.NotificationsPublished.WithLabelValues(kind).Inc()
}

// SetActiveViews reports the number of live views.
func (m *Metrics) SetActiveViews(n int) {
	if m == nil {
		return
	}
	m.ActiveViews.Set(float64(n))
}

// SetWebSocketConnections reports the number of connected clients.
func (m *Metrics) SetWebSocketConnections(n int) {
	if m == nil {
		return
	}
	m.WebSocketConnections.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}
