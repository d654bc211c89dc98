package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lllypuk/useradmin/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Registration(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := metrics.New(registry)

	require.NotNil(t, m.UsersAPIRequests)
	require.NotNil(t, m.UsersAPIDuration)
	require.NotNil(t, m.Operations)
	require.NotNil(t, m.ActiveViews)
	require.NotNil(t, m.NotificationsPublished)
	require.NotNil(t, m.WebSocketConnections)

	// Registering twice on the same registry must panic
	assert.Panics(t, func() { metrics.New(registry) })
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveRequest("list", 120*time.Millisecond, nil)
	m.ObserveRequest("list", 80*time.Millisecond, nil)
	m.ObserveRequest("delete", time.Second, errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.UsersAPIRequests.WithLabelValues("list", metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UsersAPIRequests.WithLabelValues("delete", metrics.OutcomeFailed)), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.UsersAPIDuration))
}

func TestMetrics_ObserveOperation(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveOperation("edit", nil)
	m.ObserveOperation("edit", errors.New("invalid"))
	m.ObserveOperation("edit", errors.New("invalid"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues("edit", metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Operations.WithLabelValues("edit", metrics.OutcomeFailed)), 0)
}

func TestMetrics_Gauges(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.SetActiveViews(3)
	m.SetWebSocketConnections(2)
	m.ObserveNotification("success")

	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveViews), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.WebSocketConnections), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsPublished.WithLabelValues("success")), 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("list", time.Second, nil)
		m.ObserveOperation("load", nil)
		m.ObserveNotification("error")
		m.SetActiveViews(1)
		m.SetWebSocketConnections(1)
	})
}
