package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
)

type staticChecker []httpserver.ComponentStatus

func (s staticChecker) GetHealthStatus(context.Context) []httpserver.ComponentStatus {
	return s
}

func TestHealthEndpoints(t *testing.T) {
	healthy := httpserver.ComponentStatus{Name: "hub", Status: httpserver.StatusHealthy}
	degraded := httpserver.ComponentStatus{Name: "views", Status: httpserver.StatusDegraded, Message: "at capacity"}
	down := httpserver.ComponentStatus{Name: "redis", Status: httpserver.StatusUnhealthy, Message: "refused"}

	tests := []struct {
		name        string
		checker     httpserver.HealthChecker
		path        string
		wantCode    int
		wantStatus  string
		wantPayload int
	}{
		{name: "liveness ignores components", checker: staticChecker{down}, path: "/health", wantCode: http.StatusOK, wantStatus: httpserver.StatusHealthy},
		{name: "ready without checker", path: "/ready", wantCode: http.StatusOK, wantStatus: httpserver.StatusReady},
		{name: "ready when degraded", checker: staticChecker{healthy, degraded}, path: "/ready", wantCode: http.StatusOK, wantStatus: httpserver.StatusReady, wantPayload: 2},
		{name: "not ready when unhealthy", checker: staticChecker{healthy, down}, path: "/ready", wantCode: http.StatusServiceUnavailable, wantStatus: httpserver.StatusNotReady, wantPayload: 2},
		{name: "details healthy", checker: staticChecker{healthy}, path: "/health/details", wantCode: http.StatusOK, wantStatus: httpserver.StatusHealthy, wantPayload: 1},
		{name: "details degraded", checker: staticChecker{degraded, healthy}, path: "/health/details", wantCode: http.StatusOK, wantStatus: httpserver.StatusDegraded, wantPayload: 2},
		{name: "details unhealthy wins", checker: staticChecker{degraded, down}, path: "/health/details", wantCode: http.StatusServiceUnavailable, wantStatus: httpserver.StatusUnhealthy, wantPayload: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			httpserver.NewHealthEndpoints(tt.checker).Register(e)

			rec := do(e, http.MethodGet, tt.path)
			require.Equal(t, tt.wantCode, rec.Code)

			var body httpserver.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Len(t, body.Components, tt.wantPayload)
		})
	}
}

func TestRouter_RegisterHealthEndpointsWithChecker(t *testing.T) {
	e := echo.New()
	router := httpserver.NewRouter(e, httpserver.DefaultRouterConfig())
	router.RegisterHealthEndpointsWithChecker(nil)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ready").Code)
}

func TestOverall(t *testing.T) {
	assert.Equal(t, httpserver.StatusHealthy, httpserver.Overall(nil))
	assert.Equal(t, httpserver.StatusDegraded, httpserver.Overall([]httpserver.ComponentStatus{
		{Status: httpserver.StatusHealthy}, {Status: httpserver.StatusDegraded},
	}))
	assert.Equal(t, httpserver.StatusUnhealthy, httpserver.Overall([]httpserver.ComponentStatus{
		{Status: httpserver.StatusUnhealthy}, {Status: httpserver.StatusDegraded},
	}))
}
