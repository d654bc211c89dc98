// Package httpserver provides HTTP server infrastructure components.
package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health status values shared by every health endpoint.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	// StatusDegraded still serves traffic, e.g. a view registry at capacity.
	StatusDegraded = "degraded"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the response for health endpoints.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// HealthChecker reports the health of the running components.
// Implementations must respect ctx, it comes from the probe request.
type HealthChecker interface {
	GetHealthStatus(ctx context.Context) []ComponentStatus
}

// HealthEndpoints serves /health, /ready and /health/details.
type HealthEndpoints struct {
	checker HealthChecker
}

// NewHealthEndpoints creates a new HealthEndpoints instance. checker may be nil.
func NewHealthEndpoints(checker HealthChecker) *HealthEndpoints {
	return &HealthEndpoints{checker: checker}
}

// Register registers the endpoints on e:
//   - GET /health is the liveness probe and always answers 200
//   - GET /ready answers 503 while any component is unhealthy
//   - GET /health/details lists every component
func (h *HealthEndpoints) Register(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/ready", h.handleReady)
	e.GET("/health/details", h.handleHealthDetails)
}

func (h *HealthEndpoints) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy})
}

func (h *HealthEndpoints) handleReady(c echo.Context) error {
	components := h.components(c.Request().Context())

	if Overall(components) == StatusUnhealthy {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:     StatusNotReady,
			Components: components,
		})
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:     StatusReady,
		Components: components,
	})
}

func (h *HealthEndpoints) handleHealthDetails(c echo.Context) error {
	components := h.components(c.Request().Context())
	overall := Overall(components)

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:     overall,
		Components: components,
	})
}

func (h *HealthEndpoints) components(ctx context.Context) []ComponentStatus {
	if h.checker == nil {
		return nil
	}
	return h.checker.GetHealthStatus(ctx)
}

// Overall folds component statuses: unhealthy wins over degraded, degraded over healthy.
func Overall(components []ComponentStatus) string {
	overall := StatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// RegisterHealthEndpointsWithChecker registers health endpoints with a HealthChecker.
func (r *Router) RegisterHealthEndpointsWithChecker(checker HealthChecker) {
	NewHealthEndpoints(checker).Register(r.echo)
}
