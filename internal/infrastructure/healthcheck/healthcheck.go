// Package healthcheck reports the health of the components the admin page depends on.
package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
)

// DefaultCheckTimeout bounds a single component check.
const DefaultCheckTimeout = 2 * time.Second

// Checker checks one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// Result is the outcome of one check.
type Result struct {
	Status    string
	Message   string
	CheckedAt time.Time
}

func healthy(message string) Result {
	return Result{Status: httpserver.StatusHealthy, Message: message, CheckedAt: time.Now()}
}

func degraded(message string) Result {
	return Result{Status: httpserver.StatusDegraded, Message: message, CheckedAt: time.Now()}
}

func unhealthy(message string) Result {
	return Result{Status: httpserver.StatusUnhealthy, Message: message, CheckedAt: time.Now()}
}

// Aggregator runs every checker and implements httpserver.HealthChecker.
type Aggregator struct {
	checkers []Checker
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over checkers.
func NewAggregator(logger *slog.Logger, checkers ...Checker) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		checkers: checkers,
		timeout:  DefaultCheckTimeout,
		logger:   logger,
	}
}

// Add appends a checker.
func (a *Aggregator) Add(c Checker) {
	a.checkers = append(a.checkers, c)
}

// GetHealthStatus implements httpserver.HealthChecker.
func (a *Aggregator) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	statuses := make([]httpserver.ComponentStatus, 0, len(a.checkers))

	for _, checker := range a.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
		result := checker.Check(checkCtx)
		cancel()

		if result.Status == httpserver.StatusUnhealthy {
			a.logger.WarnContext(ctx, "health check failed",
				slog.String("component", checker.Name()),
				slog.String("message", result.Message),
			)
		}

		statuses = append(statuses, httpserver.ComponentStatus{
			Name:    checker.Name(),
			Status:  result.Status,
			Message: result.Message,
		})
	}

	return statuses
}
