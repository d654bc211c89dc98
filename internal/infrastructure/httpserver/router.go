package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lllypuk/useradmin/internal/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger

	// RateLimitMiddleware guards the routes that change a view. Nil disables it.
	RateLimitMiddleware echo.MiddlewareFunc

	LoggingConfig  middleware.LoggingConfig
	RecoveryConfig middleware.RecoveryConfig

	// APIPrefix is the prefix of the JSON routes. Default is "/api/v1".
	APIPrefix string
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Logger:         slog.Default(),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RecoveryConfig: middleware.DefaultRecoveryConfig(),
		APIPrefix:      "/api/v1",
	}
}

// Router owns the middleware chain and the route groups.
type Router struct {
	echo   *echo.Echo
	config RouterConfig
	logger *slog.Logger

	pages     *echo.Group
	mutations *echo.Group
	api       *echo.Group
}

// NewRouter creates a new router with the given configuration.
func NewRouter(e *echo.Echo, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIPrefix == "" {
		config.APIPrefix = "/api/v1"
	}

	r := &Router{
		echo:   e,
		config: config,
		logger: config.Logger,
	}

	r.setupGlobalMiddleware()
	r.setupRouteGroups()

	return r
}

func (r *Router) setupGlobalMiddleware() {
	// Recovery must be first to catch all panics
	r.echo.Use(middleware.RecoveryWithConfig(r.config.RecoveryConfig))
	r.echo.Use(middleware.Logging(r.config.LoggingConfig))
}

func (r *Router) setupRouteGroups() {
	r.pages = r.echo.Group("")

	if r.config.RateLimitMiddleware != nil {
		r.mutations = r.echo.Group("", r.config.RateLimitMiddleware)
	} else {
		r.mutations = r.pages
		r.logger.Debug("no rate limit configured, view mutations are unthrottled")
	}

	r.api = r.echo.Group(r.config.APIPrefix)
}

// Echo returns the underlying Echo instance.
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// Pages returns the group for full pages and read-only partials.
func (r *Router) Pages() *echo.Group {
	return r.pages
}

// Mutations returns the group for requests that change a view.
func (r *Router) Mutations() *echo.Group {
	return r.mutations
}

// API returns the JSON route group.
func (r *Router) API() *echo.Group {
	return r.api
}

// RouteRegistrar registers its routes on a Router.
type RouteRegistrar interface {
	RegisterRoutes(r *Router)
}

// RegisterAll registers all route registrars with the router.
func (r *Router) RegisterAll(registrars ...RouteRegistrar) {
	for _, registrar := range registrars {
		registrar.RegisterRoutes(r)
	}
}

// PrintRoutes logs all registered routes at debug level.
func (r *Router) PrintRoutes() {
	for _, route := range r.echo.Routes() {
		r.logger.Debug("registered route",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
		)
	}
}

// RegisterMetricsEndpoint exposes gatherer on GET /metrics.
// A nil gatherer serves the default registry.
func (r *Router) RegisterMetricsEndpoint(gatherer prometheus.Gatherer) {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.echo.GET("/metrics", echo.WrapHandler(handler))
}
