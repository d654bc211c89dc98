package main

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	"github.com/lllypuk/useradmin/internal/middleware"
	"github.com/lllypuk/useradmin/web"
)

// SetupRoutes configures the middleware chain and every route on e.
func SetupRoutes(e *echo.Echo, c *Container) (*httpserver.Router, error) {
	logging := middleware.DefaultLoggingConfig()
	logging.Logger = c.Logger
	recovery := middleware.DefaultRecoveryConfig()
	recovery.Logger = c.Logger

	routerConfig := httpserver.RouterConfig{
		Logger:              c.Logger,
		RateLimitMiddleware: rateLimitMiddleware(c),
		LoggingConfig:       logging,
		RecoveryConfig:      recovery,
		APIPrefix:           "/api/v1",
	}

	router := httpserver.NewRouter(e, routerConfig)

	e.Renderer = c.TemplateRenderer

	if err := setupStaticRoutes(e); err != nil {
		return nil, err
	}

	router.RegisterHealthEndpointsWithChecker(c.Health)
	router.RegisterMetricsEndpoint(c.MetricsReg)

	router.RegisterAll(c.UserTableHandler, c.WSHandler)

	// Log all registered routes in debug mode
	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router, nil
}

// rateLimitMiddleware throttles view mutations per view and client address.
// It returns nil when rate limiting is disabled.
func rateLimitMiddleware(c *Container) echo.MiddlewareFunc {
	if c.RateLimitStore == nil {
		return nil
	}

	cfg := middleware.DefaultRateLimitConfig()
	cfg.Logger = c.Logger
	cfg.Store = c.RateLimitStore
	cfg.Limit = c.Config.RateLimit.Requests
	cfg.Window = c.Config.RateLimit.Window
	cfg.BurstSize = 0

	c.Logger.Debug("rate limit enabled",
		slog.Int("requests", cfg.Limit),
		slog.Duration("window", cfg.Window),
	)
	return middleware.RateLimitByView(cfg)
}

func setupStaticRoutes(e *echo.Echo) error {
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to setup static routes: %w", err)
	}
	e.StaticFS("/static", staticSub)
	return nil
}
