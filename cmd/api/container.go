// Package main provides the user admin server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	"github.com/lllypuk/useradmin/internal/config"
	httphandler "github.com/lllypuk/useradmin/internal/handler/http"
	wshandler "github.com/lllypuk/useradmin/internal/handler/websocket"
	"github.com/lllypuk/useradmin/internal/infrastructure/healthcheck"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	"github.com/lllypuk/useradmin/internal/infrastructure/metrics"
	"github.com/lllypuk/useradmin/internal/infrastructure/notify"
	"github.com/lllypuk/useradmin/internal/infrastructure/reqres"
	"github.com/lllypuk/useradmin/internal/infrastructure/websocket"
	"github.com/lllypuk/useradmin/internal/middleware"
	"github.com/lllypuk/useradmin/web"
)

// Container initialization timeouts.
const (
	redisPingTimeout = 5 * time.Second
)

// WebSocket client configuration constants.
const (
	defaultWSWriteWait      = 10 * time.Second
	defaultWSMaxMessageSize = 4096
)

// NotificationBus is a notify.Bus that reports whether it is delivering.
type NotificationBus interface {
	notify.Bus
	IsRunning() bool
}

// Container holds all application dependencies and manages their lifecycle.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Redis          *redis.Client
	MetricsReg     *prometheus.Registry
	Metrics        *metrics.Metrics
	UsersAPI       usertable.UsersAPI
	UsersAPIHealth *healthcheck.UsersAPIChecker
	Bus            NotificationBus
	Notifier       *notify.Notifier
	Hub            *websocket.Hub
	Bridge         *websocket.Bridge
	RateLimitStore middleware.RateLimitStore
	Health         *healthcheck.Aggregator

	// Application
	Views *usertable.Registry

	// HTTP
	TemplateRenderer *httphandler.TemplateRenderer
	UserTableHandler *httphandler.UserTableHandler
	WSHandler        *wshandler.Handler
}

// Ensure Aggregator implements httpserver.HealthChecker.
var _ httpserver.HealthChecker = (*healthcheck.Aggregator)(nil)

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// WithUsersAPI replaces the users API client chosen by the app mode.
func WithUsersAPI(api usertable.UsersAPI) ContainerOption {
	return func(c *Container) {
		c.UsersAPI = api
	}
}

// NewContainer creates a new dependency injection container.
// The users API source (real/mock) is determined by config.App.Mode.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logWiringMode()
	c.setupMetrics()

	if err := c.setupRedis(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	c.setupUsersAPI()
	c.setupNotifications()
	c.setupHub()

	if err := c.Bridge.Attach(c.Bus); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.setupViews()
	c.setupRateLimitStore()
	c.setupHealth()

	if err := c.setupHTTPHandlers(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("http handlers: %w", err)
	}

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

func (c *Container) logWiringMode() {
	if c.Config.App.IsMockMode() {
		c.Logger.Warn("container starting in MOCK mode, users API replaced by fixtures",
			slog.Bool("is_development", c.Config.IsDevelopment()),
		)
		return
	}
	c.Logger.Info("container starting in REAL mode",
		slog.String("users_api", c.Config.UsersAPI.BaseURL),
		slog.Bool("is_development", c.Config.IsDevelopment()),
	)
}

func (c *Container) validateWiring() error {
	var errs []error

	if c.UsersAPI == nil {
		errs = append(errs, errors.New("users api not initialized"))
	}
	if c.Bus == nil {
		errs = append(errs, errors.New("notification bus not initialized"))
	}
	if c.Hub == nil {
		errs = append(errs, errors.New("websocket hub not initialized"))
	}
	if c.Views == nil {
		errs = append(errs, errors.New("view registry not initialized"))
	}
	if c.usesRedis() && c.Redis == nil {
		errs = append(errs, errors.New("redis client not initialized"))
	}

	return errors.Join(errs...)
}

func (c *Container) usesRedis() bool {
	return c.Config.Notify.Type == config.NotifyTypeRedis
}

func (c *Container) setupMetrics() {
	c.MetricsReg = prometheus.NewRegistry()
	c.MetricsReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.New(c.MetricsReg)
}

// setupRedis connects to Redis only when the notification bus needs it.
func (c *Container) setupRedis() error {
	if !c.usesRedis() {
		return nil
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	c.Logger.InfoContext(ctx, "connected to Redis", slog.String("addr", c.Config.Redis.Addr))
	return nil
}

func (c *Container) setupUsersAPI() {
	c.UsersAPIHealth = healthcheck.NewUsersAPIChecker(healthcheck.DefaultFailureThreshold)

	if c.UsersAPI != nil {
		return
	}

	if c.Config.App.IsMockMode() {
		c.UsersAPI = reqres.NewFixtureClient(reqres.DemoUsers())
		return
	}

	c.UsersAPI = reqres.NewClient(reqres.Config{
		BaseURL:   c.Config.UsersAPI.BaseURL,
		UserAgent: c.Config.UsersAPI.UserAgent,
		APIKey:    c.Config.UsersAPI.APIKey,
		PerPage:   c.Config.UsersAPI.PerPage,
		Timeout:   c.Config.UsersAPI.Timeout,
		Observer:  requestObservers{c.Metrics, c.UsersAPIHealth},
	})
}

func (c *Container) setupNotifications() {
	if c.usesRedis() {
		c.Bus = notify.NewRedisBus(c.Redis,
			notify.WithLogger(c.Logger),
			notify.WithChannelPrefix(c.Config.Notify.ChannelPrefix),
		)
	} else {
		c.Bus = notify.NewInMemoryBus(c.Logger)
	}

	c.Notifier = notify.NewNotifier(c.Bus, c.Logger, c.Metrics)
	c.Logger.Debug("notification bus initialized", slog.String("type", c.Config.Notify.Type))
}

func (c *Container) setupHub() {
	c.Hub = websocket.NewHub(
		websocket.WithHubLogger(c.Logger),
		websocket.WithMailboxSize(c.Config.WebSocket.MailboxSize),
		websocket.WithConnectionObserver(c.Metrics),
	)
	c.Bridge = websocket.NewBridge(c.Hub)

	c.Logger.Debug("websocket hub initialized")
}

func (c *Container) setupViews() {
	c.Views = usertable.NewRegistry(
		usertable.Dependencies{
			API:      c.UsersAPI,
			Notifier: c.Notifier,
			Logger:   c.Logger,
			Observer: c.Metrics,
		},
		usertable.WithMaxViews(c.Config.Table.MaxViews),
		usertable.WithViewObserver(c.Metrics),
		usertable.WithEvictHook(c.Hub.DropView),
	)
}

// setupRateLimitStore shares counters through Redis when it is connected,
// so every replica sees the same budget.
func (c *Container) setupRateLimitStore() {
	if !c.Config.RateLimit.Enabled {
		return
	}
	if c.Redis != nil {
		c.RateLimitStore = middleware.NewRedisRateLimitStore(
			middleware.NewGoRedisClient(c.Redis),
			c.Config.Notify.ChannelPrefix+"ratelimit:",
		)
		return
	}
	c.RateLimitStore = middleware.NewMemoryRateLimitStore()
}

func (c *Container) setupHealth() {
	c.Health = healthcheck.NewAggregator(c.Logger,
		healthcheck.NewRunningChecker("websocket_hub", c.Hub.IsRunning),
		healthcheck.NewOptionalRunningChecker("notify_bus", c.Bus.IsRunning),
		healthcheck.NewViewsChecker(c.Views, c.Config.Table.MaxViews),
		c.UsersAPIHealth,
	)
	if c.Redis != nil {
		c.Health.Add(healthcheck.NewRedisChecker(c.Redis))
	}
}

func (c *Container) setupHTTPHandlers() error {
	renderer, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{
		FS:     web.TemplatesFS,
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to setup template renderer: %w", err)
	}
	c.TemplateRenderer = renderer

	c.UserTableHandler = httphandler.NewUserTableHandler(c.Views, httphandler.UserTableHandlerConfig{
		Logger:   c.Logger,
		PageSize: c.Config.Table.PageSize,
	})

	c.WSHandler = wshandler.NewHandler(c.Hub, c.Views,
		wshandler.WithHandlerConfig(wshandler.HandlerConfig{
			ReadBufferSize:  c.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: c.Config.WebSocket.WriteBufferSize,
			Logger:          c.Logger,
			ClientConfig: websocket.ClientConfig{
				ReadBufferSize:  c.Config.WebSocket.ReadBufferSize,
				WriteBufferSize: c.Config.WebSocket.WriteBufferSize,
				PingInterval:    c.Config.WebSocket.PingInterval,
				PongWait:        c.Config.WebSocket.PongTimeout,
				WriteWait:       defaultWSWriteWait,
				MaxMessageSize:  defaultWSMaxMessageSize,
			},
		}),
	)

	return nil
}

// Start runs the hub and the notification bus until ctx ends.
// Call before the HTTP server starts accepting requests.
func (c *Container) Start(ctx context.Context) {
	go c.Hub.Run(ctx)

	go func() {
		if err := c.Bus.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("notification bus error", slog.String("error", err.Error()))
		}
	}()

	c.Logger.InfoContext(ctx, "background services started")
}

// Close gracefully closes all container resources.
// Resources are closed in reverse order of initialization.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.Hub != nil {
		c.Hub.Stop()
		c.Logger.Debug("websocket hub stopped")
	}

	if c.Bus != nil {
		if err := c.Bus.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("notification bus shutdown: %w", err))
		} else {
			c.Logger.Debug("notification bus stopped")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}

// requestObservers fans users API request outcomes out to several observers.
type requestObservers []reqres.RequestObserver

func (o requestObservers) ObserveRequest(operation string, d time.Duration, err error) {
	for _, observer := range o {
		observer.ObserveRequest(operation, d, err)
	}
}
