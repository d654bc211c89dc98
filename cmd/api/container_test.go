package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/useradmin/internal/config"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	"github.com/lllypuk/useradmin/internal/infrastructure/notify"
	"github.com/lllypuk/useradmin/internal/infrastructure/reqres"
	"github.com/lllypuk/useradmin/internal/middleware"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.App.Mode = config.AppModeMock
	return cfg
}

func newMockContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()

	c, err := NewContainer(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewContainer_MockMode(t *testing.T) {
	c := newMockContainer(t, mockConfig())

	assert.IsType(t, &reqres.FixtureClient{}, c.UsersAPI)
	assert.IsType(t, &notify.InMemoryBus{}, c.Bus)
	assert.IsType(t, &middleware.MemoryRateLimitStore{}, c.RateLimitStore)
	assert.Nil(t, c.Redis)
	assert.NotNil(t, c.Views)
	assert.NotNil(t, c.TemplateRenderer)
	assert.NotNil(t, c.UserTableHandler)
	assert.NotNil(t, c.WSHandler)
}

func TestNewContainer_RealModeUsesHTTPClient(t *testing.T) {
	c := newMockContainer(t, config.DefaultConfig())

	assert.IsType(t, &reqres.Client{}, c.UsersAPI)
}

func TestNewContainer_WithUsersAPI(t *testing.T) {
	fixture := reqres.NewFixtureClient(nil)

	c, err := NewContainer(config.DefaultConfig(), WithLogger(quietLogger()), WithUsersAPI(fixture))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Same(t, fixture, c.UsersAPI)
}

func TestNewContainer_RateLimitDisabled(t *testing.T) {
	cfg := mockConfig()
	cfg.RateLimit.Enabled = false

	c := newMockContainer(t, cfg)

	assert.Nil(t, c.RateLimitStore)
	assert.Nil(t, rateLimitMiddleware(c))
}

func TestNewContainer_RedisUnreachable(t *testing.T) {
	cfg := mockConfig()
	cfg.Notify.Type = config.NotifyTypeRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := NewContainer(cfg, WithLogger(quietLogger()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestContainer_Close_NoResources(t *testing.T) {
	c := &Container{Logger: quietLogger()}
	assert.NoError(t, c.Close())
}

func TestContainer_HealthBeforeAndAfterStart(t *testing.T) {
	c := newMockContainer(t, mockConfig())

	before := c.Health.GetHealthStatus(context.Background())
	assert.Equal(t, httpserver.StatusUnhealthy, httpserver.Overall(before), "hub is not running yet")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c.Start(ctx)

	require.Eventually(t, func() bool {
		return httpserver.Overall(c.Health.GetHealthStatus(context.Background())) == httpserver.StatusHealthy
	}, waitFor, tick)

	names := make([]string, 0)
	for _, s := range c.Health.GetHealthStatus(context.Background()) {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"websocket_hub", "notify_bus", "views", "users_api"}, names)
}

func TestRequestObservers_FanOut(t *testing.T) {
	var calls []string
	observers := requestObservers{
		observerFunc(func(op string) { calls = append(calls, "a:"+op) }),
		observerFunc(func(op string) { calls = append(calls, "b:"+op) }),
	}

	observers.ObserveRequest("list", 0, nil)

	assert.Equal(t, []string{"a:list", "b:list"}, calls)
}
