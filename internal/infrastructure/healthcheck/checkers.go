package healthcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is the part of a go-redis client the checker uses.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker pings the Redis server behind the notification bus.
type RedisChecker struct {
	client Pinger
}

// NewRedisChecker creates a checker for client.
func NewRedisChecker(client Pinger) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name implements Checker.
func (c *RedisChecker) Name() string { return "redis" }

// Check implements Checker.
func (c *RedisChecker) Check(ctx context.Context) Result {
	if c.client == nil {
		return unhealthy("client not initialized")
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unhealthy(err.Error())
	}
	return healthy("")
}

// RunningChecker reports a background loop such as the websocket hub or the bus.
type RunningChecker struct {
	name      string
	isRunning func() bool
	// whenDown is the status reported while the loop is stopped.
	whenDown func(string) Result
}

// NewRunningChecker reports unhealthy while isRunning returns false.
func NewRunningChecker(name string, isRunning func() bool) *RunningChecker {
	return &RunningChecker{name: name, isRunning: isRunning, whenDown: unhealthy}
}

// NewOptionalRunningChecker reports degraded while isRunning returns false.
func NewOptionalRunningChecker(name string, isRunning func() bool) *RunningChecker {
	return &RunningChecker{name: name, isRunning: isRunning, whenDown: degraded}
}

// Name implements Checker.
func (c *RunningChecker) Name() string { return c.name }

// Check implements Checker.
func (c *RunningChecker) Check(context.Context) Result {
	if c.isRunning == nil || !c.isRunning() {
		return c.whenDown(c.name + " not running")
	}
	return healthy("")
}

// ViewCounter is implemented by the view registry.
type ViewCounter interface {
	Len() int
}

// ViewsChecker degrades once the registry is full and starts evicting open pages.
type ViewsChecker struct {
	views    ViewCounter
	maxViews int
}

// NewViewsChecker creates a checker for a registry capped at maxViews.
func NewViewsChecker(views ViewCounter, maxViews int) *ViewsChecker {
	return &ViewsChecker{views: views, maxViews: maxViews}
}

// Name implements Checker.
func (c *ViewsChecker) Name() string { return "views" }

// Check implements Checker.
func (c *ViewsChecker) Check(context.Context) Result {
	n := c.views.Len()
	msg := fmt.Sprintf("%d of %d views open", n, c.maxViews)
	if c.maxViews > 0 && n >= c.maxViews {
		return degraded(msg)
	}
	return healthy(msg)
}

// UsersAPIChecker tracks the outcome of recent users API requests. It is fed by
// the API client as a request observer, so probes never call the remote API.
type UsersAPIChecker struct {
	mu        sync.RWMutex
	lastErr   error
	lastOp    string
	lastAt    time.Time
	failures  int
	threshold int
}

// DefaultFailureThreshold is the number of consecutive failures that turn degraded into unhealthy.
const DefaultFailureThreshold = 5

// NewUsersAPIChecker creates a checker. threshold <= 0 uses DefaultFailureThreshold.
func NewUsersAPIChecker(threshold int) *UsersAPIChecker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &UsersAPIChecker{threshold: threshold}
}

// ObserveRequest records a finished request.
func (c *UsersAPIChecker) ObserveRequest(operation string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastOp, c.lastErr, c.lastAt = operation, err, time.Now()
	if err != nil {
		c.failures++
	} else {
		c.failures = 0
	}
}

// Name implements Checker.
func (c *UsersAPIChecker) Name() string { return "users_api" }

// Check implements Checker.
func (c *UsersAPIChecker) Check(context.Context) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.lastAt.IsZero():
		return healthy("no requests yet")
	case c.lastErr == nil:
		return healthy("last " + c.lastOp + " succeeded")
	case c.failures >= c.threshold:
		return unhealthy(fmt.Sprintf("%d consecutive failures: %v", c.failures, c.lastErr))
	default:
		return degraded(fmt.Sprintf("last %s failed: %v", c.lastOp, c.lastErr))
	}
}
