package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Rate limit defaults.
const (
	DefaultRateLimit       = 60
	DefaultRateLimitWindow = time.Minute
	DefaultBurstSize       = 10
)

const rateLimitMessage = "Слишком много запросов. Попробуйте позже."

// ErrRateLimitExceeded is returned to clients that went over the limit.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimitStore counts requests per key inside a window.
type RateLimitStore interface {
	// Increment increments the counter for the given key and returns the new count.
	// It also sets the expiration time if the key is new.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// GetCount returns the current count for the given key.
	GetCount(ctx context.Context, key string) (int64, error)

	// GetTTL returns the remaining TTL for the given key.
	GetTTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Logger *slog.Logger

	// Store is the counter backend. A nil store disables limiting.
	Store RateLimitStore

	// Limit is the maximum number of requests allowed per window.
	Limit int

	// Window is the time window for rate limiting.
	Window time.Duration

	// BurstSize is added to Limit.
	BurstSize int

	// KeyFunc builds the counter key. Defaults to the client IP.
	KeyFunc func(c echo.Context) string

	// SkipPaths are paths that don't require rate limiting.
	SkipPaths []string

	// Message is shown when the limit is exceeded.
	Message string

	// ExceedHandler replaces the default 429 response.
	ExceedHandler func(c echo.Context, remaining time.Duration) error
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Logger:    slog.Default(),
		Limit:     DefaultRateLimit,
		Window:    DefaultRateLimitWindow,
		BurstSize: DefaultBurstSize,
		SkipPaths: []string{"/health", "/ready"},
		Message:   rateLimitMessage,
	}
}

// RateLimit returns a rate limiting middleware with the given configuration.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Limit <= 0 {
		config.Limit = DefaultRateLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitWindow
	}
	if config.Message == "" {
		config.Message = rateLimitMessage
	}

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			if _, ok := skipPaths[path]; ok {
				return next(c)
			}
			if config.Store == nil {
				return next(c)
			}

			key := generateRateLimitKey(c, config.KeyFunc)
			ctx := c.Request().Context()

			count, err := config.Store.Increment(ctx, key, config.Window)
			if err != nil {
				config.Logger.Error("failed to increment rate limit counter",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				// Fail open
				return next(c)
			}

			totalLimit := int64(config.Limit + config.BurstSize)
			remaining := max(totalLimit-count, 0)

			c.Response().Header().Set("X-Ratelimit-Limit", strconv.FormatInt(totalLimit, 10))
			c.Response().Header().Set("X-Ratelimit-Remaining", strconv.FormatInt(remaining, 10))

			ttl, err := config.Store.GetTTL(ctx, key)
			if err == nil && ttl > 0 {
				resetTime := time.Now().Add(ttl).Unix()
				c.Response().Header().Set("X-Ratelimit-Reset", strconv.FormatInt(resetTime, 10))
			}

			if count > totalLimit {
				config.Logger.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.Int64("count", count),
					slog.Int64("limit", totalLimit),
					slog.String("path", path),
					slog.String("remote_ip", c.RealIP()),
				)

				if config.ExceedHandler != nil {
					return config.ExceedHandler(c, ttl)
				}
				return respondRateLimitError(c, config.Message, ttl)
			}

			return next(c)
		}
	}
}

func generateRateLimitKey(c echo.Context, keyFunc func(c echo.Context) string) string {
	if keyFunc != nil {
		return keyFunc(c)
	}
	return fmt.Sprintf("ratelimit:ip:%s", c.RealIP())
}

func respondRateLimitError(c echo.Context, message string, retryAfter time.Duration) error {
	if retryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}

	if WantsHTML(c) {
		return c.HTML(http.StatusTooManyRequests,
			`<div class="alert alert-error" role="alert">`+message+`</div>`)
	}

	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"success": false,
		"error": map[string]any{
			"code":        "RATE_LIMIT_EXCEEDED",
			"message":     message,
			"retry_after": int64(retryAfter.Seconds()),
		},
	})
}

// RateLimitByView limits each client per table view, so one busy tab does not
// starve the others. Requests without a view are limited by client address.
func RateLimitByView(config RateLimitConfig) echo.MiddlewareFunc {
	config.KeyFunc = func(c echo.Context) string {
		if viewID := c.Param(ViewParam); viewID != "" {
			return fmt.Sprintf("ratelimit:view:%s:ip:%s", viewID, c.RealIP())
		}
		return fmt.Sprintf("ratelimit:ip:%s", c.RealIP())
	}
	return RateLimit(config)
}

// MemoryRateLimitStore keeps counters in process memory.
type MemoryRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryRateLimitStore creates a new in-memory rate limit store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		counts: make(map[string]*rateLimitEntry),
	}
}

// Increment increments the counter for the given key.
func (s *MemoryRateLimitStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if entry, ok := s.counts[key]; ok && now.Before(entry.expiresAt) {
		entry.count++
		return entry.count, nil
	}

	// Expired entries are replaced here, which keeps the map bounded by active keys
	s.counts[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	return 1, nil
}

// GetCount returns the current count for the given key.
func (s *MemoryRateLimitStore) GetCount(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counts[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

// GetTTL returns the remaining TTL for the given key.
func (s *MemoryRateLimitStore) GetTTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counts[key]
	if !ok {
		return 0, nil
	}
	return max(time.Until(entry.expiresAt), 0), nil
}

// Reset clears all rate limit entries.
func (s *MemoryRateLimitStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[string]*rateLimitEntry)
}
