package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRetries     = 2
	defaultInitialBackoff = 50 * time.Millisecond
	defaultMaxBackoff     = time.Second
	defaultChannelPrefix  = "useradmin:"
	channelSuffix         = "notifications"
)

// RetryConfig configures handler retries.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// RedisBus fans notifications out through a Redis Pub/Sub channel, so any
// replica holding the browser's websocket can deliver the toast.
type RedisBus struct {
	client        *redis.Client
	pubsub        *redis.PubSub
	pubsubMu      sync.Mutex
	handlers      []Handler
	handlersMu    sync.RWMutex
	running       bool
	runningMu     sync.Mutex
	shutdown      chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
	retryConfig   RetryConfig
	channelPrefix string
}

// RedisOption configures a RedisBus.
type RedisOption func(*RedisBus)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(b *RedisBus) {
		b.logger = logger
	}
}

// WithRetryConfig sets the handler retry configuration.
func WithRetryConfig(config RetryConfig) RedisOption {
	return func(b *RedisBus) {
		b.retryConfig = config
	}
}

// WithChannelPrefix sets the channel name prefix.
func WithChannelPrefix(prefix string) RedisOption {
	return func(b *RedisBus) {
		b.channelPrefix = prefix
	}
}

// NewRedisBus creates a Redis-backed bus.
func NewRedisBus(client *redis.Client, opts ...RedisOption) *RedisBus {
	b := &RedisBus{
		client:        client,
		shutdown:      make(chan struct{}),
		logger:        slog.Default(),
		retryConfig:   DefaultRetryConfig(),
		channelPrefix: defaultChannelPrefix,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Channel returns the Redis channel name.
func (b *RedisBus) Channel() string {
	return b.channelPrefix + channelSuffix
}

// Publish encodes n as JSON and publishes it.
func (b *RedisBus) Publish(ctx context.Context, n Notification) error {
	if n.ViewID == "" {
		return errors.New("notification view id cannot be empty")
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if publishErr := b.client.Publish(ctx, b.Channel(), data).Err(); publishErr != nil {
		return fmt.Errorf("failed to publish notification to Redis: %w", publishErr)
	}

	b.logger.DebugContext(ctx, "notification published",
		slog.String("notification_id", n.ID),
		slog.String("view_id", n.ViewID),
		slog.String("kind", string(n.Kind)),
	)

	return nil
}

// Subscribe registers a handler.
func (b *RedisBus) Subscribe(handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Start subscribes to the channel and dispatches messages until Shutdown or
// ctx cancellation. It blocks.
func (b *RedisBus) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("notification bus is already running")
	}
	b.running = true
	b.runningMu.Unlock()

	pubsub := b.client.Subscribe(ctx, b.Channel())

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.Channel(), err)
	}

	b.pubsubMu.Lock()
	b.pubsub = pubsub
	b.pubsubMu.Unlock()

	b.logger.InfoContext(ctx, "notification bus started", slog.String("channel", b.Channel()))

	msgCh := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.logger.InfoContext(ctx, "notification bus stopping due to context cancellation")
			return ctx.Err()

		case <-b.shutdown:
			b.logger.InfoContext(ctx, "notification bus stopping due to shutdown signal")
			return nil

		case msg, ok := <-msgCh:
			if !ok {
				b.logger.WarnContext(ctx, "message channel closed")
				return nil
			}
			b.handleMessage(ctx, msg)
		}
	}
}

// Shutdown stops Start and waits for running handlers.
func (b *RedisBus) Shutdown() error {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return nil
	}
	b.running = false
	b.runningMu.Unlock()

	close(b.shutdown)
	b.wg.Wait()

	b.pubsubMu.Lock()
	pubsub := b.pubsub
	b.pubsub = nil
	b.pubsubMu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close pubsub: %w", err)
		}
	}

	return nil
}

// IsRunning reports whether Start is active.
func (b *RedisBus) IsRunning() bool {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	return b.running
}

func (b *RedisBus) handleMessage(ctx context.Context, msg *redis.Message) {
	var n Notification
	if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
		b.logger.ErrorContext(ctx, "failed to unmarshal notification",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()),
		)
		return
	}

	b.handlersMu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	for i, handler := range handlers {
		b.wg.Add(1)
		go b.executeHandler(ctx, handler, n, i)
	}
}

func (b *RedisBus) executeHandler(ctx context.Context, handler Handler, n Notification, handlerIndex int) {
	defer b.wg.Done()

	var lastErr error
	backoff := b.retryConfig.InitialBackoff

	for attempt := 0; attempt <= b.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, b.retryConfig.MaxBackoff)
		}

		if err := handler(ctx, n); err != nil {
			lastErr = err
			continue
		}
		return
	}

	b.logger.ErrorContext(ctx, "notification handler failed after all retries",
		slog.String("notification_id", n.ID),
		slog.String("view_id", n.ViewID),
		slog.Int("handler_index", handlerIndex),
		slog.String("error", lastErr.Error()),
	)
}

var _ Bus = (*RedisBus)(nil)
