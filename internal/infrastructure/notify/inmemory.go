package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryBus delivers notifications synchronously inside the process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
	running  bool
	shutdown chan struct{}
	logger   *slog.Logger
}

// NewInMemoryBus creates an in-process bus.
func NewInMemoryBus(logger *slog.Logger) *InMemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryBus{
		shutdown: make(chan struct{}),
		logger:   logger,
	}
}

// Publish calls every handler in registration order. Handler errors are logged.
func (b *InMemoryBus) Publish(ctx context.Context, n Notification) error {
	if n.ViewID == "" {
		return errors.New("notification view id cannot be empty")
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for i, handler := range handlers {
		if err := handler(ctx, n); err != nil {
			b.logger.WarnContext(ctx, "notification handler failed",
				slog.String("notification_id", n.ID),
				slog.String("view_id", n.ViewID),
				slog.Int("handler_index", i),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Subscribe registers a handler.
func (b *InMemoryBus) Subscribe(handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Start blocks until Shutdown or ctx cancellation. Delivery does not depend on it.
func (b *InMemoryBus) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("notification bus is already running")
	}
	b.running = true
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.shutdown:
		return nil
	}
}

// Shutdown releases Start.
func (b *InMemoryBus) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}
	b.running = false
	close(b.shutdown)
	return nil
}

// IsRunning reports whether Start is active.
func (b *InMemoryBus) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

var _ Bus = (*InMemoryBus)(nil)
