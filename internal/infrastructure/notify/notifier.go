package notify

import (
	"context"
	"log/slog"
)

// PublishObserver counts published toasts.
type PublishObserver interface {
	ObserveNotification(kind string)
}

// Notifier publishes toasts for a view. Publish failures are logged and swallowed:
// a lost toast must never change the outcome of the operation that raised it.
type Notifier struct {
	bus      Bus
	logger   *slog.Logger
	observer PublishObserver
}

// NewNotifier creates a notifier on top of bus. observer may be nil.
func NewNotifier(bus Bus, logger *slog.Logger, observer PublishObserver) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bus: bus, logger: logger, observer: observer}
}

// Success publishes a success toast.
func (n *Notifier) Success(ctx context.Context, viewID, message, description string) {
	n.publish(ctx, New(viewID, KindSuccess, message, description))
}

// Error publishes an error toast.
func (n *Notifier) Error(ctx context.Context, viewID, message, description string) {
	n.publish(ctx, New(viewID, KindError, message, description))
}

func (n *Notifier) publish(ctx context.Context, note Notification) {
	if err := n.bus.Publish(ctx, note); err != nil {
		n.logger.WarnContext(ctx, "failed to publish notification",
			slog.String("view_id", note.ViewID),
			slog.String("kind", string(note.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if n.observer != nil {
		n.observer.ObserveNotification(string(note.Kind))
	}
}
