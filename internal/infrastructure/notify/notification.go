// Package notify delivers toast notifications from the table controllers to the browser.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind is the toast flavour.
type Kind string

// Toast kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one toast addressed to a single view.
type Notification struct {
	ID          string    `json:"id"`
	ViewID      string    `json:"view_id"`
	Kind        Kind      `json:"kind"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates a notification with a fresh id.
func New(viewID string, kind Kind, message, description string) Notification {
	return Notification{
		ID:          uuid.NewString(),
		ViewID:      viewID,
		Kind:        kind,
		Message:     message,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// Handler receives published notifications.
type Handler func(ctx context.Context, n Notification) error

// Bus carries notifications from publishers to subscribers.
type Bus interface {
	// Publish sends n to every subscriber.
	Publish(ctx context.Context, n Notification) error

	// Subscribe registers a handler. Call before Start.
	Subscribe(handler Handler) error

	// Start delivers notifications until Shutdown or ctx cancellation.
	Start(ctx context.Context) error

	// Shutdown stops delivery and waits for running handlers.
	Shutdown() error
}
