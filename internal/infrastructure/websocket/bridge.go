package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lllypuk/useradmin/internal/infrastructure/notify"
)

// ToastMessageType is the websocket message type carrying a notification.
const ToastMessageType = "toast"

// OutboundMessage is the envelope written to the browser.
type OutboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// NotificationSubscriber is the part of notify.Bus the bridge needs.
type NotificationSubscriber interface {
	Subscribe(handler notify.Handler) error
}

// Bridge forwards bus notifications to the websocket clients of their view.
type Bridge struct {
	hub *Hub
}

// NewBridge creates a bridge into hub.
func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// Attach subscribes the bridge to bus.
func (b *Bridge) Attach(bus NotificationSubscriber) error {
	if err := bus.Subscribe(b.Handle); err != nil {
		return fmt.Errorf("failed to subscribe websocket bridge: %w", err)
	}
	return nil
}

// Handle sends n to the hub as a toast message.
func (b *Bridge) Handle(_ context.Context, n notify.Notification) error {
	data, err := json.Marshal(OutboundMessage{Type: ToastMessageType, Data: n})
	if err != nil {
		return fmt.Errorf("failed to marshal toast: %w", err)
	}
	b.hub.SendToView(n.ViewID, data)
	return nil
}
