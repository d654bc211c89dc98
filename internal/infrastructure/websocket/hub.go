// Package websocket pushes toast notifications to the browser tab that owns a view.
package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// Hub configuration constants.
const (
	defaultBroadcastBufferSize = 256
	defaultMailboxSize         = 16
)

// ConnectionObserver is told the client count after every change.
type ConnectionObserver interface {
	SetWebSocketConnections(n int)
}

// Hub manages websocket connections grouped by view id.
//
// A message for a view with no connected client is parked in a bounded
// per-view mailbox and flushed when the first client of that view registers.
type Hub struct {
	// clients holds all connected clients.
	clients map[*Client]bool

	// views maps view ids to their connected clients.
	views map[string]map[*Client]bool

	// mailboxes hold undelivered messages per view, oldest first.
	mailboxes   map[string][][]byte
	mailboxSize int

	register   chan *Client
	unregister chan *Client
	broadcast  chan *viewMessage
	drop       chan string

	// mu protects the maps.
	mu sync.RWMutex

	logger   *slog.Logger
	observer ConnectionObserver

	done      chan struct{}
	doneOnce  sync.Once
	running   bool
	runningMu sync.RWMutex
}

type viewMessage struct {
	viewID  string
	message []byte
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMailboxSize sets how many undelivered messages are kept per view. 0 disables parking.
func WithMailboxSize(size int) HubOption {
	return func(h *Hub) {
		h.mailboxSize = max(size, 0)
	}
}

// WithConnectionObserver reports client counts, e.g. to metrics.
func WithConnectionObserver(observer ConnectionObserver) HubOption {
	return func(h *Hub) {
		h.observer = observer
	}
}

// NewHub creates a new Hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		views:       make(map[string]map[*Client]bool),
		mailboxes:   make(map[string][][]byte),
		mailboxSize: defaultMailboxSize,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *viewMessage, defaultBroadcastBufferSize),
		drop:        make(chan string, defaultBroadcastBufferSize),
		logger:      slog.Default(),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run starts the hub's main event loop.
// It should be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		return
	}
	h.running = true
	h.runningMu.Unlock()

	h.logger.InfoContext(ctx, "websocket hub started", slog.Int("mailbox_size", h.mailboxSize))

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.done:
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)

		case viewID := <-h.drop:
			h.mu.Lock()
			delete(h.mailboxes, viewID)
			h.mu.Unlock()
		}
	}
}

// Stop signals the hub to stop.
func (h *Hub) Stop() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return
	}

	h.closeDone()
}

// closeDone releases every caller blocked on the hub channels.
func (h *Hub) closeDone() {
	h.doneOnce.Do(func() { close(h.done) })
}

func (h *Hub) shutdown() {
	h.runningMu.Lock()
	h.running = false
	h.runningMu.Unlock()
	h.closeDone()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
	}

	h.clients = make(map[*Client]bool)
	h.views = make(map[string]map[*Client]bool)
	h.mailboxes = make(map[string][][]byte)
	h.report(0)

	h.logger.Info("websocket hub stopped")
}

// Register registers a new client with the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister unregisters a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToView queues message for every client of viewID.
func (h *Hub) SendToView(viewID string, message []byte) {
	select {
	case h.broadcast <- &viewMessage{viewID: viewID, message: message}:
	case <-h.done:
	}
}

// DropView forgets any parked messages of viewID. Called when a view is evicted.
func (h *Hub) DropView(viewID string) {
	select {
	case h.drop <- viewID:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.views[client.viewID] == nil {
		h.views[client.viewID] = make(map[*Client]bool)
	}
	h.views[client.viewID][client] = true

	parked := h.mailboxes[client.viewID]
	delete(h.mailboxes, client.viewID)
	for _, msg := range parked {
		client.Send(msg)
	}

	h.report(len(h.clients))

	h.logger.Debug("client registered",
		slog.String("view_id", client.viewID),
		slog.Int("flushed", len(parked)),
		slog.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	if room, ok := h.views[client.viewID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.views, client.viewID)
		}
	}

	delete(h.clients, client)
	client.Close()
	h.report(len(h.clients))

	h.logger.Debug("client unregistered",
		slog.String("view_id", client.viewID),
		slog.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) handleBroadcast(msg *viewMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.views[msg.viewID]
	if len(room) == 0 {
		h.park(msg)
		return
	}

	for client := range room {
		client.Send(msg.message)
	}
}

// park stores msg for later delivery, evicting the oldest parked message when full.
func (h *Hub) park(msg *viewMessage) {
	if h.mailboxSize == 0 {
		return
	}

	box := append(h.mailboxes[msg.viewID], msg.message)
	if len(box) > h.mailboxSize {
		h.logger.Warn("view mailbox full, dropping oldest message", slog.String("view_id", msg.viewID))
		box = box[len(box)-h.mailboxSize:]
	}
	h.mailboxes[msg.viewID] = box
}

func (h *Hub) report(n int) {
	if h.observer != nil {
		h.observer.SetWebSocketConnections(n)
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientsInView returns the number of clients connected for viewID.
func (h *Hub) ClientsInView(viewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.views[viewID])
}

// ParkedMessages returns the number of undelivered messages held for viewID.
func (h *Hub) ParkedMessages(viewID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.mailboxes[viewID])
}

// IsRunning returns whether the hub is currently running.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}
