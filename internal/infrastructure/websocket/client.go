package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Default client configuration constants.
const (
	defaultReadBufferSize  = 1024
	defaultWriteBufferSize = 1024
	defaultPingInterval    = 30 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultWriteWait       = 10 * time.Second
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 64
)

// ClientConfig holds configuration for websocket clients.
type ClientConfig struct {
	ReadBufferSize  int
	WriteBufferSize int

	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration

	// PongWait is the maximum time to wait for a pong.
	PongWait time.Duration

	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig returns sensible default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadBufferSize:  defaultReadBufferSize,
		WriteBufferSize: defaultWriteBufferSize,
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		MaxMessageSize:  defaultMaxMessageSize,
	}
}

// ClientMessage is a message sent by the browser. Only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is a single websocket connection bound to one view.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	viewID string
	config ClientConfig
	logger *slog.Logger

	closed   bool
	closedMu sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientConfig sets the client configuration.
func WithClientConfig(config ClientConfig) ClientOption {
	return func(c *Client) {
		c.config = config
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new websocket client for viewID.
func NewClient(hub *Hub, conn *websocket.Conn, viewID string, opts ...ClientOption) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, defaultSendBufferSize),
		viewID: viewID,
		config: DefaultClientConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ViewID returns the view this client listens to.
func (c *Client) ViewID() string {
	return c.viewID
}

// IsClosed returns whether the client connection has been closed.
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// ReadPump reads messages from the connection until it fails, then unregisters.
// It should be run as a goroutine.
func (c *Client) ReadPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(c.config.MaxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error",
					slog.String("view_id", c.viewID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		c.handleClientMessage(message)
	}
}

// WritePump writes queued messages and periodic pings to the connection.
// It should be run as a goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}

			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error",
					slog.String("view_id", c.viewID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendJSON(map[string]string{"type": "error", "message": "invalid message format"})
		return
	}

	switch msg.Type {
	case "ping":
		c.sendJSON(map[string]string{"type": "pong"})
	default:
		c.logger.Debug("unknown message type",
			slog.String("view_id", c.viewID),
			slog.String("type", msg.Type),
		)
		c.sendJSON(map[string]string{"type": "error", "message": "unknown message type: " + msg.Type})
	}
}

func (c *Client) sendJSON(v any) {
	data, _ := json.Marshal(v)
	c.Send(data)
}

// Send queues a message. It never blocks; a full buffer drops the message.
func (c *Client) Send(message []byte) {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return
	}

	select {
	case c.send <- message:
	default:
		c.logger.Warn("client send buffer full", slog.String("view_id", c.viewID))
	}
}

// Close closes the client connection. Safe to call more than once.
func (c *Client) Close() {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
