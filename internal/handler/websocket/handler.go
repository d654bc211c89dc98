// Package websocket provides HTTP handlers for WebSocket connections.
package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	ws "github.com/lllypuk/useradmin/internal/infrastructure/websocket"
)

// Handler configuration constants.
const (
	defaultHandlerReadBufferSize  = 1024
	defaultHandlerWriteBufferSize = 1024

	// ViewQueryParam carries the view id: GET /ws?view={id}.
	ViewQueryParam = "view"

	closeWriteWait = time.Second
)

// ViewFinder looks up the view a socket wants to follow.
// Declared on the consumer side.
type ViewFinder interface {
	Get(viewID string) (*usertable.Controller, error)
}

// Handler handles WebSocket HTTP requests.
type Handler struct {
	hub          *ws.Hub
	views        ViewFinder
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	clientConfig ws.ClientConfig
}

// HandlerConfig holds configuration for the WebSocket handler.
type HandlerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin is a function that returns true if the request origin is acceptable.
	// If nil, all origins are accepted.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger

	// ClientConfig is the configuration for WebSocket clients.
	ClientConfig ws.ClientConfig
}

// DefaultHandlerConfig returns a default configuration.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		ReadBufferSize:  defaultHandlerReadBufferSize,
		WriteBufferSize: defaultHandlerWriteBufferSize,
		CheckOrigin:     nil,
		Logger:          slog.Default(),
		ClientConfig:    ws.DefaultClientConfig(),
	}
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHandlerConfig sets the handler configuration.
func WithHandlerConfig(config HandlerConfig) HandlerOption {
	return func(h *Handler) {
		if config.ReadBufferSize > 0 {
			h.upgrader.ReadBufferSize = config.ReadBufferSize
		}
		if config.WriteBufferSize > 0 {
			h.upgrader.WriteBufferSize = config.WriteBufferSize
		}
		if config.CheckOrigin != nil {
			h.upgrader.CheckOrigin = config.CheckOrigin
		}
		if config.Logger != nil {
			h.logger = config.Logger
		}
		if config.ClientConfig.PingInterval > 0 {
			h.clientConfig = config.ClientConfig
		}
	}
}

// NewHandler creates a new WebSocket handler for the views known to views.
func NewHandler(hub *ws.Hub, views ViewFinder, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:   hub,
		views: views,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  defaultHandlerReadBufferSize,
			WriteBufferSize: defaultHandlerWriteBufferSize,
			// The page and the socket are served by the same process.
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:       slog.Default(),
		clientConfig: ws.DefaultClientConfig(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleWebSocket upgrades the request and binds the connection to its view.
//
// A view the server no longer knows is closed right after the upgrade with
// 1008 (policy violation) so the page stops reconnecting and asks for a reload.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	viewID := c.QueryParam(ViewQueryParam)
	if viewID == "" {
		return httpserver.RespondErrorWithCode(c, http.StatusBadRequest, "INVALID_INPUT", "view is required")
	}

	_, lookupErr := h.views.Get(viewID)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("view_id", viewID),
			slog.String("error", err.Error()),
		)
		return nil // Upgrade already sent an error response
	}

	if lookupErr != nil {
		h.logger.Debug("websocket for unknown view closed",
			slog.String("view_id", viewID),
			slog.String("remote_ip", c.RealIP()),
		)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown view")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		_ = conn.Close()
		return nil
	}

	client := ws.NewClient(
		h.hub,
		conn,
		viewID,
		ws.WithClientConfig(h.clientConfig),
		ws.WithClientLogger(h.logger),
	)

	// Register flushes toasts parked before the page connected.
	h.hub.Register(client)

	h.logger.Info("websocket connection established",
		slog.String("view_id", viewID),
		slog.String("remote_ip", c.RealIP()),
	)

	go client.WritePump()
	go client.ReadPump()

	return nil
}

// RegisterRoutes implements httpserver.RouteRegistrar.
func (h *Handler) RegisterRoutes(r *httpserver.Router) {
	r.Pages().GET("/ws", h.HandleWebSocket)
}
