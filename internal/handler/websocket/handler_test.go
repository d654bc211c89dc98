package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	wshandler "github.com/lllypuk/useradmin/internal/handler/websocket"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	ws "github.com/lllypuk/useradmin/internal/infrastructure/websocket"
)

// knownViews answers Get for a fixed set of view ids.
type knownViews map[string]bool

func (k knownViews) Get(viewID string) (*usertable.Controller, error) {
	if !k[viewID] {
		return nil, usertable.ErrViewNotFound
	}
	return nil, nil
}

func startHub(t *testing.T, hub *ws.Hub) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newServer(t *testing.T, handler *wshandler.Handler) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.GET("/ws", handler.HandleWebSocket)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, viewID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?view=" + viewID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestDefaultHandlerConfig(t *testing.T) {
	config := wshandler.DefaultHandlerConfig()

	assert.Equal(t, 1024, config.ReadBufferSize)
	assert.Equal(t, 1024, config.WriteBufferSize)
	assert.Nil(t, config.CheckOrigin)
	assert.NotNil(t, config.Logger)
}

func TestHandler_HandleWebSocket_MissingView(t *testing.T) {
	handler := wshandler.NewHandler(ws.NewHub(), knownViews{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, handler.HandleWebSocket(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestHandler_HandleWebSocket_UnknownViewClosesWithPolicyViolation(t *testing.T) {
	hub := ws.NewHub()
	startHub(t, hub)

	server := newServer(t, wshandler.NewHandler(hub, knownViews{}))
	conn := dial(t, server, "gone")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHandler_HandleWebSocket_FlushesParkedToasts(t *testing.T) {
	hub := ws.NewHub()
	startHub(t, hub)

	// The load toast is usually sent before the page opens its socket.
	hub.SendToView("view-1", []byte(`{"type":"toast","data":{"kind":"success"}}`))

	server := newServer(t, wshandler.NewHandler(hub, knownViews{"view-1": true}))
	conn := dial(t, server, "view-1")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"toast","data":{"kind":"success"}}`, string(msg))
	assert.Equal(t, 1, hub.ClientsInView("view-1"))
}

func TestHandler_Lifecycle(t *testing.T) {
	hub := ws.NewHub()
	startHub(t, hub)

	handler := wshandler.NewHandler(hub, knownViews{"view-1": true},
		wshandler.WithHandlerConfig(wshandler.DefaultHandlerConfig()),
	)
	server := newServer(t, handler)
	conn := dial(t, server, "view-1")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	var response map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, "pong", response["type"])

	hub.SendToView("view-2", []byte(`{"type":"toast"}`))
	hub.SendToView("view-1", []byte(`{"type":"toast","data":{"view_id":"view-1"}}`))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"view-1"`)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	router := httpserver.NewRouter(e, httpserver.DefaultRouterConfig())

	router.RegisterAll(wshandler.NewHandler(ws.NewHub(), knownViews{}))

	found := false
	for _, r := range e.Routes() {
		if r.Path == "/ws" && r.Method == http.MethodGet {
			found = true
		}
	}
	assert.True(t, found, "expected /ws route to be registered")
}
