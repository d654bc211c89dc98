package websocket_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/lllypuk/useradmin/internal/infrastructure/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	hub := ws.NewHub()
	serverConn, _ := createWSConnPair(t)

	client := ws.NewClient(hub, serverConn, "view-1",
		ws.WithClientConfig(ws.ClientConfig{
			PingInterval:   15 * time.Second,
			PongWait:       30 * time.Second,
			WriteWait:      5 * time.Second,
			MaxMessageSize: 1024,
		}),
		ws.WithClientLogger(nil),
	)

	assert.Equal(t, "view-1", client.ViewID())
	assert.False(t, client.IsClosed())
}

func TestClient_Close(t *testing.T) {
	serverConn, _ := createWSConnPair(t)
	client := ws.NewClient(ws.NewHub(), serverConn, "view-1")

	client.Close()
	client.Close()
	assert.True(t, client.IsClosed())

	// Sending to a closed client must not panic
	client.Send([]byte(`{}`))
}

func TestClient_WritePump(t *testing.T) {
	serverConn, browserConn := createWSConnPair(t)
	client := ws.NewClient(ws.NewHub(), serverConn, "view-1")
	go client.WritePump()

	client.Send([]byte(`{"type":"toast"}`))

	require.NoError(t, browserConn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := browserConn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"toast"}`, string(msg))
}

func TestClient_HandleClientMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantType string
		wantText string
	}{
		{name: "ping answers pong", message: `{"type":"ping"}`, wantType: "pong"},
		{name: "unknown type", message: `{"type":"subscribe"}`, wantType: "error", wantText: "unknown message type: subscribe"},
		{name: "invalid json", message: `not json`, wantType: "error", wantText: "invalid message format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := ws.NewHub()
			startHub(t, hub)

			serverConn, browserConn := createWSConnPair(t)
			client := ws.NewClient(hub, serverConn, "view-1")
			hub.Register(client)
			go client.WritePump()
			go client.ReadPump()

			require.NoError(t, browserConn.WriteMessage(websocket.TextMessage, []byte(tt.message)))

			require.NoError(t, browserConn.SetReadDeadline(time.Now().Add(time.Second)))
			_, raw, err := browserConn.ReadMessage()
			require.NoError(t, err)

			var reply map[string]string
			require.NoError(t, json.Unmarshal(raw, &reply))
			assert.Equal(t, tt.wantType, reply["type"])
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, reply["message"])
			}
		})
	}
}

func TestClient_ReadPumpUnregistersOnClose(t *testing.T) {
	hub := ws.NewHub()
	startHub(t, hub)

	serverConn, browserConn := createWSConnPair(t)
	client := ws.NewClient(hub, serverConn, "view-1")
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
	require.Eventually(t, func() bool { return hub.ClientsInView("view-1") == 1 }, time.Second, 5*time.Millisecond)

	_ = browserConn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, client.IsClosed())
}

func TestDefaultClientConfig(t *testing.T) {
	config := ws.DefaultClientConfig()

	assert.Equal(t, 1024, config.ReadBufferSize)
	assert.Equal(t, 30*time.Second, config.PingInterval)
	assert.Equal(t, 60*time.Second, config.PongWait)
	assert.Greater(t, config.PongWait, config.PingInterval)
}
