package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/lllypuk/useradmin/internal/infrastructure/websocket"
	"github.com/stretchr/testify/require"
)

// createWSConnPair returns the server and browser ends of a live websocket connection.
func createWSConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	serverChan := make(chan *websocket.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverChan <- conn
	}))
	t.Cleanup(server.Close)

	clientConn, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	select {
	case serverConn := <-serverChan:
		t.Cleanup(func() {
			_ = serverConn.Close()
			_ = clientConn.Close()
		})
		return serverConn, clientConn
	case <-time.After(time.Second):
		_ = clientConn.Close()
		t.Fatal("server side of websocket pair never connected")
		return nil, nil
	}
}

// startHub runs hub until the test ends.
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

// connectClient registers a client for viewID with a running write pump and
// returns a channel of the messages the browser end receives.
func connectClient(t *testing.T, hub *ws.Hub, viewID string) (*ws.Client, <-chan []byte) {
	t.Helper()

	serverConn, browserConn := createWSConnPair(t)
	client := ws.NewClient(hub, serverConn, viewID)

	received := make(chan []byte, 16)
	go func() {
		for {
			_, msg, err := browserConn.ReadMessage()
			if err != nil {
				return
			}
			received <- msg
		}
	}()
	go client.WritePump()

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientsInView(viewID) > 0 }, time.Second, 5*time.Millisecond)

	return client, received
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a message but none arrived")
		return nil
	}
}

func assertNothingReceived(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
