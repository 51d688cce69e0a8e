package monitoring

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubRejectsClientsAfterShutdown(t *testing.T) {
	hub := NewHub(NewMetrics(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	srv := httptest.NewServer(hub)
	defer srv.Close()

	// An upgrade after shutdown must not hang the handler; the connection
	// is dropped instead of being registered.
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatal("expected the connection to be closed after shutdown")
		}
		conn.Close()
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no registered clients, got %d", hub.ClientCount())
	}
}
