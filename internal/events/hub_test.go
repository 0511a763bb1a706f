package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*ws.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return ws.DefaultDialer.Dial(url, header)
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, h.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_PublishReachesClients(t *testing.T) {
	h := NewHub("http://localhost:5173")
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://localhost:5173")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	waitForClients(t, h, 1)

	h.Publish("order", 7, "shipped")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if evt.Type != "order_shipped" || evt.ID != 7 || evt.Entity != "order" {
		t.Errorf("Unexpected event %+v", evt)
	}

	conn.Close()
	waitForClients(t, h, 0)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	h := NewHub("http://localhost:5173")
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.example")
	if err == nil {
		t.Fatal("Expected handshake to fail for unknown origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}
