package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubPublishReachesClient(t *testing.T) {
	hub := NewHub(nil)
	go hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Publish(EventVisit, map[string]int{"count": 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != EventVisit {
		t.Fatalf("expected visit event, got %s", msg.Type)
	}
	var data map[string]int
	if err := json.Unmarshal(msg.Data, &data); err != nil || data["count"] != 3 {
		t.Fatalf("unexpected data %s (%v)", msg.Data, err)
	}
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Start()
	defer hub.Stop()

	if err := hub.Publish(EventReset, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients")
	}
}

func TestHubSendsHeartbeat(t *testing.T) {
	hub := NewHub(nil)
	hub.SetHeartbeatInterval(20 * time.Millisecond)
	go hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != EventHeartbeat {
		t.Fatalf("expected heartbeat, got %s", msg.Type)
	}
	var data map[string]int
	if err := json.Unmarshal(msg.Data, &data); err != nil || data["clients"] != 1 {
		t.Fatalf("unexpected heartbeat data %s (%v)", msg.Data, err)
	}
}
