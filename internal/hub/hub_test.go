package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	h := New()
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients, have %d", n, h.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading message: %v", err)
	}
	return msg
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	h, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	waitForClients(t, h, 2)

	h.Broadcast(NewEvent, map[string]string{"id": "event-1"})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != NewEvent {
			t.Fatalf("expected type %q, got %q", NewEvent, msg.Type)
		}
		data, ok := msg.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("expected object payload, got %T", msg.Data)
		}
		if data["id"] != "event-1" {
			t.Fatalf("expected payload id event-1, got %v", data["id"])
		}
	}
}

func TestBroadcastOrderPerConnection(t *testing.T) {
	h, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	h.Broadcast(NewEvent, map[string]string{"seq": "1"})
	h.Broadcast(EventUpdated, map[string]string{"seq": "2"})
	h.Broadcast(NewEvent, map[string]string{"seq": "3"})

	for i, want := range []string{"1", "2", "3"} {
		msg := readMessage(t, conn)
		data := msg.Data.(map[string]interface{})
		if data["seq"] != want {
			t.Fatalf("message %d: expected seq %s, got %v", i, want, data["seq"])
		}
	}
}

func TestDisconnectedClientIsPruned(t *testing.T) {
	h, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	// Broadcasting into an empty hub is not an error.
	h.Broadcast(NewEvent, map[string]string{"id": "event-1"})
}

func TestLateSubscriberMissesEarlierBroadcasts(t *testing.T) {
	h, srv := newTestHub(t)

	h.Broadcast(NewEvent, map[string]string{"id": "before-connect"})

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no replay, received %+v", msg)
	}
}
