// Package hub is the real-time broadcast channel. Every mutation to an
// event is fanned out to all connected websocket clients; there are no
// rooms, no per-user targeting, and no replay for clients that connect
// after a broadcast.
package hub

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Message kinds emitted over the channel. Creation and update share
// NewEvent; EventUpdated is emitted after an attend action.
const (
	NewEvent     = "newEvent"
	EventUpdated = "eventUpdated"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func New() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool)}
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. Clients only receive; anything they send is read and
// discarded so the connection's close is noticed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	log.Printf("client connected, %d online", h.Count())

	defer func() {
		h.remove(conn)
		conn.Close()
		log.Printf("client disconnected, %d online", h.Count())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a message of the given kind to every connected client.
// Delivery is best-effort and at-most-once: a failed write drops that
// connection and the message is not retried. The lock is held across the
// whole fan-out, so each connection observes broadcasts in the order they
// were triggered.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	msg := Message{Type: msgType, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("websocket write error: %v", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// Count reports the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}
