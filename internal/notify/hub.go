// Package notify pushes conflict lifecycle events to connected staff
// dashboards over websockets. Delivery is best effort: a slow or dead
// client is dropped, never waited on.
package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voltera-ev/evscgo/internal/models"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard origins are same-host deployments; tighten if exposed
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is the wire format pushed to dashboard clients. ID lets clients
// deduplicate events redelivered after a reconnect.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub fans events out to connected websocket clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ Websocket upgrade failed: %v", err)
		return
	}

	send := make(chan []byte, sendBufferSize)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)
	go h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, send chan []byte) {
	defer conn.Close()
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(conn)
			return
		}
	}
}

// readLoop discards inbound frames; the socket is push-only. Its real job
// is noticing the close handshake.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every connected client, dropping clients
// whose send buffers are full
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	data, err := json.Marshal(Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Printf("⚠️ Failed to encode %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	stale := make([]*websocket.Conn, 0)
	for conn, send := range h.clients {
		select {
		case send <- data:
		default:
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		h.drop(conn)
	}
}

// NotifyConflict implements the conflict engine's Notifier interface
func (h *Hub) NotifyConflict(event string, conflict *models.PartConflict) {
	h.Broadcast(event, conflict)
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
