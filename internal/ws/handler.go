package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/collisionlab/internal/lab"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck before the upgrade.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket viewer of a lab.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	labToken string
	send     chan []byte
}

// Hub tracks the viewers of every lab, grouped into rooms by lab token.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes joins and leaves until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, exists := h.rooms[client.labToken]
			if !exists {
				room = make(map[*Client]bool)
				h.rooms[client.labToken] = room
			}
			room[client] = true
			size := len(room)
			h.mu.Unlock()
			log.Printf("[WS] Viewer joined lab %s (room_size=%d)", client.labToken, size)

		case client := <-h.unregister:
			h.mu.Lock()
			if room, exists := h.rooms[client.labToken]; exists && room[client] {
				delete(room, client)
				close(client.send)
				if len(room) == 0 {
					delete(h.rooms, client.labToken)
				}
				log.Printf("[WS] Viewer left lab %s (room_size=%d)", client.labToken, len(room))
			}
			h.mu.Unlock()
		}
	}
}

// RoomSize returns how many viewers a lab has.
func (h *Hub) RoomSize(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[token])
}

// BroadcastToLab sends a message to every viewer of a lab.
func (h *Hub) BroadcastToLab(token string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message for lab %s: %v", token, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[token] {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full
			log.Printf("[WS] Send buffer full for viewer of lab %s, dropping message", token)
		}
	}
}

// Dispatch delivers a lab event to the lab's viewers. A closed lab's viewers
// are told why and then disconnected.
func (h *Hub) Dispatch(ev lab.Event) {
	switch ev.Type {
	case lab.EventLabState:
		h.BroadcastToLab(ev.Token, ev)
	case lab.EventLabClosed:
		h.BroadcastToLab(ev.Token, ev)
		h.closeRoom(ev.Token)
	default:
		log.Printf("[WS] unknown event type: %s", ev.Type)
	}
}

// closeRoom ends every viewer's write pump; their read pumps then unregister.
func (h *Hub) closeRoom(token string) {
	h.mu.Lock()
	room := h.rooms[token]
	delete(h.rooms, token)
	for client := range room {
		close(client.send)
	}
	h.mu.Unlock()
}

// WSMessage is a command sent by a viewer.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Best-effort close frame; the connection may already be gone.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for lab %s: %v", c.labToken, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for lab %s: %v", c.labToken, err)
				return
			}
		}
	}
}

// sendJSON queues a message for this client only.
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message for lab %s: %v", c.labToken, err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.rooms[c.labToken][c] {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Send buffer full for viewer of lab %s, dropping message", c.labToken)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
