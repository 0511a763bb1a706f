// Package events pushes engine change notifications to websocket clients.
package events

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event is the payload sent to every connected client.
type Event struct {
	Type   string    `json:"type"` // ör: "order_shipped"
	Entity string    `json:"entity"`
	ID     uint      `json:"id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

type client struct {
	conn *ws.Conn
	mu   sync.Mutex
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader ws.Upgrader
}

// NewHub accepts connections from the given comma separated origins; "*" or
// an empty list allows any origin.
func NewHub(allowedOrigins string) *Hub {
	allowed := map[string]bool{}
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	h := &Hub{clients: make(map[*client]struct{})}
	h.upgrader = ws.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
	return h
}

func (h *Hub) register(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: marshal hatası: %v", err)
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := c.conn.WriteMessage(ws.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.unregister(c)
		}
	}
}

// Publish satisfies the allocation engine's publisher.
func (h *Hub) Publish(entity string, id uint, action string) {
	h.Broadcast(Event{
		Type:   entity + "_" + action,
		Entity: entity,
		ID:     id,
		Action: action,
		At:     time.Now(),
	})
}

// ServeHTTP upgrades the connection and keeps it alive with pings until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade hatası: %v", err)
		return
	}

	c := &client{conn: conn}
	log.Printf("ws: istemci bağlandı (%d toplam)", h.register(c))

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(5*time.Second))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	log.Printf("ws: istemci ayrıldı")
}
