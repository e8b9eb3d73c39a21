package main

import (
	"encoding/json"
	"sync"
)

// Hub fans room updates out to subscribers. Sends never block: a client
// whose buffer is full misses the update.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
	done    chan struct{}
}

type Client struct {
	send chan RoomUpdate
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{}), done: make(chan struct{})}
}

func newClient(buffer int) *Client {
	return &Client{send: make(chan RoomUpdate, buffer)}
}

// Register returns false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(update RoomUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- update:
		default:
		}
	}
}

// Done is closed once the hub is closed.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Close disconnects every client. Later registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	close(h.done)
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.closed = true
}
