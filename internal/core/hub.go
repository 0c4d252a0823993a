package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Gateway pushes events to live connections. Delivery is best-effort: a slow
// consumer loses events instead of blocking everyone else.
type Gateway interface {
	// Send delivers ev to one connection. Reports false if the connection is
	// unknown or its buffer is full.
	Send(connID string, ev *Event) bool
	// Broadcast delivers ev to every connection and returns how many accepted it.
	Broadcast(ev *Event) int
}

// Hub is the in-process Gateway. It owns the event channel of every open
// connection, joined or not.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zerolog.Logger
}

// NewHub creates a hub with no clients.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     logger,
	}
}

// Register makes the client addressable by its connection id.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Unregister removes the client and closes its event channel. Returns false if
// the client was not registered.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.clients[c.ID]
	if !ok || current != c {
		return false
	}
	delete(h.clients, c.ID)
	// Sends happen under the read lock, so no sender can race this close.
	close(c.Events)
	return true
}

// Send implements Gateway.
func (h *Hub) Send(connID string, ev *Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.push(c, ev)
}

// Broadcast implements Gateway.
func (h *Hub) Broadcast(ev *Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range h.clients {
		if h.push(c, ev) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) push(c *Client, ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		h.log.Debug().Str("conn_id", c.ID).Str("event", ev.Kind.String()).Msg("dropping event for slow consumer")
		return false
	}
}
