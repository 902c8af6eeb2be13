package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types pushed to connected clients.
const (
	ListingUpdated     = "listing_updated"
	RentalCreated      = "rental_created"
	CredentialsUpdated = "credentials_updated"
)

// Event is a marketplace change notification. It never carries credentials;
// clients refetch through the RPC API.
type Event struct {
	Type            string `json:"type"`
	ListingID       int64  `json:"listing_id,omitempty"`
	RentalID        int64  `json:"rental_id,omitempty"`
	SubscribedUsers *int   `json:"subscribed_users,omitempty"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

// Hub maintains the set of active WebSocket clients and fans out events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.deliver(ev, func(*Client) bool { return true })
}

// Notify sends an event only to clients signed in as one of userIDs.
func (h *Hub) Notify(ev Event, userIDs ...int64) {
	want := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		if id != 0 {
			want[id] = true
		}
	}
	h.deliver(ev, func(c *Client) bool { return want[c.userID] })
}

func (h *Hub) deliver(ev Event, match func(*Client) bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping event", "type", ev.Type, "user_id", c.userID)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
