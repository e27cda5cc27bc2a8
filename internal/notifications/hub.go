// Package notifications fans listing change events out to websocket viewers.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"earthhome/internal/middleware"
	"earthhome/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	maxConnsPerViewer = 12
	maxTotalConns     = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrViewerConnLimit = errors.New("viewer connection limit reached")
	ErrHubClosed       = errors.New("listing hub is shutting down")
)

// EventType names a listing change.
type EventType string

const (
	PropertyCreated EventType = "property.created"
	PropertyUpdated EventType = "property.updated"
	PropertyDeleted EventType = "property.deleted"
)

// ListingEvent is the payload broadcast on the listing feed.
type ListingEvent struct {
	Type       EventType `json:"type"`
	PropertyID string    `json:"propertyId"`
	Slug       string    `json:"slug"`
	At         time.Time `json:"at"`
}

// Hub tracks connected feed viewers and broadcasts listing events to them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	perViewer  map[string]int
	totalConns int
	sendBuffer int
	closed     bool

	relay *Relay
}

// NewHub creates a hub. When a Redis client is given, events are relayed
// through Redis so every server instance delivers them.
func NewHub(redisClients ...*redis.Client) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		perViewer:  make(map[string]int),
		sendBuffer: defaultSendBuffer,
	}
	if len(redisClients) > 0 && redisClients[0] != nil {
		h.relay = NewRelay(redisClients[0])
	}
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "listing hub" }

// Register adds a connection. Anonymous viewers only count against the
// server-wide limit.
func (h *Hub) Register(viewerID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	if viewerID != "" && h.perViewer[viewerID] >= maxConnsPerViewer {
		return nil, ErrViewerConnLimit
	}

	client := NewClient(h, conn, viewerID, h.sendBuffer)
	h.clients[client] = struct{}{}
	h.perViewer[viewerID]++
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes a client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	h.mu.Unlock()
	if removed {
		client.close()
	}
}

func (h *Hub) removeLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	h.perViewer[client.ViewerID]--
	if h.perViewer[client.ViewerID] <= 0 {
		delete(h.perViewer, client.ViewerID)
	}
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	return true
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Publish broadcasts a listing event. With a relay the event goes through
// Redis; if that fails it is still delivered to local viewers.
func (h *Hub) Publish(ctx context.Context, event ListingEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.Error("failed to encode listing event", "error", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(string(event.Type)).Inc()

	if h.relay != nil {
		if err := h.relay.Publish(ctx, data); err == nil {
			return
		}
		middleware.Logger.Warn("listing relay publish failed, delivering locally",
			"event", event.Type, "property_id", event.PropertyID, "error", err)
	}
	h.deliver(data)
}

// deliver sends data to every client, dropping those whose buffers are full.
func (h *Hub) deliver(data []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.TrySend(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.mu.Lock()
		removed := h.removeLocked(c)
		h.mu.Unlock()
		if removed {
			middleware.Logger.Info("dropping slow listing feed client", "viewer_id", c.ViewerID)
			c.closeWith(websocket.ClosePolicyViolation, "too slow")
		}
	}
}

// StartWiring subscribes to the relay and delivers relayed events to local
// clients until ctx is done. It is a no-op without Redis.
func (h *Hub) StartWiring(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}
	return h.relay.Subscribe(ctx, h.deliver)
}

// Shutdown closes every client's send channel. Each WritePump then sends a
// going-away frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		h.removeLocked(c)
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.closeWith(websocket.CloseGoingAway, "Server shutting down")
	}
	return nil
}
