package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// frameWriter is what the hub needs from a transport connection.
// *websocket.Conn satisfies it.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Client is one live connection, pinned to its authenticated user for its
// entire lifetime. Writes are serialized per connection; the websocket
// library does not allow concurrent writers.
type Client struct {
	UserID uuid.UUID

	mu   sync.Mutex
	sock frameWriter
}

func (c *Client) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

// Relay mirrors group emissions to other instances. It is a delivery
// multiplier, never authoritative state.
type Relay interface {
	Publish(ctx context.Context, userID uuid.UUID, data []byte) error
}

// Hub groups live connections by user identity and fans events out to a
// whole group, locally and (when a relay is attached) across instances.
type Hub struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]map[*Client]struct{}
	relay  Relay
}

func NewHub() *Hub {
	return &Hub{groups: make(map[uuid.UUID]map[*Client]struct{})}
}

// AttachRelay enables cross-instance delivery. Called once at startup.
func (h *Hub) AttachRelay(r Relay) {
	h.relay = r
}

func (h *Hub) Join(userID uuid.UUID, sock frameWriter) *Client {
	client := &Client{UserID: userID, sock: sock}

	h.mu.Lock()
	group, ok := h.groups[userID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[userID] = group
	}
	group[client] = struct{}{}
	size := len(group)
	h.mu.Unlock()

	slog.Info("client joined", "user_id", userID, "group_size", size)
	return client
}

func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	if group, ok := h.groups[client.UserID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.groups, client.UserID)
		}
	}
	h.mu.Unlock()

	slog.Info("client left", "user_id", client.UserID)
}

// IsUserConnected reports whether the user has at least one live connection
// on this instance. Used by the notification collaborator to decide between
// realtime delivery and a push notification.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[userID]) > 0
}

// Broadcast delivers an event to every connection in the user's group on
// this instance and mirrors it across the backbone when one is attached.
func (h *Hub) Broadcast(ctx context.Context, userID uuid.UUID, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to encode event", "type", env.Type, "error", err)
		return
	}

	h.deliverLocal(userID, data)

	if h.relay != nil {
		if err := h.relay.Publish(ctx, userID, data); err != nil {
			slog.Error("backbone publish failed", "user_id", userID, "error", err)
		}
	}
}

func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.groups[userID]))
	for c := range h.groups[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			slog.Debug("dropped write to dead connection", "user_id", userID, "error", err)
		}
	}
}
