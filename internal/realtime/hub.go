package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/metrics"
	"github.com/google/uuid"
)

const sendBuffer = 32

// Client is one WebSocket connection.
type Client struct {
	UserID uuid.UUID
	send   chan []byte
	rooms  map[uuid.UUID]struct{}
	closed bool
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// Send returns the outbound frame channel. It is closed when the hub drops
// the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub tracks live connections per user and per conversation.
type Hub struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[*Client]struct{}
	rooms map[uuid.UUID]map[*Client]struct{}
	count int

	// onPresence is called outside the lock when a user's first connection
	// opens or last connection closes.
	onPresence func(userID uuid.UUID, online bool)
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[uuid.UUID]map[*Client]struct{}),
		rooms: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	h.count++
	first := len(set) == 1
	cb := h.onPresence
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	if first && cb != nil {
		cb(c.UserID, true)
	}
}

// Unregister removes the client from every set and closes its send channel.
// Calling it more than once is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	last := h.removeLocked(c)
	cb := h.onPresence
	h.mu.Unlock()

	if last && cb != nil {
		cb(c.UserID, false)
	}
}

// removeLocked reports whether c was the user's last connection.
func (h *Hub) removeLocked(c *Client) bool {
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	h.count--
	metrics.WSConnections.Dec()

	for room := range c.rooms {
		if set := h.rooms[room]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	set := h.users[c.UserID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.UserID)
		return true
	}
	return false
}

func (h *Hub) Join(c *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	set, ok := h.rooms[conversationID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[conversationID] = set
	}
	set[c] = struct{}{}
	c.rooms[conversationID] = struct{}{}
}

func (h *Hub) Leave(c *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(c.rooms, conversationID)
	if set := h.rooms[conversationID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

func (h *Hub) InRoom(c *Client, conversationID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[conversationID]
	return ok
}

// Deliver writes the event to every matching local client. Clients whose
// buffer is full are dropped.
func (h *Hub) Deliver(env Envelope) {
	frame, err := json.Marshal(env.Event)
	if err != nil {
		slog.Error("failed to encode realtime event", "error", err, "type", env.Event.Type)
		return
	}

	h.mu.Lock()
	targets := make(map[*Client]struct{})
	for _, uid := range env.Users {
		for c := range h.users[uid] {
			targets[c] = struct{}{}
		}
	}
	if env.Conversation != nil {
		for c := range h.rooms[*env.Conversation] {
			targets[c] = struct{}{}
		}
	}

	var gone []uuid.UUID
	for c := range targets {
		if env.Except != nil && c.UserID == *env.Except {
			continue
		}
		select {
		case c.send <- frame:
			metrics.RealtimeEvents.WithLabelValues(env.Event.Type, "delivered").Inc()
		default:
			metrics.RealtimeEvents.WithLabelValues(env.Event.Type, "dropped").Inc()
			slog.Warn("dropping slow realtime client", "user_id", c.UserID.String())
			if h.removeLocked(c) {
				gone = append(gone, c.UserID)
			}
		}
	}
	cb := h.onPresence
	h.mu.Unlock()

	if cb != nil {
		for _, uid := range gone {
			cb(uid, false)
		}
	}
}

// SendTo queues a frame for a single client, used for replies such as pong.
func (h *Hub) SendTo(c *Client, ev Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// Publish delivers locally. It makes Hub a Publisher for single-instance
// deployments.
func (h *Hub) Publish(_ context.Context, env Envelope) error {
	h.Deliver(env)
	return nil
}

// Online reports whether the user has a connection on this instance.
func (h *Hub) Online(_ context.Context, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// ClientCount is the number of open connections on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.users {
		for c := range set {
			h.removeLocked(c)
		}
	}
}
