// Package realtime relays chat events to connected WebSocket clients.
//
// Delivery is best effort. Each instance keeps its own connection sets; with a
// Redis bridge configured, events are fanned out to every instance through a
// pub/sub channel and each instance delivers what it receives locally.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
	EventPong    = "pong"
	EventError   = "error"
)

// Event is the JSON frame sent to clients.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	UserID         *uuid.UUID      `json:"user_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Envelope addresses an event to users and/or a conversation room. A client
// that matches both receives the event once. Except skips that user's
// connections.
type Envelope struct {
	Users        []uuid.UUID `json:"users,omitempty"`
	Conversation *uuid.UUID  `json:"conversation,omitempty"`
	Except       *uuid.UUID  `json:"except,omitempty"`
	Event        Event       `json:"event"`
}

// Publisher hands events to the relay. Implementations never block on slow
// clients.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Online(ctx context.Context, userID uuid.UUID) bool
}

// NewEvent builds an Event carrying data marshalled as JSON.
func NewEvent(eventType string, conversationID uuid.UUID, data any) (Event, error) {
	ev := Event{Type: eventType, ConversationID: &conversationID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		ev.Data = raw
	}
	return ev, nil
}
