package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localsUserID = "ws_user_id"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	maxFrame   = 4096
)

// Membership answers whether a user may join a conversation room.
type Membership interface {
	IsParticipant(conversationID, userID uuid.UUID) bool
}

// clientFrame is what browsers send.
type clientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type Handler struct {
	hub        *Hub
	publisher  Publisher
	members    Membership
	secret     string
	cookieName string
}

func NewHandler(hub *Hub, publisher Publisher, members Membership, secret, cookieName string) *Handler {
	return &Handler{hub: hub, publisher: publisher, members: members, secret: secret, cookieName: cookieName}
}

// Authenticate runs before the upgrade. The token comes from the "token"
// query parameter, an Authorization header or the auth cookie.
func (h *Handler) Authenticate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(dto.ErrorResponse{
			Error: true, Message: "websocket upgrade required",
		})
	}

	raw := c.Query("token")
	if raw == "" {
		raw = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	if raw == "" {
		raw = c.Cookies(h.cookieName)
	}
	userID, err := identity.ParseAccessToken(h.secret, raw)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid or expired token",
		})
	}

	c.Locals(localsUserID, userID)
	return c.Next()
}

// Serve is the upgraded connection handler.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(localsUserID).(uuid.UUID)
		if !ok {
			_ = conn.Close()
			return
		}

		client := NewClient(userID)
		h.hub.Register(client)
		done := make(chan struct{})
		go h.writePump(conn, client, done)

		conn.SetReadLimit(maxFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			h.HandleFrame(client, raw)
		}

		h.hub.Unregister(client)
		<-done
	})
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleFrame applies one client frame.
func (h *Handler) HandleFrame(client *Client, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.reply(client, Event{Type: EventError, Error: "malformed frame"})
		return
	}

	if frame.Type == "ping" {
		h.reply(client, Event{Type: EventPong})
		return
	}

	convID, err := uuid.Parse(frame.ConversationID)
	if err != nil {
		h.reply(client, Event{Type: EventError, Error: "conversation_id is required"})
		return
	}

	switch frame.Type {
	case "join":
		if !h.members.IsParticipant(convID, client.UserID) {
			h.reply(client, Event{Type: EventError, ConversationID: &convID, Error: "not a participant"})
			return
		}
		h.hub.Join(client, convID)
	case "leave":
		h.hub.Leave(client, convID)
	case "typing":
		if !h.hub.InRoom(client, convID) {
			h.reply(client, Event{Type: EventError, ConversationID: &convID, Error: "join the conversation first"})
			return
		}
		uid := client.UserID
		env := Envelope{
			Conversation: &convID,
			Except:       &uid,
			Event:        Event{Type: EventTyping, ConversationID: &convID, UserID: &uid},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.publisher.Publish(ctx, env); err != nil {
			slog.Warn("failed to publish typing event", "error", err)
		}
	default:
		h.reply(client, Event{Type: EventError, Error: "unknown frame type"})
	}
}

func (h *Handler) reply(client *Client, ev Event) {
	h.hub.SendTo(client, ev)
}
