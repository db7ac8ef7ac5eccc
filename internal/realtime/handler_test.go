package realtime

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/identity"
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers map[uuid.UUID][]uuid.UUID

func (f fakeMembers) IsParticipant(conv, user uuid.UUID) bool {
	for _, u := range f[conv] {
		if u == user {
			return true
		}
	}
	return false
}

func TestHandleFrame(t *testing.T) {
	hub := NewHub()
	conv := uuid.New()
	alice, bob, mallory := NewClient(uuid.New()), NewClient(uuid.New()), NewClient(uuid.New())
	members := fakeMembers{conv: {alice.UserID, bob.UserID}}
	h := NewHandler(hub, hub, members, "secret", "access_token")
	for _, c := range []*Client{alice, bob, mallory} {
		hub.Register(c)
	}

	h.HandleFrame(alice, []byte(`{"type":"ping"}`))
	assert.Equal(t, EventPong, readEvent(t, alice).Type)

	h.HandleFrame(alice, []byte(`not json`))
	assert.Equal(t, EventError, readEvent(t, alice).Type)

	h.HandleFrame(mallory, []byte(`{"type":"join","conversation_id":"`+conv.String()+`"}`))
	ev := readEvent(t, mallory)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "not a participant", ev.Error)
	assert.False(t, hub.InRoom(mallory, conv))

	h.HandleFrame(alice, []byte(`{"type":"typing","conversation_id":"`+conv.String()+`"}`))
	assert.Equal(t, EventError, readEvent(t, alice).Type)

	h.HandleFrame(alice, []byte(`{"type":"join","conversation_id":"`+conv.String()+`"}`))
	h.HandleFrame(bob, []byte(`{"type":"join","conversation_id":"`+conv.String()+`"}`))
	assert.True(t, hub.InRoom(alice, conv))

	h.HandleFrame(alice, []byte(`{"type":"typing","conversation_id":"`+conv.String()+`"}`))
	typing := readEvent(t, bob)
	assert.Equal(t, EventTyping, typing.Type)
	require.NotNil(t, typing.UserID)
	assert.Equal(t, alice.UserID, *typing.UserID)
	assertNoFrame(t, alice)
	assertNoFrame(t, mallory)

	h.HandleFrame(bob, []byte(`{"type":"leave","conversation_id":"`+conv.String()+`"}`))
	assert.False(t, hub.InRoom(bob, conv))

	h.HandleFrame(bob, []byte(`{"type":"dance","conversation_id":"`+conv.String()+`"}`))
	assert.Equal(t, "unknown frame type", readEvent(t, bob).Error)
}

func TestAuthenticate(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, hub, fakeMembers{}, "secret", "access_token")

	app := fiber.New()
	app.Get("/ws", h.Authenticate, func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(localsUserID).(uuid.UUID).String())
	})

	upgrade := func(target string) *http.Request {
		req := httptest.NewRequest("GET", target, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = app.Test(upgrade("/ws?token=garbage"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	userID := uuid.New()
	token, err := identity.SignAccessToken("secret", time.Minute, userID, "a@example.com", "user")
	require.NoError(t, err)

	resp, err = app.Test(upgrade("/ws?token=" + token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookieReq := upgrade("/ws")
	cookieReq.Header.Set("Cookie", "access_token="+token)
	resp, err = app.Test(cookieReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestServeConnection(t *testing.T) {
	defer verifyNoLeaks(t)

	hub := NewHub()
	conv := uuid.New()
	userID := uuid.New()
	h := NewHandler(hub, hub, fakeMembers{conv: {userID}}, "secret", "access_token")

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", h.Authenticate, h.Serve())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	token, err := identity.SignAccessToken("secret", time.Minute, userID, "a@example.com", "user")
	require.NoError(t, err)
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?token="+token, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	readFrame := func() Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, EventPong, readFrame().Type)
	assert.True(t, hub.Online(context.Background(), userID))

	// Frames are handled in order, so the pong confirms the join.
	require.NoError(t, conn.WriteJSON(clientFrame{Type: "join", ConversationID: conv.String()}))
	require.NoError(t, conn.WriteJSON(clientFrame{Type: "ping"}))
	assert.Equal(t, EventPong, readFrame().Type)

	ev, err := NewEvent(EventMessage, conv, map[string]string{"body": "hi"})
	require.NoError(t, err)
	hub.Deliver(Envelope{Conversation: &conv, Event: ev})

	got := readFrame()
	assert.Equal(t, EventMessage, got.Type)
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, conv, *got.ConversationID)
	assert.JSONEq(t, `{"body":"hi"}`, string(got.Data))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
