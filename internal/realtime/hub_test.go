package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fasthttp starts a package-level clock goroutine once any app serves a request.
func verifyNoLeaks(t *testing.T) {
	goleak.VerifyNone(t, goleak.IgnoreAnyFunction("github.com/valyala/fasthttp.updateServerDate.func1"))
}

func readEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame, ok := <-c.Send():
		require.True(t, ok, "client channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	default:
		t.Fatal("expected a queued frame")
		return Event{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.Send():
		t.Fatalf("unexpected frame %s", frame)
	default:
	}
}

func TestDeliverToUsersAndRooms(t *testing.T) {
	defer verifyNoLeaks(t)

	hub := NewHub()
	alice, bob, carol := NewClient(uuid.New()), NewClient(uuid.New()), NewClient(uuid.New())
	for _, c := range []*Client{alice, bob, carol} {
		hub.Register(c)
	}
	assert.Equal(t, 3, hub.ClientCount())

	conv := uuid.New()
	hub.Join(alice, conv)
	hub.Join(bob, conv)

	ev, err := NewEvent(EventMessage, conv, map[string]string{"body": "hi"})
	require.NoError(t, err)

	// Alice is addressed twice but receives one frame.
	hub.Deliver(Envelope{Users: []uuid.UUID{alice.UserID}, Conversation: &conv, Event: ev})

	got := readEvent(t, alice)
	assert.Equal(t, EventMessage, got.Type)
	assert.JSONEq(t, `{"body":"hi"}`, string(got.Data))
	assertNoFrame(t, alice)
	assert.Equal(t, EventMessage, readEvent(t, bob).Type)
	assertNoFrame(t, carol)

	hub.Leave(bob, conv)
	hub.Deliver(Envelope{Conversation: &conv, Except: &alice.UserID, Event: ev})
	assertNoFrame(t, alice)
	assertNoFrame(t, bob)

	hub.Close()
	assert.Zero(t, hub.ClientCount())
}

func TestSlowClientIsDropped(t *testing.T) {
	defer verifyNoLeaks(t)

	hub := NewHub()
	slow := NewClient(uuid.New())
	hub.Register(slow)

	var offline []uuid.UUID
	hub.onPresence = func(id uuid.UUID, online bool) {
		if !online {
			offline = append(offline, id)
		}
	}

	ev := Event{Type: EventTyping}
	for i := 0; i < sendBuffer+1; i++ {
		hub.Deliver(Envelope{Users: []uuid.UUID{slow.UserID}, Event: ev})
	}

	assert.False(t, hub.Online(context.Background(), slow.UserID))
	assert.Equal(t, []uuid.UUID{slow.UserID}, offline)

	n := 0
	for range slow.Send() {
		n++
	}
	assert.Equal(t, sendBuffer, n)

	// Unregistering a dropped client is a no-op.
	hub.Unregister(slow)
	assert.Zero(t, hub.ClientCount())
}

func TestOnlineTracksMultipleConnections(t *testing.T) {
	hub := NewHub()
	user := uuid.New()
	a, b := NewClient(user), NewClient(user)
	hub.Register(a)
	hub.Register(b)

	hub.Unregister(a)
	assert.True(t, hub.Online(context.Background(), user))
	hub.Unregister(b)
	assert.False(t, hub.Online(context.Background(), user))
}

func TestJoinAfterCloseIsIgnored(t *testing.T) {
	hub := NewHub()
	c := NewClient(uuid.New())
	hub.Register(c)
	hub.Unregister(c)

	conv := uuid.New()
	hub.Join(c, conv)
	assert.False(t, hub.InRoom(c, conv))
	hub.SendTo(c, Event{Type: EventPong})
}
