package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBridgeFansOutAcrossInstances(t *testing.T) {
	client := newMiniRedisClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, hubB := NewHub(), NewHub()
	bridgeA := NewRedisBridge(client, "test:rt", hubA)
	bridgeB := NewRedisBridge(client, "test:rt", hubB)

	errs := make(chan error, 2)
	go func() { errs <- bridgeA.Run(ctx) }()
	go func() { errs <- bridgeB.Run(ctx) }()

	recipient := NewClient(uuid.New())
	hubB.Register(recipient)

	// Instance A sees the user as online through the shared counter.
	assert.True(t, bridgeA.Online(ctx, recipient.UserID))
	assert.False(t, bridgeA.Online(ctx, uuid.New()))

	conv := uuid.New()
	ev, err := NewEvent(EventMessage, conv, map[string]string{"body": "hello"})
	require.NoError(t, err)

	// Subscriptions register asynchronously; publish until one lands.
	var frame []byte
	require.Eventually(t, func() bool {
		require.NoError(t, bridgeA.Publish(ctx, Envelope{Users: []uuid.UUID{recipient.UserID}, Event: ev}))
		select {
		case frame = <-recipient.Send():
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	var got Event
	require.NoError(t, json.Unmarshal(frame, &got))
	assert.Equal(t, EventMessage, got.Type)
	require.NotNil(t, got.ConversationID)
	assert.Equal(t, conv, *got.ConversationID)

	hubB.Unregister(recipient)
	assert.False(t, bridgeA.Online(ctx, recipient.UserID))

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("bridge did not stop")
		}
	}
}
