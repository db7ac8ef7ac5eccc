package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

// RedisBridge fans events out to every instance through a Redis channel and
// keeps a per-user connection counter so any instance can tell whether a
// user is online somewhere.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

// NewRedisBridge attaches the bridge to hub. Run must be started for remote
// events to reach local clients.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub) *RedisBridge {
	b := &RedisBridge{client: client, channel: channel, hub: hub}
	hub.mu.Lock()
	hub.onPresence = b.trackPresence
	hub.mu.Unlock()
	return b
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (b *RedisBridge) presenceKey(userID uuid.UUID) string {
	return b.channel + ":online:" + userID.String()
}

func (b *RedisBridge) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBridge) Online(ctx context.Context, userID uuid.UUID) bool {
	if b.hub.Online(ctx, userID) {
		return true
	}
	n, err := b.client.Get(ctx, b.presenceKey(userID)).Int64()
	if err != nil {
		return false
	}
	return n > 0
}

func (b *RedisBridge) trackPresence(userID uuid.UUID, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := b.presenceKey(userID)
	pipe := b.client.TxPipeline()
	if online {
		pipe.Incr(ctx, key)
	} else {
		pipe.Decr(ctx, key)
	}
	pipe.Expire(ctx, key, presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("failed to update realtime presence", "user_id", userID.String(), "error", err)
	}
}

// Run delivers events from the channel to local clients until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	slog.Info("realtime redis bridge subscribed", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("discarding malformed realtime event", "error", err)
				continue
			}
			b.hub.Deliver(env)
		}
	}
}
