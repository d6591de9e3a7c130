package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel returns the Redis pub/sub channel for userID.
func Channel(userID int64) string {
	return fmt.Sprintf("sharecycle:notify:%d", userID)
}

// UnreadKey returns the Redis key holding the unread counter for userID.
func UnreadKey(userID int64) string {
	return fmt.Sprintf("sharecycle:unread:%d", userID)
}

// RedisClient is the part of *redis.Client used by Redis.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis publishes events on per-user channels and keeps an unread counter
// that live clients can poll without touching the database.
type Redis struct {
	Client RedisClient
}

// NewRedisClient builds a go-redis client for addr.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Notify implements Notifier.
func (r *Redis) Notify(ctx context.Context, userID int64, eventType string, p Payload) error {
	data, err := json.Marshal(Message{
		UserID:    userID,
		Type:      eventType,
		Title:     Title(eventType),
		Payload:   p,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	if err := r.Client.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	if err := r.Client.Incr(ctx, UnreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("incrementing unread counter: %w", err)
	}
	return nil
}

// ResetUnread clears the user's unread counter.
func (r *Redis) ResetUnread(ctx context.Context, userID int64) error {
	if err := r.Client.Del(ctx, UnreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("resetting unread counter: %w", err)
	}
	return nil
}
