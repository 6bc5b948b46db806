package presence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// StalenessWindow is how long a heartbeat keeps an identity "online".
// The presence channel, the last-seen store, and the client tracker all
// share this one definition.
const StalenessWindow = 5 * time.Minute

// LastSeenStore is the durable last-seen fallback for offline users. The
// realtime presence channel remains the sole source of truth for "online
// right now"; this store only answers "when was this user last here".
type LastSeenStore interface {
	Touch(ctx context.Context, userID string, at time.Time) error
	LastSeen(ctx context.Context, userID string) (time.Time, bool, error)
	OnlineCount(ctx context.Context) (int, error)
	Close() error
}

// RedisStore keeps last-seen timestamps in Redis with a TTL equal to the
// staleness window, so keys expire for users who stop heartbeating.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings; a nil store is returned with the
// error when Redis is unreachable so callers can degrade to DB-only.
func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func key(userID string) string {
	return "presence:last_seen:" + userID
}

// Touch records a heartbeat with the staleness-window TTL.
func (s *RedisStore) Touch(ctx context.Context, userID string, at time.Time) error {
	return s.client.Set(ctx, key(userID), at.UTC().Format(time.RFC3339Nano), StalenessWindow).Err()
}

// LastSeen returns the last recorded heartbeat, if any key survives.
func (s *RedisStore) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// OnlineCount counts surviving last-seen keys.
func (s *RedisStore) OnlineCount(ctx context.Context) (int, error) {
	var count int
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "presence:last_seen:*", 100).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NoopStore is used when Redis is not configured; all operations succeed
// and report nothing.
type NoopStore struct{}

func (NoopStore) Touch(context.Context, string, time.Time) error { return nil }

func (NoopStore) LastSeen(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (NoopStore) OnlineCount(context.Context) (int, error) { return 0, nil }

func (NoopStore) Close() error { return nil }

// NewStore returns a RedisStore when addr is set and reachable, falling
// back to NoopStore otherwise.
func NewStore(addr, password string) LastSeenStore {
	if addr == "" {
		return NoopStore{}
	}
	store, err := NewRedisStore(addr, password)
	if err != nil {
		log.Printf("presence store disabled, using noop: %v", err)
		return NoopStore{}
	}
	return store
}
