package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockTokenKey  = "purchase_lock:holder"
	changeChannel = "pixelwall:changes"
)

type RedisStore struct {
	Client *redis.Client
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Close() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

// StoreLockToken mirrors the current lock holder with a TTL equal to
// the lock timeout. Redis is a fast path only; the purchase_lock row
// stays authoritative.
func (s *RedisStore) StoreLockToken(ctx context.Context, holder string, ttl time.Duration) error {
	if err := s.Client.Set(ctx, lockTokenKey, holder, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set lock token in redis: %w", err)
	}
	return nil
}

// GetLockToken returns the mirrored holder token, or "" if none.
func (s *RedisStore) GetLockToken(ctx context.Context) (string, error) {
	val, err := s.Client.Get(ctx, lockTokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get lock token from redis: %w", err)
	}
	return val, nil
}

// DeleteLockToken drops the mirrored holder token.
func (s *RedisStore) DeleteLockToken(ctx context.Context) error {
	if err := s.Client.Del(ctx, lockTokenKey).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to delete lock token from redis: %w", err)
	}
	return nil
}

// PublishChange broadcasts the name of a changed resource (tiles,
// game_state, purchase_lock, app_config) to all connected instances.
// The payload is the resource name only; consumers re-read full state.
func (s *RedisStore) PublishChange(ctx context.Context, resource string) error {
	if err := s.Client.Publish(ctx, changeChannel, resource).Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", resource, err)
	}
	return nil
}

// SubscribeChanges opens the change feed. The returned channel is
// closed when ctx is cancelled.
func (s *RedisStore) SubscribeChanges(ctx context.Context) (<-chan string, error) {
	pubsub := s.Client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
