package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// RedisClient is the slice of pkg/redis the snapshot store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(key string) string
}

// RedisStore keeps snapshots under sf:cart:<key>. A zero TTL never expires.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.client.CartKey(key))
	if redis.IsNil(err) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart snapshot: %w", err)
	}
	return []byte(val), nil
}

func (r *RedisStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, r.client.CartKey(key), payload, r.ttl); err != nil {
		return fmt.Errorf("redis set cart snapshot: %w", err)
	}
	return nil
}
