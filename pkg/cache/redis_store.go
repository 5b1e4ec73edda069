package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the Smart Cache with Redis, using SET NX EX for the
// atomic set-if-absent path the single-flight contract prefers when the
// underlying store supports it (§4.1).
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore wraps an existing *redis.Client. ctx bounds every call
// this store makes; callers typically pass context.Background() and
// rely on the client's own dial/read timeouts.
func NewRedisStore(client *redis.Client, ctx context.Context) *RedisStore {
	return &RedisStore{client: client, ctx: ctx}
}

func (r *RedisStore) Get(key string) ([]byte, bool, error) {
	val, err := r.client.Get(r.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisStore) SetNX(key string, value []byte, ttl time.Duration) (bool, error) {
	return r.client.SetNX(r.ctx, key, value, ttl).Result()
}

func (r *RedisStore) Set(key string, value []byte, ttl time.Duration) error {
	return r.client.Set(r.ctx, key, value, ttl).Err()
}
