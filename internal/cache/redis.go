package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore shares cached values between instances.
type RedisStore struct {
	client redis.UniversalClient
	ctx    context.Context
	prefix string
}

// WithKeyPrefix namespaces all keys, so that several deployments can share one redis database.
func WithKeyPrefix(prefix string) func(*RedisStore) {
	return func(r *RedisStore) {
		r.prefix = prefix
	}
}

func NewRedisStore(ctx context.Context, c redis.UniversalClient, opts ...func(*RedisStore)) *RedisStore {
	r := &RedisStore{
		client: c,
		ctx:    ctx,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Get(key string) ([]byte, error) {
	result, err := r.client.Get(r.ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheNotFound
	} else if err != nil {
		return nil, errors.Join(ErrCacheFailedToGet, err)
	}

	return []byte(result), nil
}

func (r *RedisStore) Set(key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(r.ctx, r.key(key), value, ttl).Err()
	if err != nil {
		return errors.Join(ErrCacheFailedToSet, err)
	}

	return nil
}

func (r *RedisStore) Del(keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}

	result, err := r.client.Del(r.ctx, prefixed...).Result()
	if err != nil {
		return errors.Join(ErrCacheFailedToDel, err)
	}
	if result == 0 {
		return ErrCacheNotFound
	}

	return nil
}
