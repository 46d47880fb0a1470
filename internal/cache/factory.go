package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/bitcoin-sv/txlifecycle/config"
)

const keyPrefix = "txlifecycle:"

// NewStore creates the cache store selected by the configuration.
func NewStore(ctx context.Context, cacheConfig *config.CacheConfig) (Store, error) {
	switch cacheConfig.Engine {
	case config.InMemory:
		return NewMemoryStore(cacheConfig.RootValidityExpiry), nil
	case config.Redis:
		c := redis.NewClient(&redis.Options{
			Addr:     cacheConfig.Redis.Addr,
			Password: cacheConfig.Redis.Password,
			DB:       cacheConfig.Redis.DB,
		})

		return NewRedisStore(ctx, c, WithKeyPrefix(keyPrefix)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrCacheUnknownType, cacheConfig.Engine)
	}
}
