package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/config"
	"github.com/bitcoin-sv/txlifecycle/internal/cache"
)

func TestNewStore(t *testing.T) {
	tt := []struct {
		name   string
		config *config.CacheConfig

		expectedStore cache.Store
		expectedError error
	}{
		{
			name:   "in-memory",
			config: &config.CacheConfig{Engine: config.InMemory, RootValidityExpiry: time.Hour},

			expectedStore: &cache.MemoryStore{},
		},
		{
			name: "redis",
			config: &config.CacheConfig{
				Engine: config.Redis,
				Redis:  &config.RedisConfig{Addr: "localhost:6379"},
			},

			expectedStore: &cache.RedisStore{},
		},
		{
			name:   "unknown engine",
			config: &config.CacheConfig{Engine: "memcached"},

			expectedError: cache.ErrCacheUnknownType,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// when
			actual, err := cache.NewStore(context.Background(), tc.config)

			// then
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			require.IsType(t, tc.expectedStore, actual)
		})
	}
}
