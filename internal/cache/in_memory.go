package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const cleanupIntervalDefault = 10 * time.Minute

// MemoryStore keeps values in process memory and evicts them after their ttl.
type MemoryStore struct {
	data *cache.Cache
}

func NewMemoryStore(defaultExpiration time.Duration) *MemoryStore {
	return &MemoryStore{
		data: cache.New(defaultExpiration, cleanupIntervalDefault),
	}
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	value, found := s.data.Get(key)
	if !found {
		return nil, ErrCacheNotFound
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil, ErrCacheFailedToGet
	}

	return bytes, nil
}

// Set stores a value. A zero ttl falls back to the store's default expiration.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = cache.DefaultExpiration
	}

	s.data.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Del(keys ...string) error {
	for _, key := range keys {
		if _, found := s.data.Get(key); !found {
			return ErrCacheNotFound
		}
		s.data.Delete(key)
	}

	return nil
}
