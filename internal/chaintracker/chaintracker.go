package chaintracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	sdkTracker "github.com/bsv-blockchain/go-sdk/transaction/chaintracker"

	"github.com/bitcoin-sv/txlifecycle/internal/cache"
)

//go:generate moq -pkg mocks -out ./mocks/chain_tracker_mock.go . ChainTracker

const rootValidityExpiryDefault = 24 * time.Hour

var validRoot = []byte{1}

// ChainTracker answers whether a merkle root belongs to the current best chain.
type ChainTracker interface {
	IsValidRootForHeight(ctx context.Context, root *chainhash.Hash, height uint32) (bool, error)
	CurrentHeight(ctx context.Context) (uint32, error)
}

var _ sdkTracker.ChainTracker = (*CachedTracker)(nil)

// CachedTracker memoises confirmed roots. Rejections are never cached since the tracker may lag
// behind the chain tip.
type CachedTracker struct {
	tracker    ChainTracker
	cacheStore cache.Store
	expiry     time.Duration
	logger     *slog.Logger
}

func WithRootValidityExpiry(d time.Duration) func(*CachedTracker) {
	return func(t *CachedTracker) {
		t.expiry = d
	}
}

func WithLogger(logger *slog.Logger) func(*CachedTracker) {
	return func(t *CachedTracker) {
		t.logger = logger
	}
}

func NewCached(tracker ChainTracker, cacheStore cache.Store, opts ...func(*CachedTracker)) *CachedTracker {
	t := &CachedTracker{
		tracker:    tracker,
		cacheStore: cacheStore,
		expiry:     rootValidityExpiryDefault,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.With(slog.String("module", "chain-tracker"))

	return t
}

func (t *CachedTracker) IsValidRootForHeight(ctx context.Context, root *chainhash.Hash, height uint32) (bool, error) {
	key := rootKey(root, height)

	_, err := t.cacheStore.Get(key)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, cache.ErrCacheNotFound) {
		t.logger.Warn("Failed to read root from cache", slog.String("key", key), slog.String("err", err.Error()))
	}

	valid, err := t.tracker.IsValidRootForHeight(ctx, root, height)
	if err != nil {
		return false, err
	}

	if valid {
		err = t.cacheStore.Set(key, validRoot, t.expiry)
		if err != nil {
			t.logger.Warn("Failed to cache valid root", slog.String("key", key), slog.String("err", err.Error()))
		}
	}

	return valid, nil
}

func (t *CachedTracker) CurrentHeight(ctx context.Context) (uint32, error) {
	return t.tracker.CurrentHeight(ctx)
}

func rootKey(root *chainhash.Hash, height uint32) string {
	return fmt.Sprintf("root-%d-%s", height, root.String())
}
