package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitcoin-sv/txlifecycle/config"
	"github.com/bitcoin-sv/txlifecycle/internal/cache"
	"github.com/bitcoin-sv/txlifecycle/internal/chaintracker"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/relay/arc"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/woc_client"
)

// NewChainTracker returns a WhatsOnChain tracker whose root checks are cached in the configured cache store.
func NewChainTracker(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*chaintracker.CachedTracker, error) {
	cacheStore, err := cache.NewStore(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %v", err)
	}

	wocClient := woc_client.New(
		cfg.ChainTracker.IsMainnet(),
		woc_client.WithAuth(cfg.ChainTracker.APIKey),
		woc_client.WithLogger(logger),
	)

	return chaintracker.NewCached(
		wocClient,
		cacheStore,
		chaintracker.WithRootValidityExpiry(cfg.Cache.RootValidityExpiry),
		chaintracker.WithLogger(logger),
	), nil
}

func NewRelays(logger *slog.Logger, relayConfigs []*config.RelayConfig) *relay.MultiRelay {
	relays := make([]relay.Relay, 0, len(relayConfigs))
	for _, rc := range relayConfigs {
		relays = append(relays, arc.New(rc.Name, rc.URL,
			arc.WithLogger(logger),
			arc.WithToken(rc.Token),
			arc.WithDeploymentID(rc.DeploymentID),
			arc.WithTimeout(rc.Timeout),
		))
	}

	return relay.NewMultiRelay(relays, relay.WithLogger(logger))
}

// NewProcessor wires the lifecycle processor with the configured chain tracker and relays.
func NewProcessor(ctx context.Context, logger *slog.Logger, cfg *config.Config, s store.Store, opts ...lifecycle.Option) (*lifecycle.Processor, error) {
	tracker, err := NewChainTracker(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	relays := NewRelays(logger, cfg.Relays)

	lc := cfg.Lifecycle
	processorOpts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithMaxAttempts(lc.MaxAttempts),
		lifecycle.WithMaxOutputScript(lc.MaxOutputScript),
		lifecycle.WithCommissionSatoshis(lc.CommissionSatoshis),
		lifecycle.WithSweepInterval(lc.SweepInterval),
		lifecycle.WithSweepBatchSize(lc.SweepBatchSize),
		lifecycle.WithLockedBy(lc.LockedBy),
	}

	if cfg.Tracing.IsEnabled() {
		processorOpts = append(processorOpts, lifecycle.WithTracer(cfg.Tracing.KeyValueAttributes...))
	}

	processorOpts = append(processorOpts, opts...)

	processor, err := lifecycle.NewProcessor(s, tracker, relays, processorOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %v", err)
	}

	return processor, nil
}
