package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitcoin-sv/txlifecycle/config"
	"github.com/bitcoin-sv/txlifecycle/internal/global"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	natscore "github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/client/nats_core"
	"github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/nats_connection"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
)

// StartSweeper starts the retry sweep and the stats collection. The returned function stops
// them and releases every resource.
func StartSweeper(logger *slog.Logger, cfg *config.Config) (func(), error) {
	logger = logger.With(slog.String("service", "sweeper"))
	logger.Info("Starting")

	var stoppables global.Stoppables
	var closers global.Closers
	var shutdownFns []func()

	stopFn := func() {
		logger.Info("Shutting down sweeper")
		stoppables.Shutdown()
		closers.Close(logger)
		for _, fn := range shutdownFns {
			fn()
		}
		logger.Info("Shutdown sweeper complete")
	}

	if cfg.Tracing.IsEnabled() {
		cleanup, err := tracing.Enable(logger, "txlifecycle", cfg.Tracing.DialAddr, cfg.Tracing.Sample)
		if err != nil {
			logger.Error("failed to enable tracing", slog.String("err", err.Error()))
		} else {
			shutdownFns = append(shutdownFns, cleanup)
		}
	}

	s, err := NewStore(logger, cfg.Db, cfg.Tracing)
	if err != nil {
		stopFn()
		return nil, err
	}
	closers = append(closers, s)

	var processorOpts []lifecycle.Option
	if cfg.MessageQueue.URL != "" {
		conn, err := nats_connection.New(cfg.MessageQueue.URL, logger)
		if err != nil {
			stopFn()
			return nil, fmt.Errorf("failed to connect to message queue: %v", err)
		}

		mqClient := natscore.New(conn, natscore.WithLogger(logger))
		stoppables = append(stoppables, mqClient)
		processorOpts = append(processorOpts, lifecycle.WithMessageQueueClient(mqClient, cfg.MessageQueue.StatusTopic))
	}

	processor, err := NewProcessor(context.Background(), logger, cfg, s, processorOpts...)
	if err != nil {
		stopFn()
		return nil, err
	}
	stoppables = append(stoppables, processor)

	logger.Info("Processor instance", slog.String("lockedBy", processor.LockedBy()))

	err = processor.StartSweep()
	if err != nil {
		stopFn()
		return nil, fmt.Errorf("failed to start sweep: %v", err)
	}

	if cfg.Prometheus.IsEnabled() {
		err = processor.StartCollectStats(prometheus.DefaultRegisterer, cfg.Lifecycle.StatsInterval)
		if err != nil {
			stopFn()
			return nil, fmt.Errorf("failed to start collecting stats: %v", err)
		}
	}

	return stopFn, nil
}
