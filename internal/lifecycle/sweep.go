package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

// StartSweep releases claims left behind by an earlier run under the same name and then
// periodically re-shares unsent and sending requests.
func (p *Processor) StartSweep() error {
	err := p.unlockRecords(p.ctx)
	if err != nil {
		return err
	}

	interval := p.sweepInterval
	if interval <= 0 {
		interval = sweepIntervalDefault
	}

	ticker := time.NewTicker(interval)
	p.waitGroup.Add(1)

	go func() {
		defer func() {
			ticker.Stop()
			p.waitGroup.Done()
		}()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.Sweep(p.ctx)
			}
		}
	}()

	return nil
}

// Sweep claims up to one batch of unlocked requests waiting in unsent or sending, least recently
// updated first, and posts every one of them on its own so that one bad request cannot invalidate
// unrelated ones. It returns the number of requests reconciled.
func (p *Processor) Sweep(ctx context.Context) int {
	ctx, span := tracing.StartTracing(ctx, "Sweep", p.tracingEnabled, p.tracingAttributes...)
	var err error
	defer func() {
		tracing.EndTracing(span, err)
	}()

	requests, err := p.store.ClaimRequests(ctx, store.ClaimFilter{
		Statuses: txreq.SweepStatuses,
		Limit:    p.sweepBatchSize,
	}, p.lockedBy)
	if err != nil {
		p.logger.Error("Failed to claim requests to sweep", slog.String("err", err.Error()))
		return 0
	}

	if len(requests) == 0 {
		return 0
	}

	defer p.unlock(ctx, requests)

	swept := 0
	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}

		single := []*txreq.Request{req}
		bundle, unresolved := p.buildBundle(ctx, single)

		result, reconcileErr := p.reconcile(ctx, bundle, unresolved, single, "", txreq.WhatSweep)
		if reconcileErr != nil {
			p.logger.Warn("Failed to sweep request", slog.String("hash", req.TxID), slog.String("err", reconcileErr.Error()))
		}

		if result != nil {
			swept++
		}
	}

	p.logger.Info("Swept requests", slog.Int("claimed", len(requests)), slog.Int("swept", swept))

	return swept
}
