package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

const statCollectionIntervalDefault = 60 * time.Second

var ErrFailedToRegisterStats = errors.New("failed to register stats collector")

type processorStats struct {
	mu       sync.RWMutex
	requests map[txreq.Status]prometheus.Gauge
	outcomes *prometheus.CounterVec
	commits  *prometheus.CounterVec
}

func newProcessorStats() *processorStats {
	s := &processorStats{
		requests: make(map[txreq.Status]prometheus.Gauge, len(txreq.AllStatuses)),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txlifecycle_post_outcome_total",
			Help: "Number of aggregated relay outcomes per request",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txlifecycle_commit_total",
			Help: "Number of commits of signed transactions by result",
		}, []string{"result"}),
	}

	for _, status := range txreq.AllStatuses {
		s.requests[status] = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txlifecycle_requests_" + string(status) + "_count",
			Help: "Shows the number of requests with status " + string(status),
		})
	}

	return s
}

func (s *processorStats) collectors() []prometheus.Collector {
	collectors := []prometheus.Collector{s.outcomes, s.commits}
	for _, status := range txreq.AllStatuses {
		collectors = append(collectors, s.requests[status])
	}

	return collectors
}

func (s *processorStats) observeOutcome(outcome relay.Outcome) {
	s.outcomes.WithLabelValues(string(outcome)).Inc()
}

func (s *processorStats) observeCommit(err error) {
	switch {
	case err == nil:
		s.commits.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrValidation):
		s.commits.WithLabelValues("invalid").Inc()
	default:
		s.commits.WithLabelValues("error").Inc()
	}
}

// StartCollectStats registers the processor metrics with reg and refreshes the request gauges
// from storage until the processor shuts down.
func (p *Processor) StartCollectStats(reg prometheus.Registerer, interval time.Duration) error {
	for _, c := range p.stats.collectors() {
		err := reg.Register(c)
		if err != nil {
			return errors.Join(ErrFailedToRegisterStats, err)
		}
	}

	if interval <= 0 {
		interval = statCollectionIntervalDefault
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
				p.collectStats(p.ctx)
			}
		}
	}()

	return nil
}

func (p *Processor) collectStats(ctx context.Context) {
	collected, err := p.store.GetStats(ctx)
	if err != nil {
		p.logger.Error("Failed to get stats", slog.String("err", err.Error()))
		return
	}

	p.stats.mu.Lock()
	defer p.stats.mu.Unlock()

	for _, status := range txreq.AllStatuses {
		p.stats.requests[status].Set(float64(collected.Count(status)))
	}
}
