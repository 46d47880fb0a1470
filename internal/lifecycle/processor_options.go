package lifecycle

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

func WithNow(nowFunc func() time.Time) Option {
	return func(p *Processor) {
		p.now = nowFunc
	}
}

// WithMaxAttempts sets the number of posts after which a request becomes invalid.
func WithMaxAttempts(n int) Option {
	return func(p *Processor) {
		p.maxAttempts = n
	}
}

func WithMaxOutputScript(n uint64) Option {
	return func(p *Processor) {
		p.maxOutputScript = n
	}
}

// WithCommissionSatoshis requires every committed transaction to pay its commission row when
// satoshis is above zero.
func WithCommissionSatoshis(satoshis uint64) Option {
	return func(p *Processor) {
		p.commissionSatoshis = satoshis
	}
}

func WithLockedBy(name string) Option {
	return func(p *Processor) {
		if name != "" {
			p.lockedBy = name
		}
	}
}

func WithBatchIDGenerator(fn func() string) Option {
	return func(p *Processor) {
		p.newBatchID = fn
	}
}

func WithMessageQueueClient(mqClient MessageQueue, topic string) Option {
	return func(p *Processor) {
		p.mqClient = mqClient
		if topic != "" {
			p.statusTopic = topic
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(p *Processor) {
		p.sweepInterval = d
	}
}

func WithSweepBatchSize(size int64) Option {
	return func(p *Processor) {
		p.sweepBatchSize = size
	}
}

func WithTracer(attr ...attribute.KeyValue) Option {
	return func(p *Processor) {
		p.tracingEnabled = true
		if len(attr) > 0 {
			p.tracingAttributes = append(p.tracingAttributes, attr...)
		}
	}
}
