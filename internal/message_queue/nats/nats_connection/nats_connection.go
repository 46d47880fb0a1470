package nats_connection

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	maxReconnectsDefault = 60
	reconnectWaitDefault = 2 * time.Second
)

type options struct {
	name          string
	maxReconnects int
	reconnectWait time.Duration
}

type Option func(*options)

// WithName sets the connection name shown by the server. The host name is used otherwise.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithReconnect(maxReconnects int, wait time.Duration) Option {
	return func(o *options) {
		o.maxReconnects = maxReconnects
		o.reconnectWait = wait
	}
}

func New(natsURL string, logger *slog.Logger, opts ...Option) (*nats.Conn, error) {
	o := &options{
		maxReconnects: maxReconnectsDefault,
		reconnectWait: reconnectWaitDefault,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		o.name = hostname
	}

	logger = logger.With(slog.String("module", "nats-connection"))

	natsOpts := []nats.Option{
		nats.Name(o.name),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("Connection error", slog.String("err", err.Error()))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				return
			}
			logger.Error("Client disconnected", slog.String("err", err.Error()))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("Client reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("Client closed")
		}),
		nats.RetryOnFailedConnect(true),
		nats.PingInterval(2 * time.Minute),
		nats.MaxPingsOutstanding(2),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.MaxReconnects(o.maxReconnects),
		nats.ReconnectWait(o.reconnectWait),
	}

	nc, err := nats.Connect(natsURL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %v", err)
	}

	return nc, nil
}
