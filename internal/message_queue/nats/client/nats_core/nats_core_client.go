package natscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

var (
	ErrFailedToPublish   = errors.New("failed to publish")
	ErrFailedToSubscribe = errors.New("failed to subscribe")
	ErrFailedToMarshal   = errors.New("failed to marshal message")
	ErrFailedToUnmarshal = errors.New("failed to unmarshal message")
)

//go:generate moq -pkg mocks -out ./mocks/nats_connection_mock.go . NatsConnection
type NatsConnection interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
	Drain() error
}

// Client publishes request status events on core NATS subjects. Delivery is at most once.
type Client struct {
	nc     NatsConnection
	logger *slog.Logger
}

func WithLogger(logger *slog.Logger) func(handler *Client) {
	return func(m *Client) {
		m.logger = logger
	}
}

func New(nc NatsConnection, opts ...func(client *Client)) *Client {
	m := &Client{
		nc:     nc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.With(slog.String("module", "nats-core"))

	return m
}

func (c Client) Shutdown() {
	if c.nc != nil {
		err := c.nc.Drain()
		if err != nil {
			c.logger.Error("Failed to drain nats connection", slog.String("err", err.Error()))
		}
	}
}

func (c Client) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToPublish, fmt.Errorf("topic: %s", topic), err)
	}

	err := c.nc.Publish(topic, data)
	if err != nil {
		return errors.Join(ErrFailedToPublish, fmt.Errorf("topic: %s", topic), err)
	}

	return nil
}

// PublishMarshal publishes v encoded as JSON.
func (c Client) PublishMarshal(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrFailedToMarshal, err)
	}

	return c.Publish(ctx, topic, data)
}

// Subscribe joins the queue group of topic, so that every message is handled by one subscriber only.
func (c Client) Subscribe(topic string, msgFunc func([]byte) error) error {
	_, err := c.nc.QueueSubscribe(topic, topic+"-group", c.handler(topic, msgFunc))
	if err != nil {
		return errors.Join(ErrFailedToSubscribe, fmt.Errorf("topic: %s", topic), err)
	}

	return nil
}

// Watch subscribes outside of any queue group. Every watcher receives every message.
func (c Client) Watch(topic string, msgFunc func([]byte) error) error {
	_, err := c.nc.Subscribe(topic, c.handler(topic, msgFunc))
	if err != nil {
		return errors.Join(ErrFailedToSubscribe, fmt.Errorf("topic: %s", topic), err)
	}

	return nil
}

func (c Client) handler(topic string, msgFunc func([]byte) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		err := msgFunc(msg.Data)
		if err != nil {
			c.logger.Error("Failed to run message function", slog.String("topic", topic), slog.String("err", err.Error()))
		}
	}
}

// DecodeJSON adapts fn to a message function receiving JSON encoded values of T.
func DecodeJSON[T any](fn func(T) error) func([]byte) error {
	return func(data []byte) error {
		var v T
		err := json.Unmarshal(data, &v)
		if err != nil {
			return errors.Join(ErrFailedToUnmarshal, err)
		}

		return fn(v)
	}
}
