package natscore_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	natscore "github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/client/nats_core"
	"github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/client/nats_core/mocks"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

var _ lifecycle.MessageQueue = natscore.Client{}

func TestPublishMarshal(t *testing.T) {
	event := lifecycle.StatusEvent{
		TxID:      testdata.ChildTxID,
		Status:    txreq.StatusUnmined,
		Attempts:  1,
		Timestamp: testdata.Time,
	}

	tt := []struct {
		name       string
		message    any
		publishErr error

		expectedError        error
		expectedPublishCalls int
	}{
		{
			name:    "success",
			message: event,

			expectedPublishCalls: 1,
		},
		{
			name:       "publish err",
			message:    event,
			publishErr: errors.New("connection closed"),

			expectedError:        natscore.ErrFailedToPublish,
			expectedPublishCalls: 1,
		},
		{
			name:    "marshal err",
			message: make(chan int),

			expectedError:        natscore.ErrFailedToMarshal,
			expectedPublishCalls: 0,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			natsMock := &mocks.NatsConnectionMock{
				PublishFunc: func(_ string, _ []byte) error {
					return tc.publishErr
				},
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
			sut := natscore.New(natsMock, natscore.WithLogger(logger))

			// when
			err := sut.PublishMarshal(context.Background(), lifecycle.StatusTopic, tc.message)

			// then
			require.Len(t, natsMock.PublishCalls(), tc.expectedPublishCalls)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			require.Equal(t, lifecycle.StatusTopic, natsMock.PublishCalls()[0].Subj)

			var actual lifecycle.StatusEvent
			require.NoError(t, json.Unmarshal(natsMock.PublishCalls()[0].Data, &actual))
			require.Equal(t, event.TxID, actual.TxID)
			require.Equal(t, event.Status, actual.Status)
		})
	}
}

func TestPublish(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tt := []struct {
		name       string
		ctx        context.Context
		publishErr error

		expectedError        error
		expectedPublishCalls int
	}{
		{
			name: "success",
			ctx:  context.Background(),

			expectedPublishCalls: 1,
		},
		{
			name:       "error - publish",
			ctx:        context.Background(),
			publishErr: errors.New("connection closed"),

			expectedError:        natscore.ErrFailedToPublish,
			expectedPublishCalls: 1,
		},
		{
			name: "error - context canceled",
			ctx:  canceled,

			expectedError:        context.Canceled,
			expectedPublishCalls: 0,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			natsMock := &mocks.NatsConnectionMock{
				PublishFunc: func(_ string, _ []byte) error {
					return tc.publishErr
				},
			}

			sut := natscore.New(natsMock)

			// when
			err := sut.Publish(tc.ctx, lifecycle.StatusTopic, []byte("event"))

			// then
			require.Len(t, natsMock.PublishCalls(), tc.expectedPublishCalls)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestSubscribe(t *testing.T) {
	tt := []struct {
		name         string
		subscribeErr error
		msgFuncErr   error
		runFunc      bool

		expectedError    error
		expectedMessages int
	}{
		{
			name: "success",
		},
		{
			name:         "error - subscribe",
			subscribeErr: errors.New("not connected"),

			expectedError: natscore.ErrFailedToSubscribe,
		},
		{
			name:       "message function runs",
			msgFuncErr: errors.New("function failed"),
			runFunc:    true,

			expectedMessages: 1,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var msgHandler nats.MsgHandler

			natsMock := &mocks.NatsConnectionMock{
				QueueSubscribeFunc: func(subj string, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
					require.Equal(t, lifecycle.StatusTopic, subj)
					require.Equal(t, lifecycle.StatusTopic+"-group", queue)
					msgHandler = cb
					return nil, tc.subscribeErr
				},
			}

			received := 0
			sut := natscore.New(natsMock)

			// when
			err := sut.Subscribe(lifecycle.StatusTopic, func(_ []byte) error {
				received++
				return tc.msgFuncErr
			})

			// then
			require.Len(t, natsMock.QueueSubscribeCalls(), 1)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			if tc.runFunc {
				msgHandler(&nats.Msg{Data: []byte("event")})
			}
			require.Equal(t, tc.expectedMessages, received)
		})
	}
}

func TestShutdown(t *testing.T) {
	// given
	natsMock := &mocks.NatsConnectionMock{
		DrainFunc: func() error {
			return errors.New("already closed")
		},
	}
	sut := natscore.New(natsMock)

	// when
	sut.Shutdown()

	// then
	require.Len(t, natsMock.DrainCalls(), 1)
}

func TestWatch(t *testing.T) {
	// given
	var msgHandler nats.MsgHandler
	natsMock := &mocks.NatsConnectionMock{
		SubscribeFunc: func(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
			require.Equal(t, lifecycle.StatusTopic, subj)
			msgHandler = cb
			return nil, nil
		},
	}
	sut := natscore.New(natsMock)

	var received []lifecycle.StatusEvent
	msgFunc := natscore.DecodeJSON(func(event lifecycle.StatusEvent) error {
		received = append(received, event)
		return nil
	})

	// when
	err := sut.Watch(lifecycle.StatusTopic, msgFunc)
	require.NoError(t, err)
	msgHandler(&nats.Msg{Data: []byte(`{"txid":"aa","status":"unmined","attempts":1}`)})
	msgHandler(&nats.Msg{Data: []byte(`not json`)})

	// then
	require.Len(t, natsMock.SubscribeCalls(), 1)
	require.Empty(t, natsMock.QueueSubscribeCalls())
	require.Len(t, received, 1)
	require.Equal(t, "aa", received[0].TxID)
	require.Equal(t, txreq.StatusUnmined, received[0].Status)
}

func TestDecodeJSON(t *testing.T) {
	// given
	sut := natscore.DecodeJSON(func(_ lifecycle.StatusEvent) error { return nil })

	// when
	err := sut([]byte("{"))

	// then
	require.ErrorIs(t, err, natscore.ErrFailedToUnmarshal)
}
