package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle/mocks"
	"github.com/bitcoin-sv/txlifecycle/internal/relay"
	"github.com/bitcoin-sv/txlifecycle/internal/store/memorystore"
	"github.com/bitcoin-sv/txlifecycle/internal/testdata"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

func TestProcessor_PublishStatus(t *testing.T) {
	tt := []struct {
		name       string
		topic      string
		publishErr error

		expectedTopic string
	}{
		{
			name: "default topic",

			expectedTopic: lifecycle.StatusTopic,
		},
		{
			name:  "custom topic",
			topic: "wallet-status",

			expectedTopic: "wallet-status",
		},
		{
			name:       "publish fails",
			publishErr: errors.New("nats unavailable"),

			expectedTopic: lifecycle.StatusTopic,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := memorystore.New()
			txID := seedRequest(s, signedTx(testdata.ChildRaw, 26000), 1, txreq.StatusUnsent, 0)

			mq := &mocks.MessageQueueMock{
				PublishFunc: func(_ context.Context, _ string, _ []byte) error {
					return tc.publishErr
				},
			}
			arc := newRelay("arc", map[string]relay.Outcome{txID: relay.OutcomeSuccess}, nil)
			sut := newProcessor(t, s, newTracker(true), []relay.Relay{arc}, lifecycle.WithMessageQueueClient(mq, tc.topic))

			// when
			_, err := sut.ShareRequests(context.Background(), []string{txID}, false)

			// then
			require.NoError(t, err)
			require.Len(t, mq.PublishCalls(), 1)
			require.Equal(t, tc.expectedTopic, mq.PublishCalls()[0].Topic)

			var event lifecycle.StatusEvent
			require.NoError(t, json.Unmarshal(mq.PublishCalls()[0].Data, &event))
			require.Equal(t, txID, event.TxID)
			require.Equal(t, txreq.StatusUnmined, event.Status)
			require.Equal(t, 1, event.Attempts)
			require.True(t, testdata.Time.Equal(event.Timestamp))
		})
	}
}
