package nats_connection_test

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	natscore "github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/client/nats_core"
	"github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/nats_connection"
	testutils "github.com/bitcoin-sv/txlifecycle/internal/test_utils"
)

var natsURL string

func TestMain(m *testing.M) {
	os.Exit(testmain(m))
}

func testmain(m *testing.M) int {
	flag.Parse()
	if testing.Short() {
		return 0
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("failed to create pool: %v", err)
		return 1
	}

	resource, url, err := testutils.RunNats(pool, "4334", "")
	if err != nil {
		log.Print(err)
		return 1
	}
	defer func() {
		err = pool.Purge(resource)
		if err != nil {
			log.Fatalf("failed to purge pool: %v", err)
		}
	}()

	natsURL = url
	return m.Run()
}

func TestNew(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)

	tt := []struct {
		name string
		url  string
		opts []nats_connection.Option

		expectedName     string
		expectedErrorStr string
	}{
		{
			name: "named connection",
			url:  natsURL,
			opts: []nats_connection.Option{nats_connection.WithName("sweeper-1")},

			expectedName: "sweeper-1",
		},
		{
			name: "host name by default",
			url:  natsURL,

			expectedName: hostname,
		},
		{
			name: "malformed url",
			url:  "wrong url",

			expectedErrorStr: "failed to connect to NATS server",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
			opts := append(tc.opts, nats_connection.WithReconnect(1, 10*time.Millisecond))

			// when
			nc, err := nats_connection.New(tc.url, logger, opts...)

			// then
			if tc.expectedErrorStr != "" {
				require.ErrorContains(t, err, tc.expectedErrorStr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedName, nc.Opts.Name)
			nc.Close()
		})
	}
}

func TestPublishSubscribe(t *testing.T) {
	// given
	logger := slog.Default()
	nc, err := nats_connection.New(natsURL, logger, nats_connection.WithName("status-events"))
	require.NoError(t, err)

	client := natscore.New(nc, natscore.WithLogger(logger))
	defer client.Shutdown()

	received := make(chan []byte, 1)
	err = client.Subscribe("status-test", func(data []byte) error {
		received <- data
		return nil
	})
	require.NoError(t, err)

	// when
	err = client.Publish(context.Background(), "status-test", []byte(`{"txid":"aa"}`))
	require.NoError(t, err)

	// then
	select {
	case data := <-received:
		require.JSONEq(t, `{"txid":"aa"}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("status event not received")
	}
}
