package watch

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/helper"
	"github.com/bitcoin-sv/txlifecycle/internal/lifecycle"
	natscore "github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/client/nats_core"
	"github.com/bitcoin-sv/txlifecycle/internal/message_queue/nats/nats_connection"
)

var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Log request status events published by sweepers",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := helper.LoadConfig()
		if err != nil {
			return err
		}

		logger, err := helper.NewLogger(cfg, "watch")
		if err != nil {
			return err
		}

		if cfg.MessageQueue.URL == "" {
			return errors.New("messageQueue.url is not configured")
		}

		conn, err := nats_connection.New(cfg.MessageQueue.URL, logger)
		if err != nil {
			return err
		}

		mqClient := natscore.New(conn, natscore.WithLogger(logger))
		defer mqClient.Shutdown()

		err = mqClient.Watch(cfg.MessageQueue.StatusTopic, natscore.DecodeJSON(func(event lifecycle.StatusEvent) error {
			logger.Info("Status event",
				slog.String("hash", event.TxID),
				slog.String("status", string(event.Status)),
				slog.String("batch", event.Batch),
				slog.Int("attempts", event.Attempts),
				slog.Time("timestamp", event.Timestamp),
			)

			return nil
		}))
		if err != nil {
			return err
		}

		helper.WaitForSignal(logger)

		return nil
	},
}
