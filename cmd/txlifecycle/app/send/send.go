package send

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/helper"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/services"
)

var Cmd = &cobra.Command{
	Use:   "send <txid>...",
	Short: "Share committed requests with the network",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		isDelayed, err := cmd.Flags().GetBool("delayed")
		if err != nil {
			return err
		}

		cfg, err := helper.LoadConfig()
		if err != nil {
			return err
		}

		logger, err := helper.NewLogger(cfg, "send")
		if err != nil {
			return err
		}

		s, err := services.NewStore(logger, cfg.Db, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()

		processor, err := services.NewProcessor(ctx, logger, cfg, s)
		if err != nil {
			return err
		}
		defer processor.Shutdown()

		result, shareErr := processor.ShareRequests(ctx, args, isDelayed)
		if result == nil {
			return shareErr
		}

		for _, detail := range result.Details {
			logger.Info("Request",
				slog.String("hash", detail.TxID),
				slog.String("detail", string(detail.Status)),
				slog.String("err", detail.Err),
			)
		}

		for _, swr := range result.SendWithResults {
			logger.Info("Result", slog.String("hash", swr.TxID), slog.String("status", string(swr.Status)))
		}

		if result.Batch != "" {
			logger.Info("Shared as batch", slog.String("batch", result.Batch))
		}

		if shareErr != nil {
			return errors.Join(errors.New("sharing failed"), shareErr)
		}

		return nil
	},
}

func init() {
	Cmd.Flags().Bool("delayed", false, "Queue the requests for the retry sweep instead of posting them now")
}
