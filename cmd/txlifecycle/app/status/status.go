package status

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/helper"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/services"
	"github.com/bitcoin-sv/txlifecycle/internal/txreq"
)

var Cmd = &cobra.Command{
	Use:   "status",
	Short: "Show requests and their status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		statusFlags, err := cmd.Flags().GetStringSlice("status")
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt64("limit")
		if err != nil {
			return err
		}

		txID, err := cmd.Flags().GetString("txid")
		if err != nil {
			return err
		}

		statuses, err := parseStatuses(statusFlags)
		if err != nil {
			return err
		}

		cfg, err := helper.LoadConfig()
		if err != nil {
			return err
		}

		logger, err := helper.NewLogger(cfg, "status")
		if err != nil {
			return err
		}

		s, err := services.NewStore(logger, cfg.Db, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()

		if txID != "" {
			req, err := s.GetRequest(ctx, txID)
			if err != nil {
				return fmt.Errorf("failed to get request %s: %w", txID, err)
			}

			printTable(requestsTable(table.NewWriter(), []*txreq.Request{req}))

			return req.History.PrettyPrint(os.Stdout)
		}

		reqs, err := s.ListRequests(ctx, statuses, limit)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}

		printTable(requestsTable(table.NewWriter(), reqs))

		return nil
	},
}

func init() {
	Cmd.Flags().StringSlice("status", []string{}, "Only show requests in these statuses")
	Cmd.Flags().Int64("limit", 50, "Maximum number of requests to show")
	Cmd.Flags().String("txid", "", "Show a single request together with its history")
}

func parseStatuses(values []string) ([]txreq.Status, error) {
	if len(values) == 0 {
		return txreq.AllStatuses, nil
	}

	statuses := make([]txreq.Status, 0, len(values))
	for _, v := range values {
		s, err := txreq.ParseStatus(v)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}

	return statuses, nil
}

func printTable(t table.Writer) {
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Render()
}
