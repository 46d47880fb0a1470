package migrate

import (
	"github.com/spf13/cobra"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/helper"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/services"
)

var Cmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		down, err := cmd.Flags().GetBool("down")
		if err != nil {
			return err
		}

		cfg, err := helper.LoadConfig()
		if err != nil {
			return err
		}

		logger, err := helper.NewLogger(cfg, "migrate")
		if err != nil {
			return err
		}

		s, err := services.NewPostgresStore(logger, cfg.Db.Postgres, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.Migrate(down)
		if err != nil {
			return err
		}

		logger.Info("Migrations applied")

		return nil
	},
}

func init() {
	Cmd.Flags().Bool("down", false, "Revert all migrations")
}
