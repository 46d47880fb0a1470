package app

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/migrate"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/send"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/status"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/sweep"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/watch"
)

var RootCmd = &cobra.Command{
	Use:          "txlifecycle",
	Short:        "Commit, share and track wallet transactions",
	SilenceUsage: true,
}

func init() {
	var err error

	RootCmd.PersistentFlags().String("config", "", "directory to look for config.yaml")
	err = viper.BindPFlag("configDir", RootCmd.PersistentFlags().Lookup("config"))
	if err != nil {
		log.Fatal(err)
	}

	RootCmd.AddCommand(sweep.Cmd)
	RootCmd.AddCommand(status.Cmd)
	RootCmd.AddCommand(send.Cmd)
	RootCmd.AddCommand(migrate.Cmd)
	RootCmd.AddCommand(watch.Cmd)
}

func Execute() error {
	return RootCmd.Execute()
}
