package sweep

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/app/helper"
	"github.com/bitcoin-sv/txlifecycle/cmd/txlifecycle/services"
	"github.com/bitcoin-sv/txlifecycle/config"
)

const readHeaderTimeout = 5 * time.Second

var Cmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the retry sweep which re-shares unsent and sending requests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := helper.LoadConfig()
		if err != nil {
			return err
		}

		dumpConfigFile, err := cmd.Flags().GetString("dump-config")
		if err != nil {
			return err
		}

		if dumpConfigFile != "" {
			return config.DumpConfig(cfg, dumpConfigFile)
		}

		logger, err := helper.NewLogger(cfg, "sweeper")
		if err != nil {
			return err
		}

		var server *http.Server
		if cfg.Prometheus.IsEnabled() {
			logger.Info("Starting prometheus", slog.String("endpoint", cfg.Prometheus.Endpoint))

			mux := http.NewServeMux()
			mux.Handle(cfg.Prometheus.Endpoint, promhttp.Handler())
			server = &http.Server{Addr: cfg.Prometheus.Addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

			go func() {
				err := server.ListenAndServe()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to start prometheus server", slog.String("err", err.Error()))
				}
			}()
		}

		shutdown, err := services.StartSweeper(logger, cfg)
		if err != nil {
			return err
		}

		helper.WaitForSignal(logger)

		shutdown()
		if server != nil {
			_ = server.Close()
		}

		return nil
	},
}

func init() {
	Cmd.Flags().String("dump-config", "", "dump config to specified file and exit")
}
