package helper

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/bitcoin-sv/txlifecycle/config"
	"github.com/bitcoin-sv/txlifecycle/internal/logger"
)

// LoadConfig loads the configuration from the directory given with --config.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("configDir"))
	if err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	return cfg, nil
}

func NewLogger(cfg *config.Config, service string) (*slog.Logger, error) {
	l, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, logger.WithService(service))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get host name: %v", err)
	}

	return l.With(slog.String("host", hostname)), nil
}

// WaitForSignal blocks until SIGTERM or SIGINT is received.
func WaitForSignal(logger *slog.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-signalChan
	logger.Info("Received shutdown signal", slog.String("reason", sig.String()))
}
