package services

import (
	"fmt"
	"log/slog"

	"github.com/bitcoin-sv/txlifecycle/config"
	"github.com/bitcoin-sv/txlifecycle/internal/store"
	"github.com/bitcoin-sv/txlifecycle/internal/store/memorystore"
	"github.com/bitcoin-sv/txlifecycle/internal/store/postgresql"
)

// NewStore opens the storage provider selected by the db mode.
func NewStore(logger *slog.Logger, dbConfig *config.DbConfig, tracingConfig *config.TracingConfig) (store.Store, error) {
	switch dbConfig.Mode {
	case config.DbModePostgres:
		return NewPostgresStore(logger, dbConfig.Postgres, tracingConfig)
	case config.DbModeMemory:
		logger.Warn("Using in-memory store, requests are lost on shutdown")
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("db mode %s is invalid", dbConfig.Mode)
	}
}

func NewPostgresStore(logger *slog.Logger, postgres *config.PostgresConfig, tracingConfig *config.TracingConfig) (*postgresql.PostgreSQL, error) {
	if postgres == nil {
		return nil, fmt.Errorf("postgres config is missing")
	}

	logger.Info(fmt.Sprintf(
		"db connection: user=%s dbname=%s host=%s port=%d sslmode=%s",
		postgres.User, postgres.Name, postgres.Host, postgres.Port, postgres.SslMode,
	))

	dbInfo := fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		postgres.User, postgres.Password, postgres.Name, postgres.Host, postgres.Port, postgres.SslMode,
	)

	postgresOpts := []func(handler *postgresql.PostgreSQL){postgresql.WithLogger(logger)}
	if tracingConfig.IsEnabled() {
		postgresOpts = append(postgresOpts, postgresql.WithTracer(tracingConfig.KeyValueAttributes...))
	}

	s, err := postgresql.New(dbInfo, postgres.MaxIdleConns, postgres.MaxOpenConns, postgresOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres DB: %v", err)
	}

	return s, nil
}
