package config

import (
	"time"
)

func getDefaultConfig() *Config {
	return &Config{
		LogLevel:     "INFO",
		LogFormat:    "text",
		Prometheus:   getDefaultPrometheusConfig(),
		Tracing:      getDefaultTracingConfig(),
		Db:           getDefaultDbConfig(),
		Cache:        getDefaultCacheConfig(),
		Lifecycle:    getDefaultLifecycleConfig(),
		Relays:       getDefaultRelays(),
		ChainTracker: getDefaultChainTrackerConfig(),
		MessageQueue: getDefaultMessageQueueConfig(),
	}
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Endpoint: "/metrics",
		Addr:     "", // disabled
	}
}

func getDefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		Enabled:  false,
		DialAddr: "http://localhost:4317",
		Sample:   100,
	}
}

func getDefaultDbConfig() *DbConfig {
	return &DbConfig{
		Mode: DbModePostgres,
		Postgres: &PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Name:         "txlifecycle",
			User:         "txlifecycle",
			Password:     "txlifecycle",
			MaxIdleConns: 10,
			MaxOpenConns: 80,
			SslMode:      "disable",
		},
	}
}

func getDefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Engine: InMemory,
		Redis: &RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		RootValidityExpiry: 24 * time.Hour,
	}
}

func getDefaultLifecycleConfig() *LifecycleConfig {
	return &LifecycleConfig{
		MaxAttempts:        10,
		MaxOutputScript:    500,
		CommissionSatoshis: 0,
		SweepInterval:      30 * time.Second,
		SweepBatchSize:     100,
		StatsInterval:      60 * time.Second,
		LockedBy:           "", // generated per instance if empty
	}
}

func getDefaultRelays() []*RelayConfig {
	return []*RelayConfig{
		{
			Name:    "taal",
			URL:     "https://arc.taal.com",
			Timeout: 10 * time.Second,
		},
	}
}

func getDefaultChainTrackerConfig() *ChainTrackerConfig {
	return &ChainTrackerConfig{
		Network: "mainnet",
	}
}

func getDefaultMessageQueueConfig() *MessageQueueConfig {
	return &MessageQueueConfig{
		URL:         "", // publishing disabled
		StatusTopic: "request-status",
	}
}
