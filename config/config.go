package config

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const (
	InMemory = "in-memory"
	Redis    = "redis"

	DbModePostgres = "postgres"
	DbModeMemory   = "memory"
)

type Config struct {
	LogLevel     string              `json:"logLevel" mapstructure:"logLevel"`
	LogFormat    string              `json:"logFormat" mapstructure:"logFormat"`
	Prometheus   *PrometheusConfig   `json:"prometheus" mapstructure:"prometheus"`
	Tracing      *TracingConfig      `json:"tracing" mapstructure:"tracing"`
	Db           *DbConfig           `json:"db" mapstructure:"db"`
	Cache        *CacheConfig        `json:"cache" mapstructure:"cache"`
	Lifecycle    *LifecycleConfig    `json:"lifecycle" mapstructure:"lifecycle"`
	Relays       []*RelayConfig      `json:"relays" mapstructure:"relays"`
	ChainTracker *ChainTrackerConfig `json:"chainTracker" mapstructure:"chainTracker"`
	MessageQueue *MessageQueueConfig `json:"messageQueue" mapstructure:"messageQueue"`
}

type PrometheusConfig struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Addr     string `json:"addr" mapstructure:"addr"`
}

func (p *PrometheusConfig) IsEnabled() bool {
	return p != nil && p.Endpoint != "" && p.Addr != ""
}

type TracingConfig struct {
	Enabled            bool                 `json:"enabled" mapstructure:"enabled"`
	DialAddr           string               `json:"dialAddr" mapstructure:"dialAddr"`
	Sample             int                  `json:"sample" mapstructure:"sample"`
	Attributes         map[string]string    `json:"attributes" mapstructure:"attributes"`
	KeyValueAttributes []attribute.KeyValue `json:"-" mapstructure:"-" yaml:"-"`
}

func (t *TracingConfig) IsEnabled() bool {
	return t != nil && t.Enabled && t.DialAddr != ""
}

type DbConfig struct {
	Mode     string          `json:"mode" mapstructure:"mode"`
	Postgres *PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	Name         string `json:"name" mapstructure:"name"`
	User         string `json:"user" mapstructure:"user"`
	Password     string `json:"password" mapstructure:"password"`
	MaxIdleConns int    `json:"maxIdleConns" mapstructure:"maxIdleConns"`
	MaxOpenConns int    `json:"maxOpenConns" mapstructure:"maxOpenConns"`
	SslMode      string `json:"sslMode" mapstructure:"sslMode"`
}

type CacheConfig struct {
	Engine             string        `json:"engine" mapstructure:"engine"`
	Redis              *RedisConfig  `json:"redis" mapstructure:"redis"`
	RootValidityExpiry time.Duration `json:"rootValidityExpiry" mapstructure:"rootValidityExpiry"`
}

type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

type LifecycleConfig struct {
	MaxAttempts        int           `json:"maxAttempts" mapstructure:"maxAttempts"`
	MaxOutputScript    uint64        `json:"maxOutputScript" mapstructure:"maxOutputScript"`
	CommissionSatoshis uint64        `json:"commissionSatoshis" mapstructure:"commissionSatoshis"`
	SweepInterval      time.Duration `json:"sweepInterval" mapstructure:"sweepInterval"`
	SweepBatchSize     int64         `json:"sweepBatchSize" mapstructure:"sweepBatchSize"`
	StatsInterval      time.Duration `json:"statsInterval" mapstructure:"statsInterval"`
	LockedBy           string        `json:"lockedBy" mapstructure:"lockedBy"`
}

type RelayConfig struct {
	Name         string        `json:"name" mapstructure:"name"`
	URL          string        `json:"url" mapstructure:"url"`
	Token        string        `json:"token" mapstructure:"token"`
	DeploymentID string        `json:"deploymentId" mapstructure:"deploymentId"`
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
}

type ChainTrackerConfig struct {
	Network string `json:"network" mapstructure:"network"`
	APIKey  string `json:"apiKey" mapstructure:"apiKey"`
}

func (c *ChainTrackerConfig) IsMainnet() bool {
	return c.Network == "mainnet"
}

type MessageQueueConfig struct {
	URL         string `json:"url" mapstructure:"url"`
	StatusTopic string `json:"statusTopic" mapstructure:"statusTopic"`
}
