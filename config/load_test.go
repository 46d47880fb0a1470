package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func Test_Load(t *testing.T) {
	t.Run("default load", func(t *testing.T) {
		// given
		expectedConfig := getDefaultConfig()

		// when
		actualConfig, err := Load()
		require.NoError(t, err, "error loading config")

		// then
		assert.Equal(t, expectedConfig, actualConfig)
	})

	t.Run("partial file override", func(t *testing.T) {
		// given
		expectedConfig := getDefaultConfig()

		// when
		actualConfig, err := Load("./test_files/")
		require.NoError(t, err, "error loading config")

		// then
		// verify not overridden default values
		assert.Equal(t, expectedConfig.Lifecycle.SweepBatchSize, actualConfig.Lifecycle.SweepBatchSize)
		assert.Equal(t, expectedConfig.Cache.RootValidityExpiry, actualConfig.Cache.RootValidityExpiry)
		assert.Equal(t, expectedConfig.MessageQueue.StatusTopic, actualConfig.MessageQueue.StatusTopic)

		// verify correct override
		assert.Equal(t, "DEBUG", actualConfig.LogLevel)
		assert.Equal(t, "json", actualConfig.LogFormat)
		assert.Equal(t, DbModeMemory, actualConfig.Db.Mode)
		assert.Equal(t, Redis, actualConfig.Cache.Engine)
		assert.Equal(t, "redis:6379", actualConfig.Cache.Redis.Addr)
		assert.Equal(t, 5, actualConfig.Lifecycle.MaxAttempts)
		assert.Equal(t, 15*time.Second, actualConfig.Lifecycle.SweepInterval)

		require.Len(t, actualConfig.Relays, 2)
		assert.Equal(t, "arc-main", actualConfig.Relays[0].Name)
		assert.Equal(t, "secret", actualConfig.Relays[0].Token)
		assert.Equal(t, 5*time.Second, actualConfig.Relays[0].Timeout)
		assert.Equal(t, "https://arc-backup.example.com", actualConfig.Relays[1].URL)

		require.True(t, actualConfig.Tracing.IsEnabled())
		assert.Equal(t, []attribute.KeyValue{attribute.String("deployment", "sweeper-eu")}, actualConfig.Tracing.KeyValueAttributes)
	})

	t.Run("path does not exist", func(t *testing.T) {
		// when
		_, err := Load("./not_existing/")

		// then
		require.ErrorIs(t, err, ErrConfigPath)
	})
}

func TestConfig_Validate(t *testing.T) {
	tt := []struct {
		name   string
		modify func(c *Config)

		expectedError error
	}{
		{
			name:   "defaults",
			modify: func(_ *Config) {},
		},
		{
			name: "memory db without postgres section",
			modify: func(c *Config) {
				c.Db.Mode = DbModeMemory
				c.Db.Postgres = nil
			},
		},
		{
			name: "unknown db mode",
			modify: func(c *Config) {
				c.Db.Mode = "sqlite"
			},

			expectedError: ErrConfigInvalid,
		},
		{
			name: "postgres without section",
			modify: func(c *Config) {
				c.Db.Postgres = nil
			},

			expectedError: ErrConfigInvalid,
		},
		{
			name: "unknown cache engine",
			modify: func(c *Config) {
				c.Cache.Engine = "memcached"
			},

			expectedError: ErrConfigInvalid,
		},
		{
			name: "no relays",
			modify: func(c *Config) {
				c.Relays = nil
			},

			expectedError: ErrConfigInvalid,
		},
		{
			name: "relay without url",
			modify: func(c *Config) {
				c.Relays = append(c.Relays, &RelayConfig{Name: "empty"})
			},

			expectedError: ErrConfigInvalid,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// given
			sut := getDefaultConfig()
			tc.modify(sut)

			// when
			err := sut.Validate()

			// then
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestDumpConfig(t *testing.T) {
	// given
	cfg := getDefaultConfig()
	cfg.Lifecycle.LockedBy = "sweeper-1"
	file := filepath.Join(t.TempDir(), "config.yaml")

	// when
	err := DumpConfig(cfg, file)

	// then
	require.NoError(t, err)

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "lockedBy: sweeper-1")
	assert.Contains(t, string(content), "statusTopic: request-status")
	assert.NotContains(t, string(content), "KeyValueAttributes")
}
