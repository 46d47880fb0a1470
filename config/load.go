package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bitcoin-sv/txlifecycle/internal/tracing"
)

var (
	ErrConfigFailedToSetDefaults = errors.New("error occurred while setting defaults")
	ErrConfigPath                = errors.New("config path error")
	ErrConfigDump                = errors.New("failed to dump config")
	ErrConfigInvalid             = errors.New("invalid config")
)

func Load(configFileDirs ...string) (*Config, error) {
	cfg := getDefaultConfig()

	err := setDefaults(cfg)
	if err != nil {
		return nil, err
	}

	err = overrideWithFiles(configFileDirs...)
	if err != nil {
		return nil, err
	}

	viper.SetEnvPrefix("TXLIFECYCLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Tracing != nil && len(cfg.Tracing.Attributes) > 0 {
		cfg.Tracing.KeyValueAttributes = tracing.KeyValues(cfg.Tracing.Attributes)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings which cannot be defaulted sensibly.
func (c *Config) Validate() error {
	if c.Db == nil {
		return errors.Join(ErrConfigInvalid, errors.New("db section is missing"))
	}

	switch c.Db.Mode {
	case DbModeMemory:
	case DbModePostgres:
		if c.Db.Postgres == nil {
			return errors.Join(ErrConfigInvalid, errors.New("db.postgres section is missing"))
		}
	default:
		return errors.Join(ErrConfigInvalid, fmt.Errorf("db mode: %s", c.Db.Mode))
	}

	if c.Cache != nil && c.Cache.Engine != InMemory && c.Cache.Engine != Redis {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("cache engine: %s", c.Cache.Engine))
	}

	if len(c.Relays) == 0 {
		return errors.Join(ErrConfigInvalid, errors.New("at least one relay is required"))
	}

	for i, r := range c.Relays {
		if r == nil || r.URL == "" {
			return errors.Join(ErrConfigInvalid, fmt.Errorf("relay %d has no url", i))
		}
	}

	return nil
}

// DumpConfig writes the effective configuration to a yaml file.
func DumpConfig(cfg *Config, configFile string) error {
	// keys keep their camelCase names by going through the json tags
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return errors.Join(ErrConfigDump, err)
	}

	settings := make(map[string]any)
	err = json.Unmarshal(jsonBytes, &settings)
	if err != nil {
		return errors.Join(ErrConfigDump, err)
	}

	yamlBytes, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Join(ErrConfigDump, err)
	}

	err = os.WriteFile(configFile, yamlBytes, 0o600)
	if err != nil {
		return errors.Join(ErrConfigDump, err)
	}

	return nil
}

func setDefaults(defaultConfig *Config) error {
	defaultsMap := make(map[string]interface{})

	if err := mapstructure.Decode(defaultConfig, &defaultsMap); err != nil {
		err = errors.Join(ErrConfigFailedToSetDefaults, err)
		return err
	}

	for key, value := range defaultsMap {
		viper.SetDefault(key, value)
	}

	return nil
}

func overrideWithFiles(configFileDirs ...string) error {
	if len(configFileDirs) == 0 || configFileDirs[0] == "" {
		return nil
	}

	for _, path := range configFileDirs {
		stat, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.Join(ErrConfigPath, fmt.Errorf("path: %s does not exist", path))
			}
			return err
		}
		if !stat.IsDir() {
			return errors.Join(ErrConfigPath, fmt.Errorf("path: %s should be a directory", path))
		}

		viper.AddConfigPath(path)
	}

	err := viper.ReadInConfig()
	if err != nil {
		return err
	}

	return nil
}
