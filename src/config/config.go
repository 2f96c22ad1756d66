package config

import (
	"fmt"
	"os"
	"strings"

	"binance-observer/src/helpers"
	"binance-observer/src/models"
	"binance-observer/src/utils"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides validation and persistence.
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = 5
	}
	if c.Retention.DataRetentionDays == 0 {
		c.Retention.DataRetentionDays = 7
	}
	if c.Retention.CleanupIntervalMinutes == 0 {
		c.Retention.CleanupIntervalMinutes = 60
	}
	if c.Retention.MaxTradesPerSymbol == 0 {
		c.Retention.MaxTradesPerSymbol = 10000
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Exchange configuration
	if c.Exchange.WsURL == "" {
		return fmt.Errorf("exchange websocket URL cannot be empty")
	}
	if !strings.HasPrefix(c.Exchange.WsURL, "ws://") && !strings.HasPrefix(c.Exchange.WsURL, "wss://") {
		return fmt.Errorf("exchange websocket URL must use ws:// or wss:// scheme")
	}
	if len(c.Exchange.Streams) == 0 {
		return fmt.Errorf("at least one stream must be configured")
	}
	for i, stream := range c.Exchange.Streams {
		if stream == "" {
			return fmt.Errorf("stream %d cannot be empty", i)
		}
	}

	// Validate Retention configuration
	if c.Retention.DataRetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}
	if c.Retention.MaxTradesPerSymbol <= 0 {
		return fmt.Errorf("max trades per symbol must be greater than 0")
	}

	// Validate aggregation windows. Window names also become storage table
	// suffixes, so anything outside the duration grammar is rejected here.
	for i, window := range c.WindowsAgg {
		if window == "" {
			return fmt.Errorf("window aggregation %d cannot be empty", i)
		}
		if utils.WindowDurationMs(window) == 0 {
			return fmt.Errorf("invalid aggregation window %q (expected forms like 1m, 5m, 1h, 1d)", window)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
