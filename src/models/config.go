package models

// MConfig Structure
type MConfig struct {
	Name       string           `yaml:"name"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	LogLevel   string           `yaml:"log_level"`
	Storage    MStorageConfig   `yaml:"storage"`
	Network    MNetworkConfig   `yaml:"network"`
	Exchange   MExchangeConfig  `yaml:"exchange"`
	Retention  MRetentionConfig `yaml:"retention"`
	WindowsAgg []string         `yaml:"windows_aggregation"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MExchangeConfig struct {
	Name    string   `yaml:"name"`
	WsURL   string   `yaml:"ws_url"`   // e.g. wss://stream.binance.com:9443/ws
	RestURL string   `yaml:"rest_url"` // e.g. https://api.binance.com
	Streams []string `yaml:"streams"`  // e.g. btcusdt@trade
}

type MRetentionConfig struct {
	DataRetentionDays      int `yaml:"data_retention_days"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	MaxTradesPerSymbol     int `yaml:"max_trades_per_symbol"` // in-memory ring capacity
}
