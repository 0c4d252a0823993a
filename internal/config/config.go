package config

import "time"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	MaxMessageBytes      int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MessageRatePerMinute int      `mapstructure:"message_rate_per_minute" yaml:"message_rate_per_minute"`
	HistoryLimit         int      `mapstructure:"history_limit" yaml:"history_limit"`
	SanitizeHTML         bool     `mapstructure:"sanitize_html" yaml:"sanitize_html"`
	AllowedOrigins       []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// StoreConfig selects and configures the durable store.
type StoreConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Store: StoreConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "wirechat.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "wirechat",
		},
		JWTSecret:            "secret_demo_key",
		JWTIssuer:            "wirechat-relay",
		TokenTTL:             24 * time.Hour,
		MaxMessageBytes:      1 << 20,
		MessageRatePerMinute: 120,
		HistoryLimit:         500,
		SanitizeHTML:         true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Store.MongoURI != "" {
		c.Store.MongoURI = other.Store.MongoURI
	}
	if other.Store.MongoDatabase != "" {
		c.Store.MongoDatabase = other.Store.MongoDatabase
	}
}
