// Package config defines the top-level configuration for arbwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBWATCH_* environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Detector  DetectorConfig  `toml:"detector"`
	Simulator SimulatorConfig `toml:"simulator"`
	Stats     StatsConfig     `toml:"stats"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Venues    []VenueConfig   `toml:"venues"`
	Pairs     []PairConfig    `toml:"pairs"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. When DSN and Host
// are both empty the application falls back to in-memory stores.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the quote cache
// and the signal bus; when Addr is empty both fall back to in-process
// implementations.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the
// transaction archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// DetectorConfig holds detection cycle parameters.
type DetectorConfig struct {
	// Interval between detection cycles. Cycles never overlap.
	Interval duration `toml:"interval"`
	// MinMarginPercent is the strict detection filter; candidates at or
	// below it are discarded. Independent of the executability threshold.
	MinMarginPercent float64 `toml:"min_margin_percent"`
	// Source selects the quote source: "synthetic", "rest", or "cache".
	Source string `toml:"source"`
	// MaxQuoteAge discards cached ticks older than this when Source is
	// "cache".
	MaxQuoteAge duration `toml:"max_quote_age"`
	// RetentionWindow is the maximum opportunity age before expiry.
	RetentionWindow duration `toml:"retention_window"`
	// ListLimit caps live listing; ExportLimit caps export/stat reads.
	ListLimit   int `toml:"list_limit"`
	ExportLimit int `toml:"export_limit"`
}

// SimulatorConfig holds paper execution parameters.
type SimulatorConfig struct {
	// SuccessProbability in [0,1] for the random outcome policy.
	SuccessProbability float64 `toml:"success_probability"`
	// Realized profit is drawn uniformly from
	// [estimate*ProfitJitterLow, estimate*ProfitJitterHigh].
	ProfitJitterLow  float64 `toml:"profit_jitter_low"`
	ProfitJitterHigh float64 `toml:"profit_jitter_high"`
	// GasUnits feeds the gas cost model together with settings.MaxGasPrice.
	GasUnits int64 `toml:"gas_units"`
	// NativePrice converts gas to quote-currency cost in the gas model.
	NativePrice float64 `toml:"native_price"`
}

// StatsConfig holds rolling statistics parameters.
type StatsConfig struct {
	Window duration `toml:"window"`
}

// ArchiveConfig holds transaction archive parameters.
type ArchiveConfig struct {
	Enabled   bool     `toml:"enabled"`
	AfterDays int      `toml:"after_days"`
	Interval  duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey gates the API when set. Empty disables authentication.
	APIKey string `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// VenueConfig declares a tracked venue and its quote endpoints.
type VenueConfig struct {
	ID        string `toml:"id"`
	Name      string `toml:"name"`
	TickerURL string `toml:"ticker_url"` // REST ticker endpoint, %s = symbol
	WSURL     string `toml:"ws_url"`     // streaming ticker endpoint
	Active    bool   `toml:"active"`
}

// PairConfig declares a tracked trading pair.
type PairConfig struct {
	ID      string `toml:"id"`
	Base    string `toml:"base"`
	Quote   string `toml:"quote"`
	Display string `toml:"display"`
	Active  bool   `toml:"active"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "1h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s" or "1h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the documented default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "",
			Port:          5432,
			Database:      "arbwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "arbwatch-archive",
			UseSSL:         true,
			ForcePathStyle: false,
		},
		Detector: DetectorConfig{
			Interval:         duration{30 * time.Second},
			MinMarginPercent: 0.5,
			Source:           "synthetic",
			MaxQuoteAge:      duration{2 * time.Minute},
			RetentionWindow:  duration{time.Hour},
			ListLimit:        50,
			ExportLimit:      1000,
		},
		Simulator: SimulatorConfig{
			SuccessProbability: 0.9,
			ProfitJitterLow:    0.6,
			ProfitJitterHigh:   1.1,
			GasUnits:           300_000,
			NativePrice:        2500,
		},
		Stats: StatsConfig{
			Window: duration{24 * time.Hour},
		},
		Archive: ArchiveConfig{
			Enabled:   false,
			AfterDays: 30,
			Interval:  duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_detected", "execution_failed"},
		},
		Venues: []VenueConfig{
			{ID: "binance", Name: "Binance", Active: true},
			{ID: "coinbase", Name: "Coinbase", Active: true},
			{ID: "kraken", Name: "Kraken", Active: true},
		},
		Pairs: []PairConfig{
			{ID: "btc-usdt", Base: "BTC", Quote: "USDT", Display: "BTC/USDT", Active: true},
			{ID: "eth-usdt", Base: "ETH", Quote: "USDT", Display: "ETH/USDT", Active: true},
			{ID: "sol-usdt", Base: "SOL", Quote: "USDT", Display: "SOL/USDT", Active: true},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSources enumerates the accepted quote source kinds.
var validSources = map[string]bool{
	"synthetic": true,
	"rest":      true,
	"cache":     true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validSources[strings.ToLower(c.Detector.Source)] {
		errs = append(errs, fmt.Sprintf("unknown detector.source %q (valid: synthetic, rest, cache)", c.Detector.Source))
	}
	if c.Detector.Interval.Duration <= 0 {
		errs = append(errs, "detector.interval must be positive")
	}
	if c.Detector.MinMarginPercent < 0 {
		errs = append(errs, "detector.min_margin_percent must not be negative")
	}
	if c.Detector.RetentionWindow.Duration <= 0 {
		errs = append(errs, "detector.retention_window must be positive")
	}
	if c.Simulator.SuccessProbability < 0 || c.Simulator.SuccessProbability > 1 {
		errs = append(errs, "simulator.success_probability must be in [0,1]")
	}
	if c.Simulator.ProfitJitterLow > c.Simulator.ProfitJitterHigh {
		errs = append(errs, "simulator.profit_jitter_low must not exceed profit_jitter_high")
	}
	if c.Stats.Window.Duration <= 0 {
		errs = append(errs, "stats.window must be positive")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Detector.Source == "rest" {
		for _, v := range c.Venues {
			if v.Active && v.TickerURL == "" {
				errs = append(errs, fmt.Sprintf("venue %q has no ticker_url but detector.source is rest", v.ID))
			}
		}
	}
	if len(c.Pairs) == 0 {
		errs = append(errs, "at least one trading pair must be configured")
	}
	if len(c.Venues) < 2 {
		errs = append(errs, "at least two venues must be configured")
	}
	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "archive.enabled requires s3.bucket")
		}
		if c.Archive.AfterDays <= 0 {
			errs = append(errs, "archive.after_days must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// UsePostgres reports whether a database connection is configured.
func (c *Config) UsePostgres() bool {
	return strings.TrimSpace(c.Postgres.DSN) != "" || strings.TrimSpace(c.Postgres.Host) != ""
}

// UseRedis reports whether Redis is configured.
func (c *Config) UseRedis() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
