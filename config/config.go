package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pricesync/internal/market"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env"` // "dev" or "prod"
	Feed     FeedConfig     `mapstructure:"feed"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// FeedConfig points at the remote price service.
type FeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 disables the client-side timeout
}

// SyncConfig drives the polling engine.
type SyncConfig struct {
	TickPeriod      time.Duration `mapstructure:"tick_period"`
	HistoryLimit    int           `mapstructure:"history_limit"`
	Symbols         []string      `mapstructure:"symbols"`
	Intervals       []string      `mapstructure:"intervals"` // "all" or "<minutes>m"
	InitialSymbol   string        `mapstructure:"initial_symbol"`
	InitialInterval string        `mapstructure:"initial_interval"`
}

// StreamConfig controls the websocket view stream.
type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("feed.base_url", "http://localhost:8088")
	v.SetDefault("feed.timeout", 0)

	v.SetDefault("sync.tick_period", 4*time.Second)
	v.SetDefault("sync.history_limit", 200)
	v.SetDefault("sync.symbols", []string{"BTC-USD", "ETH-USD", "SOL-USD"})
	v.SetDefault("sync.intervals", []string{"all", "5m", "15m", "60m"})
	v.SetDefault("sync.initial_symbol", "BTC-USD")
	v.SetDefault("sync.initial_interval", "all")

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.addr", ":8090")
	v.SetDefault("stream.path", "/ws")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.retention", 24*time.Hour)
}

// Load loads application configuration using Viper.
// It reads config.yaml from the given directories (or the default search
// path) and overrides it with environment variables. A missing file is not
// an error; defaults apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = defaultPaths()
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Support environment variables with dot notation (e.g., FEED_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultPaths() []string {
	paths := []string{"./config"}

	ex, err := os.Executable()
	if err != nil {
		return paths
	}
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return append(paths, filepath.Join(pwd, "../config"), filepath.Join(pwd, "../../config"))
	}
	return append(paths, filepath.Join(filepath.Dir(ex), "../config"))
}

// Validate checks the values the engine cannot run without.
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return errors.New("feed.base_url is required")
	}
	if c.Sync.TickPeriod <= 0 {
		return fmt.Errorf("sync.tick_period must be positive, got %s", c.Sync.TickPeriod)
	}
	if c.Sync.HistoryLimit <= 0 {
		return fmt.Errorf("sync.history_limit must be positive, got %d", c.Sync.HistoryLimit)
	}
	if len(c.Sync.Symbols) == 0 {
		return errors.New("sync.symbols must not be empty")
	}
	if c.Sync.InitialSymbol != "" && !contains(c.Sync.Symbols, c.Sync.InitialSymbol) {
		return fmt.Errorf("sync.initial_symbol %q is not in sync.symbols", c.Sync.InitialSymbol)
	}
	return c.validateIntervals()
}

// validateIntervals compares parsed values, so "ALL" and "all" match.
func (c *Config) validateIntervals() error {
	intervals, err := market.ParseIntervals(c.Sync.Intervals)
	if err != nil {
		return fmt.Errorf("sync.intervals: %w", err)
	}
	if c.Sync.InitialInterval == "" || len(intervals) == 0 {
		return nil
	}
	initial, err := market.ParseInterval(c.Sync.InitialInterval)
	if err != nil {
		return fmt.Errorf("sync.initial_interval: %w", err)
	}
	for _, iv := range intervals {
		if iv == initial {
			return nil
		}
	}
	return fmt.Errorf("sync.initial_interval %q is not in sync.intervals", c.Sync.InitialInterval)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
