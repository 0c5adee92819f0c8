package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/cycles/cycles"
	"github.com/rustyeddy/cycles/engine"
	"github.com/rustyeddy/cycles/indicators"
	"github.com/rustyeddy/cycles/internal/binance"
	"github.com/rustyeddy/cycles/internal/logger"
	"github.com/rustyeddy/cycles/internal/scheduler"
	"github.com/rustyeddy/cycles/market"
)

// Config represents the complete pipeline configuration
type Config struct {
	Feed     FeedConfig                `json:"feed" yaml:"feed"`
	Momentum indicators.MomentumParams `json:"momentum" yaml:"momentum"`
	Cycles   CyclesConfig              `json:"cycles" yaml:"cycles"`
	Journal  JournalConfig             `json:"journal" yaml:"journal"`
	Publish  PublishConfig             `json:"publish" yaml:"publish"`
	Metrics  MetricsConfig             `json:"metrics" yaml:"metrics"`
	Log      LogConfig                 `json:"log" yaml:"log"`
}

// FeedConfig selects the market and the data source
type FeedConfig struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	Interval      string `json:"interval" yaml:"interval"`
	SnapshotLimit int    `json:"snapshot_limit" yaml:"snapshot_limit"`
	BufferCap     int    `json:"buffer_cap" yaml:"buffer_cap"`
	RestURL       string `json:"rest_url" yaml:"rest_url"`
	StreamURL     string `json:"stream_url" yaml:"stream_url"`
	ResyncCron    string `json:"resync_cron,omitempty" yaml:"resync_cron,omitempty"` // empty disables
}

// CyclesConfig holds the detection bounds and display toggles
type CyclesConfig struct {
	MinDuration         int                    `json:"min_duration" yaml:"min_duration"`
	MaxDuration         int                    `json:"max_duration" yaml:"max_duration"`
	PriorityMinDuration bool                   `json:"priority_min_duration" yaml:"priority_min_duration"`
	UseMomentumRule     bool                   `json:"use_momentum_rule" yaml:"use_momentum_rule"`
	ShowIndexCycles     bool                   `json:"show_index_cycles" yaml:"show_index_cycles"`
	ShowInverseCycles   bool                   `json:"show_inverse_cycles" yaml:"show_inverse_cycles"`
	Manual              *cycles.ManualOverride `json:"manual,omitempty" yaml:"manual,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type    string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath  string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSVPath string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
}

type PublishConfig struct {
	Log          bool   `json:"log" yaml:"log"`
	RedisAddr    string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"` // empty disables
	RedisChannel string `json:"redis_channel,omitempty" yaml:"redis_channel,omitempty"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // empty disables
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

var intervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := engine.DefaultParams()
	return &Config{
		Feed: FeedConfig{
			Symbol:        "SUIUSDT",
			Interval:      "1m",
			SnapshotLimit: binance.MaxLimit,
			BufferCap:     market.DefaultCap,
			RestURL:       binance.DefaultBaseURL,
			StreamURL:     binance.DefaultStreamURL,
		},
		Momentum: p.Momentum,
		Cycles: CyclesConfig{
			MinDuration:         p.MinDuration,
			MaxDuration:         p.MaxDuration,
			PriorityMinDuration: p.PriorityMinDuration,
			UseMomentumRule:     p.UseMomentumRule,
			ShowIndexCycles:     p.ShowIndexCycles,
			ShowInverseCycles:   p.ShowInverseCycles,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./cycles.db",
		},
		Publish: PublishConfig{Log: true},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads an optional .env file and an optional config file on top of
// the defaults, then applies CYCLES_* environment overrides. Missing files
// are not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if len(data) > 0 {
			if err := decode(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CYCLES_SYMBOL"); v != "" {
		c.Feed.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("CYCLES_INTERVAL"); v != "" {
		c.Feed.Interval = v
	}
	if v := os.Getenv("CYCLES_SNAPSHOT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CYCLES_SNAPSHOT_LIMIT: %w", err)
		}
		c.Feed.SnapshotLimit = n
	}
	if v := os.Getenv("CYCLES_REDIS_ADDR"); v != "" {
		c.Publish.RedisAddr = v
	}
	if v := os.Getenv("CYCLES_DB_PATH"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("CYCLES_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("CYCLES_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol is required")
	}
	if !intervals[c.Feed.Interval] {
		return fmt.Errorf("feed.interval %q is not a kline interval", c.Feed.Interval)
	}
	if c.Feed.SnapshotLimit <= 0 || c.Feed.SnapshotLimit > binance.MaxLimit {
		return fmt.Errorf("feed.snapshot_limit must be between 1 and %d", binance.MaxLimit)
	}
	if c.Feed.BufferCap <= 0 {
		return fmt.Errorf("feed.buffer_cap must be positive")
	}
	if c.Feed.ResyncCron != "" {
		if err := scheduler.ParseSpec(c.Feed.ResyncCron); err != nil {
			return fmt.Errorf("feed.resync_cron: %w", err)
		}
	}

	if err := c.Params().Validate(); err != nil {
		return err
	}
	if m := c.Cycles.Manual; m != nil && (m.StartIndex < 0 || m.EndIndex <= m.StartIndex) {
		return fmt.Errorf("cycles.manual: end_index must be after start_index")
	}

	switch c.Journal.Type {
	case "none", "":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.CSVPath == "" {
			return fmt.Errorf("journal csv_path required for csv type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Params builds the engine parameters for one recompute pass.
func (c *Config) Params() engine.Params {
	p := engine.Params{
		Momentum:            c.Momentum,
		MinDuration:         c.Cycles.MinDuration,
		MaxDuration:         c.Cycles.MaxDuration,
		PriorityMinDuration: c.Cycles.PriorityMinDuration,
		UseMomentumRule:     c.Cycles.UseMomentumRule,
		ShowIndexCycles:     c.Cycles.ShowIndexCycles,
		ShowInverseCycles:   c.Cycles.ShowInverseCycles,
	}
	return p.WithManual(c.Cycles.Manual)
}
