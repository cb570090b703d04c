// Package config loads and validates newswatch configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	DB       DBConfig       `mapstructure:"db"`
	LoadTest LoadTestConfig `mapstructure:"loadtest"`
	Report   ReportConfig   `mapstructure:"report"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig governs the fetch and extraction pipeline.
type ScraperConfig struct {
	URL                   string   `mapstructure:"url"`
	HostToken             string   `mapstructure:"host_token"`
	Selectors             []string `mapstructure:"selectors"`
	UserAgent             string   `mapstructure:"user_agent"`
	MaxRetries            int      `mapstructure:"max_retries"`
	RetryDelaySeconds     int      `mapstructure:"retry_delay_seconds"`
	TimeoutSeconds        int      `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int      `mapstructure:"connect_timeout_seconds"`
	IntervalMinutes       int      `mapstructure:"interval_minutes"`
}

// DBConfig selects and configures the article store backend.
type DBConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// LoadTestConfig sets defaults for load test runs.
type LoadTestConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Scenario       string `mapstructure:"scenario"`
	DelayMs        int    `mapstructure:"delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ReportConfig controls where run reports are written.
type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("scraper.url", "https://g1.globo.com/")
	v.SetDefault("scraper.host_token", "g1.globo.com")
	v.SetDefault("scraper.user_agent", "newswatch-bot/0.1")
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_delay_seconds", 2)
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.connect_timeout_seconds", 10)
	v.SetDefault("scraper.interval_minutes", 10)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "data/newswatch.db")
	v.SetDefault("db.max_open_conns", 4)
	v.SetDefault("loadtest.base_url", "http://localhost:8000")
	v.SetDefault("loadtest.scenario", "light")
	v.SetDefault("loadtest.delay_ms", 100)
	v.SetDefault("loadtest.timeout_seconds", 30)
	v.SetDefault("report.dir", "results")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.URL == "" {
		return fmt.Errorf("scraper.url must be set")
	}
	if c.Scraper.MaxRetries <= 0 {
		return fmt.Errorf("scraper.max_retries must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	switch c.DB.Driver {
	case "memory":
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path must be set for the sqlite driver")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("db.driver must be one of memory, sqlite, postgres")
	}
	return nil
}

// FetchTimeout is the total budget for one homepage fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// ConnectTimeout bounds connection establishment.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Scraper.ConnectTimeoutSeconds) * time.Second
}

// RetryDelay is the base backoff between fetch attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Scraper.RetryDelaySeconds) * time.Second
}

// ScrapeInterval is the cadence of the background scrape loop.
func (c Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Scraper.IntervalMinutes) * time.Minute
}
