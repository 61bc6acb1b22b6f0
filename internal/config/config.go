// Package config loads the application configuration from environment
// variables (CORRPULSE_ prefix) with an optional YAML file overlay.
// Environment values take precedence over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Finnhub  FinnhubConfig  `yaml:"finnhub" envconfig:"FINNHUB"`
	Stooq    StooqConfig    `yaml:"stooq" envconfig:"STOOQ"`
	Fetch    FetchConfig    `yaml:"fetch" envconfig:"FETCH"`
	Cache    CacheConfig    `yaml:"cache" envconfig:"CACHE"`
	Market   MarketConfig   `yaml:"market" envconfig:"MARKET"`
	Events   EventsConfig   `yaml:"events" envconfig:"EVENTS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"console"`
}

// SecurityConfig contains inbound protection configuration.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains inbound rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"25"`
}

// FinnhubConfig configures the primary market data provider. The API
// key has no default: starting without one is a hard failure because
// every primary-provider call requires it.
type FinnhubConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" default:"https://finnhub.io/api/v1"`
}

// StooqConfig configures the unauthenticated CSV fallback source.
type StooqConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" default:"https://stooq.com"`
}

// FetchConfig configures outbound retry behavior.
type FetchConfig struct {
	Retries           int           `yaml:"retries" envconfig:"RETRIES" default:"2"`
	BaseBackoff       time.Duration `yaml:"base_backoff" envconfig:"BASE_BACKOFF" default:"250ms"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"0"`
}

// CacheConfig holds the TTLs for the memoized fetch paths.
type CacheConfig struct {
	UniverseTTL   time.Duration `yaml:"universe_ttl" envconfig:"UNIVERSE_TTL" default:"24h"`
	EarningsTTL   time.Duration `yaml:"earnings_ttl" envconfig:"EARNINGS_TTL" default:"6h"`
	PriceTTL      time.Duration `yaml:"price_ttl" envconfig:"PRICE_TTL" default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"10m"`
}

// MarketConfig bounds the correlation workload.
type MarketConfig struct {
	Concurrency      int `yaml:"concurrency" envconfig:"CONCURRENCY" default:"5"`
	MaxSymbols       int `yaml:"max_symbols" envconfig:"MAX_SYMBOLS" default:"20"`
	MaxLookbackYears int `yaml:"max_lookback_years" envconfig:"MAX_LOOKBACK_YEARS" default:"5"`
	MinObservations  int `yaml:"min_observations" envconfig:"MIN_OBSERVATIONS" default:"30"`
}

// EventsConfig locates the bundled macro event calendar.
type EventsConfig struct {
	File string `yaml:"file" envconfig:"FILE" default:"data/macro-events.json"`
}

// Load loads configuration from environment variables and, when
// present, a YAML config file. Environment values win.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CORRPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configFilePath returns the YAML overlay location, overridable for
// deployments that keep config outside the working directory.
func configFilePath() string {
	if path := os.Getenv("CORRPULSE_CONFIG_FILE"); path != "" {
		return path
	}
	return "corrpulse.yaml"
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays file values on top of the env-derived config. A file
// value is applied only when its environment variable is not set, so
// explicit env values win over the file and the file wins over the
// built-in defaults.
func merge(file, env Config) Config {
	envSet := func(key string) bool {
		return os.Getenv("CORRPULSE_"+key) != ""
	}

	if file.Finnhub.APIKey != "" && !envSet("FINNHUB_API_KEY") {
		env.Finnhub.APIKey = file.Finnhub.APIKey
	}
	if file.Finnhub.BaseURL != "" && !envSet("FINNHUB_BASE_URL") {
		env.Finnhub.BaseURL = file.Finnhub.BaseURL
	}
	if file.Stooq.BaseURL != "" && !envSet("STOOQ_BASE_URL") {
		env.Stooq.BaseURL = file.Stooq.BaseURL
	}
	if file.Server.Port != 0 && !envSet("SERVER_PORT") {
		env.Server.Port = file.Server.Port
	}
	if file.Logging.Level != "" && !envSet("LOGGING_LEVEL") {
		env.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" && !envSet("LOGGING_FORMAT") {
		env.Logging.Format = file.Logging.Format
	}
	if file.Cache.UniverseTTL != 0 && !envSet("CACHE_UNIVERSE_TTL") {
		env.Cache.UniverseTTL = file.Cache.UniverseTTL
	}
	if file.Cache.EarningsTTL != 0 && !envSet("CACHE_EARNINGS_TTL") {
		env.Cache.EarningsTTL = file.Cache.EarningsTTL
	}
	if file.Cache.PriceTTL != 0 && !envSet("CACHE_PRICE_TTL") {
		env.Cache.PriceTTL = file.Cache.PriceTTL
	}
	if file.Fetch.Retries != 0 && !envSet("FETCH_RETRIES") {
		env.Fetch.Retries = file.Fetch.Retries
	}
	if file.Fetch.BaseBackoff != 0 && !envSet("FETCH_BASE_BACKOFF") {
		env.Fetch.BaseBackoff = file.Fetch.BaseBackoff
	}
	if file.Market.Concurrency != 0 && !envSet("MARKET_CONCURRENCY") {
		env.Market.Concurrency = file.Market.Concurrency
	}
	if file.Events.File != "" && !envSet("EVENTS_FILE") {
		env.Events.File = file.Events.File
	}
	return env
}

// validate checks configuration invariants at startup.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub API key is required (set CORRPULSE_FINNHUB_API_KEY)")
	}
	if c.Market.Concurrency < 1 {
		return fmt.Errorf("market concurrency must be at least 1, got %d", c.Market.Concurrency)
	}
	if c.Market.MaxSymbols < 2 {
		return fmt.Errorf("max symbols must be at least 2, got %d", c.Market.MaxSymbols)
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch retries cannot be negative, got %d", c.Fetch.Retries)
	}
	return nil
}
