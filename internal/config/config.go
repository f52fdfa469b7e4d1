package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	Listings ListingsConfig `yaml:"listings"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServerConfig holds the web server settings
type ServerConfig struct {
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
	SessionTTLMin int    `yaml:"session_ttl_minutes"`
}

// APIConfig holds price provider configurations
type APIConfig struct {
	Yahoo        ProviderConfig `yaml:"yahoo"`
	Finnhub      ProviderConfig `yaml:"finnhub"`
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// CacheConfig holds the in-memory memoization TTLs
type CacheConfig struct {
	PriceTTLSeconds   int `yaml:"price_ttl_seconds"`
	ListingTTLSeconds int `yaml:"listing_ttl_seconds"`
}

// ListingsConfig holds settings for the listings scraper
type ListingsConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RefreshCron    string `yaml:"refresh_cron"` // cron spec with seconds field
	RateLimit      int    `yaml:"rate_limit"`   // requests per minute per host
}

// DefaultsConfig holds the initial dashboard selections
type DefaultsConfig struct {
	Market string `yaml:"market"`
	Period string `yaml:"period"` // 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, max
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          8080,
			SessionSecret: os.Getenv("MARKETLENS_SESSION_SECRET"),
			SessionTTLMin: 240,
		},
		API: APIConfig{
			Yahoo: ProviderConfig{
				RateLimit: 60,
			},
			Finnhub: ProviderConfig{
				Key:       os.Getenv("FINNHUB_API_KEY"),
				RateLimit: 60,
			},
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
		},
		Cache: CacheConfig{
			PriceTTLSeconds:   300,
			ListingTTLSeconds: 86400,
		},
		Listings: ListingsConfig{
			TimeoutSeconds: 20,
			RefreshCron:    "0 0 6 * * *", // daily at 06:00
			RateLimit:      30,
		},
		Defaults: DefaultsConfig{
			Market: "USA",
			Period: "1y",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Override with environment variables if set
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.API.Finnhub.Key = key
	}
	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.API.AlphaVantage.Key = key
	}
	if secret := os.Getenv("MARKETLENS_SESSION_SECRET"); secret != "" {
		cfg.Server.SessionSecret = secret
	}
	if port := os.Getenv("MARKETLENS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid MARKETLENS_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Cache.PriceTTLSeconds < 0 || c.Cache.ListingTTLSeconds < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}
	if c.API.Yahoo.RateLimit < 1 {
		return fmt.Errorf("yahoo rate_limit must be at least 1")
	}
	if !validPeriod(c.Defaults.Period) {
		return fmt.Errorf("defaults.period %q is not a known period", c.Defaults.Period)
	}
	return nil
}

// validPeriod reports whether p is one of the supported period presets.
func validPeriod(p string) bool {
	switch p {
	case "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "max":
		return true
	}
	return false
}
