package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.PriceTTLSeconds != 300 {
		t.Errorf("Expected default price TTL 300s, got %d", cfg.Cache.PriceTTLSeconds)
	}
	if cfg.Defaults.Period != "1y" {
		t.Errorf("Expected default period 1y, got %q", cfg.Defaults.Period)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("server:\n  port: 9999\ncache:\n  price_ttl_seconds: 60\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from file, got %d", cfg.Server.Port)
	}
	if cfg.Cache.PriceTTLSeconds != 60 {
		t.Errorf("Expected price TTL 60s from file, got %d", cfg.Cache.PriceTTLSeconds)
	}
	// Untouched sections keep their defaults
	if cfg.Cache.ListingTTLSeconds != 86400 {
		t.Errorf("Expected default listing TTL to survive partial config, got %d", cfg.Cache.ListingTTLSeconds)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MARKETLENS_PORT", "3000")
	t.Setenv("FINNHUB_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Expected env port 3000, got %d", cfg.Server.Port)
	}
	if cfg.API.Finnhub.Key != "env-key" {
		t.Errorf("Expected finnhub key from env, got %q", cfg.API.Finnhub.Key)
	}
}

func TestLoadBadEnvPort(t *testing.T) {
	t.Setenv("MARKETLENS_PORT", "not-a-port")

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for invalid MARKETLENS_PORT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Defaults are valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "Bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "Negative TTL", mutate: func(c *Config) { c.Cache.PriceTTLSeconds = -1 }, wantErr: true},
		{name: "Zero yahoo rate", mutate: func(c *Config) { c.API.Yahoo.RateLimit = 0 }, wantErr: true},
		{name: "Unknown period", mutate: func(c *Config) { c.Defaults.Period = "fortnight" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
		})
	}
}
