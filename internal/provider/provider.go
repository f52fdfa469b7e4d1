package provider

import (
	"context"
	"time"

	"marketlens/pkg/model"
)

// Provider defines the interface for daily price-history sources
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetDailyCandles fetches daily OHLCV data for the inclusive
	// date range [from, to]
	GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific fetch error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	// Filter to only available providers
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyCandles tries each provider in order until one succeeds
func (f *FallbackProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	var lastErr error
	for _, p := range f.providers {
		candles, err := p.GetDailyCandles(ctx, symbol, from, to)
		if err == nil {
			return candles, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
