package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"marketlens/internal/ratelimit"
	"marketlens/pkg/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider implements the Provider interface for the Finnhub
// API. Requires an API key.
type FinnhubProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewFinnhubProvider creates a new Finnhub provider
func NewFinnhubProvider(apiKey string, rateLimitPerMin int) *FinnhubProvider {
	return &FinnhubProvider{
		apiKey:    apiKey,
		baseURL:   finnhubBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("finnhub", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *FinnhubProvider) Name() string {
	return "finnhub"
}

// IsAvailable checks if the provider has an API key
func (p *FinnhubProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *FinnhubProvider) RateLimit() int {
	return p.rateLimit
}

// finnhubCandle represents the Finnhub candle response
type finnhubCandle struct {
	C []float64 `json:"c"` // Close prices
	H []float64 `json:"h"` // High prices
	L []float64 `json:"l"` // Low prices
	O []float64 `json:"o"` // Open prices
	S string    `json:"s"` // Status
	T []int64   `json:"t"` // Timestamps
	V []int64   `json:"v"` // Volumes
}

// GetDailyCandles fetches daily OHLCV bars for [from, to]
func (p *FinnhubProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/stock/candle?symbol=%s&resolution=D&from=%d&to=%d&token=%s",
		p.baseURL, url.QueryEscape(symbol), from.Unix(), to.AddDate(0, 0, 1).Unix(), p.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	var data finnhubCandle
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.S != "ok" || len(data.T) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	candles := make([]model.Candle, 0, len(data.T))
	for i := range data.T {
		if i >= len(data.O) || i >= len(data.H) || i >= len(data.L) || i >= len(data.C) {
			continue
		}
		var volume int64
		if i < len(data.V) {
			volume = data.V[i]
		}
		candles = append(candles, model.Candle{
			Time:   time.Unix(data.T[i], 0).UTC(),
			Open:   data.O[i],
			High:   data.H[i],
			Low:    data.L[i],
			Close:  data.C[i],
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	return candles, nil
}
