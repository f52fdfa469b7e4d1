package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"marketlens/internal/ratelimit"
	"marketlens/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider implements the Provider interface for the
// Alpha Vantage API. Requires an API key; the free tier is heavily
// rate limited, which the Note field in responses reports.
type AlphaVantageProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:    apiKey,
		baseURL:   alphaVantageBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("alphavantage", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// IsAvailable checks if the provider has an API key
func (p *AlphaVantageProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *AlphaVantageProvider) RateLimit() int {
	return p.rateLimit
}

// alphaVantageResponse represents the daily-series API response
type alphaVantageResponse struct {
	MetaData   map[string]string            `json:"Meta Data"`
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"` // Rate limit message
	Error      string                       `json:"Error Message"`
}

// GetDailyCandles fetches daily OHLCV bars for [from, to].
// Alpha Vantage has no range parameters, so the full series is pulled
// and filtered client-side.
func (p *AlphaVantageProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// compact returns ~100 rows; anything longer needs the full dump
	outputSize := "compact"
	if to.Sub(from) > 100*24*time.Hour {
		outputSize = "full"
	}

	reqURL := fmt.Sprintf("%s?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		p.baseURL, url.QueryEscape(symbol), outputSize, p.apiKey)

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

	var data alphaVantageResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Note != "" {
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited: %s", data.Note), Retryable: true}
	}

	if data.Error != "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Error), Retryable: false}
	}

	if len(data.TimeSeries) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	candles := p.parseDailySeries(data.TimeSeries, from, to)
	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data in range %s..%s",
			from.Format("2006-01-02"), to.Format("2006-01-02")), Retryable: false}
	}

	return candles, nil
}

// parseDailySeries converts the date-keyed response map into sorted
// candles within [from, to]
func (p *AlphaVantageProvider) parseDailySeries(series map[string]map[string]string, from, to time.Time) []model.Candle {
	fromDay := from.Format("2006-01-02")
	toDay := to.Format("2006-01-02")

	var candles []model.Candle
	for dateStr, values := range series {
		if dateStr < fromDay || dateStr > toDay {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(values["1. open"], 64)
		high, _ := strconv.ParseFloat(values["2. high"], 64)
		low, _ := strconv.ParseFloat(values["3. low"], 64)
		closePrice, _ := strconv.ParseFloat(values["4. close"], 64)
		volume, _ := strconv.ParseInt(values["5. volume"], 10, 64)

		if closePrice == 0 {
			continue
		}

		candles = append(candles, model.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	return candles
}
