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

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider implements the Provider interface for Yahoo Finance
// (unofficial chart API). Works without an API key and covers index
// symbols (^GSPC etc.) as well as suffixed stocks (RELIANCE.NS).
type YahooProvider struct {
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	return &YahooProvider{
		baseURL:   yahooBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("yahoo", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

// yahooResponse represents the Yahoo Finance chart API response.
// Quote arrays use pointers: the API reports halted or partial days
// as JSON null, and those bars must be skipped, not read as zero.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyCandles fetches daily OHLCV bars for [from, to]
func (p *YahooProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// period2 is exclusive upstream; push it one day out so the last
	// requested trading day is included.
	reqURL := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false",
		p.baseURL, url.PathEscape(symbol), from.Unix(), to.AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

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

	var data yahooResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Chart.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}

	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote data"), Retryable: false}
	}
	quotes := result.Indicators.Quote[0]

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i := range result.Timestamp {
		if i >= len(quotes.Open) || i >= len(quotes.High) || i >= len(quotes.Low) || i >= len(quotes.Close) {
			continue
		}
		// Null bars are non-trading days leaking through; drop them
		if quotes.Close[i] == nil || quotes.Open[i] == nil || quotes.High[i] == nil || quotes.Low[i] == nil {
			continue
		}

		var volume int64
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			volume = *quotes.Volume[i]
		}

		candles = append(candles, model.Candle{
			Time:   time.Unix(result.Timestamp[i], 0).UTC(),
			Open:   *quotes.Open[i],
			High:   *quotes.High[i],
			Low:    *quotes.Low[i],
			Close:  *quotes.Close[i],
			Volume: volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	if len(candles) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	return candles, nil
}
