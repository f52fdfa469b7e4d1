package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

const yahooFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "TEST"},
      "timestamp": [1704153600, 1704240000, 1704326400],
      "indicators": {
        "quote": [{
          "open":   [100.0, null, 102.0],
          "high":   [101.0, null, 103.5],
          "low":    [99.0,  null, 101.0],
          "close":  [100.5, null, 103.0],
          "volume": [10000, null, 12000]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahooProvider_GetDailyCandles(t *testing.T) {
	var gotPath, gotInterval, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(yahooFixture)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	p := NewYahooProvider(600)
	p.baseURL = srv.URL

	candles, err := p.GetDailyCandles(context.Background(), "TEST", day(2024, 1, 2), day(2024, 1, 4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The null middle bar must be dropped, not read as zeros
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles after skipping the null bar, got %d", len(candles))
	}
	if candles[0].Close != 100.5 || candles[1].Close != 103.0 {
		t.Errorf("Expected closes [100.5 103.0], got [%v %v]", candles[0].Close, candles[1].Close)
	}
	if !candles[0].Time.Before(candles[1].Time) {
		t.Error("Expected candles sorted by time ascending")
	}
	if candles[1].Volume != 12000 {
		t.Errorf("Expected volume 12000, got %d", candles[1].Volume)
	}

	if gotPath != "/TEST" {
		t.Errorf("Expected symbol in path, got %q", gotPath)
	}
	if gotInterval != "1d" {
		t.Errorf("Expected interval=1d, got %q", gotInterval)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("Expected browser User-Agent, got %q", gotUA)
	}
}

func TestYahooProvider_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	p := NewYahooProvider(600)
	p.baseURL = srv.URL

	_, err := p.GetDailyCandles(context.Background(), "GONE", day(2024, 1, 2), day(2024, 1, 4))
	if err == nil {
		t.Fatal("Expected error for delisted symbol")
	}
	pe, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if pe.Retryable {
		t.Error("Expected delisted-symbol error to be non-retryable")
	}
}

func TestYahooProvider_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewYahooProvider(600)
	p.baseURL = srv.URL

	before := p.limiter.Backoff()
	_, err := p.GetDailyCandles(context.Background(), "TEST", day(2024, 1, 2), day(2024, 1, 4))
	if err == nil {
		t.Fatal("Expected error on 429")
	}
	pe, ok := err.(*ProviderError)
	if !ok {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if !pe.Retryable {
		t.Error("Expected 429 to be retryable")
	}
	if p.limiter.Backoff() <= before {
		t.Error("Expected 429 to grow the limiter backoff")
	}
}

func TestYahooProvider_RangeIncludesEndDay(t *testing.T) {
	var period1, period2 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		period1 = r.URL.Query().Get("period1")
		period2 = r.URL.Query().Get("period2")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	p := NewYahooProvider(600)
	p.baseURL = srv.URL

	from, to := day(2024, 1, 2), day(2024, 1, 4)
	if _, err := p.GetDailyCandles(context.Background(), "TEST", from, to); err != nil {
		t.Fatal(err)
	}

	if want := strconv.FormatInt(from.Unix(), 10); period1 != want {
		t.Errorf("Expected period1=%s, got %s", want, period1)
	}
	// to is inclusive, so the upstream period2 lands one day later
	if want := strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10); period2 != want {
		t.Errorf("Expected period2=%s, got %s", want, period2)
	}
}
