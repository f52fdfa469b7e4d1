package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"marketlens/pkg/model"
)

// fakeProvider counts calls and serves canned candles or a canned error.
type fakeProvider struct {
	name      string
	available bool
	candles   []model.Candle
	err       error
	mu        sync.Mutex
	calls     int
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) IsAvailable() bool { return f.available }
func (f *fakeProvider) RateLimit() int    { return 60 }

func (f *fakeProvider) GetDailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCandles(n int) []model.Candle {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		candles = append(candles, model.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
	}
	return candles
}

func TestFallbackProvider_FiltersUnavailable(t *testing.T) {
	keyed := &fakeProvider{name: "keyed", available: false}
	open := &fakeProvider{name: "open", available: true, candles: testCandles(3)}

	f := NewFallbackProvider(keyed, open)
	if len(f.Providers()) != 1 {
		t.Fatalf("Expected 1 available provider, got %d", len(f.Providers()))
	}
	if f.Providers()[0].Name() != "open" {
		t.Errorf("Expected 'open' to survive filtering, got %q", f.Providers()[0].Name())
	}
}

func TestFallbackProvider_TriesNextOnError(t *testing.T) {
	failing := &fakeProvider{
		name:      "failing",
		available: true,
		err:       &ProviderError{Provider: "failing", Err: fmt.Errorf("upstream down"), Retryable: true},
	}
	working := &fakeProvider{name: "working", available: true, candles: testCandles(2)}

	f := NewFallbackProvider(failing, working)
	candles, err := f.GetDailyCandles(context.Background(), "AAPL", day(2024, 1, 2), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if len(candles) != 2 {
		t.Errorf("Expected 2 candles from fallback, got %d", len(candles))
	}
	if failing.callCount() != 1 || working.callCount() != 1 {
		t.Errorf("Expected both providers tried once, got %d and %d", failing.callCount(), working.callCount())
	}
}

func TestFallbackProvider_AllFail(t *testing.T) {
	wantErr := &ProviderError{Provider: "only", Err: fmt.Errorf("no data available"), Retryable: false}
	only := &fakeProvider{name: "only", available: true, err: wantErr}

	f := NewFallbackProvider(only)
	_, err := f.GetDailyCandles(context.Background(), "AAPL", day(2024, 1, 2), day(2024, 1, 5))
	if err == nil {
		t.Fatal("Expected error when every provider fails")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Errorf("Expected ProviderError, got %T", err)
	}
}

func TestFallbackProvider_RateLimit(t *testing.T) {
	a := &fakeProvider{name: "a", available: true}
	b := &fakeProvider{name: "b", available: true}

	f := NewFallbackProvider(a, b)
	if got := f.RateLimit(); got != 60 {
		t.Errorf("Expected max rate 60, got %d", got)
	}
	if !f.IsAvailable() {
		t.Error("Expected fallback with providers to be available")
	}

	empty := NewFallbackProvider()
	if empty.IsAvailable() {
		t.Error("Expected empty fallback to be unavailable")
	}
}

func TestCachingProvider_MemoizesByRange(t *testing.T) {
	inner := &fakeProvider{name: "inner", available: true, candles: testCandles(5)}
	p := NewCachingProvider(inner, time.Minute)

	ctx := context.Background()
	from, to := day(2024, 1, 2), day(2024, 1, 31)

	for i := 0; i < 3; i++ {
		candles, err := p.GetDailyCandles(ctx, "AAPL", from, to)
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if len(candles) != 5 {
			t.Fatalf("Fetch %d: expected 5 candles, got %d", i, len(candles))
		}
	}
	if inner.callCount() != 1 {
		t.Errorf("Expected 1 upstream call for repeated range, got %d", inner.callCount())
	}

	// A different range must miss
	if _, err := p.GetDailyCandles(ctx, "AAPL", from, day(2024, 2, 15)); err != nil {
		t.Fatal(err)
	}
	if inner.callCount() != 2 {
		t.Errorf("Expected a second upstream call for a new range, got %d", inner.callCount())
	}

	// A different symbol must miss too
	if _, err := p.GetDailyCandles(ctx, "MSFT", from, to); err != nil {
		t.Fatal(err)
	}
	if inner.callCount() != 3 {
		t.Errorf("Expected a third upstream call for a new symbol, got %d", inner.callCount())
	}
}

func TestCachingProvider_TTLExpiry(t *testing.T) {
	inner := &fakeProvider{name: "inner", available: true, candles: testCandles(2)}
	p := NewCachingProvider(inner, 10*time.Millisecond)

	ctx := context.Background()
	from, to := day(2024, 1, 2), day(2024, 1, 5)

	if _, err := p.GetDailyCandles(ctx, "AAPL", from, to); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := p.GetDailyCandles(ctx, "AAPL", from, to); err != nil {
		t.Fatal(err)
	}

	if inner.callCount() != 2 {
		t.Errorf("Expected expired entry to refetch, got %d upstream calls", inner.callCount())
	}
}

func TestCachingProvider_ErrorsNotCached(t *testing.T) {
	inner := &fakeProvider{
		name:      "inner",
		available: true,
		err:       &ProviderError{Provider: "inner", Err: fmt.Errorf("boom"), Retryable: true},
	}
	p := NewCachingProvider(inner, time.Minute)

	ctx := context.Background()
	from, to := day(2024, 1, 2), day(2024, 1, 5)

	for i := 0; i < 2; i++ {
		if _, err := p.GetDailyCandles(ctx, "AAPL", from, to); err == nil {
			t.Fatal("Expected error from failing inner provider")
		}
	}
	if inner.callCount() != 2 {
		t.Errorf("Expected failures to bypass the cache, got %d upstream calls", inner.callCount())
	}
}

func TestCachingProvider_Purge(t *testing.T) {
	inner := &fakeProvider{name: "inner", available: true, candles: testCandles(2)}
	p := NewCachingProvider(inner, 10*time.Millisecond)

	ctx := context.Background()
	if _, err := p.GetDailyCandles(ctx, "AAPL", day(2024, 1, 2), day(2024, 1, 5)); err != nil {
		t.Fatal(err)
	}
	if p.Size() != 1 {
		t.Fatalf("Expected 1 cached range, got %d", p.Size())
	}

	time.Sleep(20 * time.Millisecond)
	if removed := p.Purge(); removed != 1 {
		t.Errorf("Expected purge to remove 1 entry, removed %d", removed)
	}
	if p.Size() != 0 {
		t.Errorf("Expected empty cache after purge, got %d", p.Size())
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
