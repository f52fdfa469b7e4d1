package compare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"marketlens/internal/analytics"
	"marketlens/internal/provider"
	"marketlens/pkg/model"
)

// Error kinds reported per symbol. Fetch covers transport and upstream
// failures; data covers unusable values (zero anchor close); and
// insufficient covers series too short to normalize.
const (
	KindFetch        = "fetch"
	KindData         = "data"
	KindInsufficient = "insufficient_data"
)

// SymbolError describes why one symbol dropped out of a comparison.
type SymbolError struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Result bundles everything one comparison render needs. Symbols that
// failed appear only in Errors; the rest still chart.
type Result struct {
	Returns    []model.ReturnSeries          `json:"returns"`
	Stats      map[string]model.SummaryStats `json:"stats"`
	Errors     map[string]SymbolError        `json:"errors,omitempty"`
	Truncation *analytics.Truncation         `json:"truncation,omitempty"`
	Elapsed    time.Duration                 `json:"-"`
}

// DeepDive bundles a single-symbol drilldown: raw candles for the
// candlestick chart plus the derived series and stats.
type DeepDive struct {
	Series  model.PriceSeries  `json:"series"`
	Returns model.ReturnSeries `json:"returns"`
	Stats   model.SummaryStats `json:"stats"`
	Elapsed time.Duration      `json:"-"`
}

// ProgressFunc is called as symbol fetches complete.
type ProgressFunc func(done, total int)

// Comparer runs the fetch → normalize → summarize pipeline for a set
// of symbols, fetching concurrently and joining before analysis.
type Comparer struct {
	normalizer *analytics.Normalizer
	timeout    time.Duration
	progress   ProgressFunc
}

// New creates a comparer. timeout bounds one whole comparison run.
func New(timeout time.Duration) *Comparer {
	return &Comparer{
		normalizer: analytics.NewNormalizer(),
		timeout:    timeout,
	}
}

// SetProgress sets the progress callback function.
func (c *Comparer) SetProgress(fn ProgressFunc) {
	c.progress = fn
}

// Compare fetches every symbol through quotes, normalizes each series
// against its own first close, and summarizes. Failures never abort
// the run: each failing symbol gets an Errors entry and the remaining
// symbols render.
func (c *Comparer) Compare(ctx context.Context, quotes provider.Provider, symbols []string, from, to time.Time) (*Result, error) {
	startTime := time.Now()
	symbols = dedupe(symbols)

	result := &Result{
		Stats:  make(map[string]model.SummaryStats),
		Errors: make(map[string]SymbolError),
	}
	if len(symbols) == 0 {
		result.Elapsed = time.Since(startTime)
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Fetch all symbols concurrently, then join before analysis.
	type fetched struct {
		candles []model.Candle
		err     error
	}
	results := make([]fetched, len(symbols))

	var done int64
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			candles, err := quotes.GetDailyCandles(ctx, symbol, from, to)
			results[i] = fetched{candles: candles, err: err}

			count := atomic.AddInt64(&done, 1)
			if c.progress != nil {
				c.progress(int(count), len(symbols))
			}
		}(i, symbol)
	}
	wg.Wait()

	var returns []model.ReturnSeries
	for i, symbol := range symbols {
		if results[i].err != nil {
			result.Errors[symbol] = Classify(results[i].err)
			continue
		}

		series := model.PriceSeries{Symbol: symbol, Candles: results[i].candles}
		ret, err := c.normalizer.Returns(series)
		if err != nil {
			result.Errors[symbol] = Classify(err)
			continue
		}
		stats, err := analytics.Summarize(series)
		if err != nil {
			result.Errors[symbol] = Classify(err)
			continue
		}

		returns = append(returns, ret)
		result.Stats[symbol] = stats
	}

	result.Returns = returns
	result.Truncation = c.normalizer.DetectTruncation(returns)
	result.Elapsed = time.Since(startTime)
	return result, nil
}

// Dive fetches one symbol and derives its full drilldown. Unlike
// Compare there is nothing to partially render, so any failure is
// returned as an error.
func (c *Comparer) Dive(ctx context.Context, quotes provider.Provider, symbol string, from, to time.Time) (*DeepDive, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	candles, err := quotes.GetDailyCandles(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	series := model.PriceSeries{Symbol: symbol, Candles: candles}
	ret, err := c.normalizer.Returns(series)
	if err != nil {
		return nil, err
	}
	stats, err := analytics.Summarize(series)
	if err != nil {
		return nil, err
	}

	return &DeepDive{
		Series:  series,
		Returns: ret,
		Stats:   stats,
		Elapsed: time.Since(startTime),
	}, nil
}

// Classify maps an error from the pipeline onto its reported kind.
func Classify(err error) SymbolError {
	var dataErr *analytics.DataError
	switch {
	case errors.Is(err, analytics.ErrInsufficientData):
		return SymbolError{Kind: KindInsufficient, Reason: err.Error()}
	case errors.As(err, &dataErr):
		return SymbolError{Kind: KindData, Reason: err.Error()}
	default:
		return SymbolError{Kind: KindFetch, Reason: err.Error()}
	}
}

// dedupe drops blank and repeated symbols, keeping first-seen order.
func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	var out []string
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
