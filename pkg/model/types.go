package model

import "time"

// Candle represents a single daily candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries holds the ordered daily candles for one symbol.
// Dates are unique and strictly increasing; non-trading days are
// simply absent, never imputed.
type PriceSeries struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// Len returns the number of observations in the series.
func (s PriceSeries) Len() int { return len(s.Candles) }

// First returns the earliest candle. Valid only when Len() > 0.
func (s PriceSeries) First() Candle { return s.Candles[0] }

// Last returns the most recent candle. Valid only when Len() > 0.
func (s PriceSeries) Last() Candle { return s.Candles[len(s.Candles)-1] }

// ReturnPoint is one observation of a percent-return series.
type ReturnPoint struct {
	Time    time.Time `json:"time"`
	Percent float64   `json:"percent"`
}

// ReturnSeries is a price series re-expressed as percent change
// relative to its own first close. The first point is exactly 0.
type ReturnSeries struct {
	Symbol string        `json:"symbol"`
	Points []ReturnPoint `json:"points"`
}

// SummaryStats is the per-symbol scalar bundle for one date range.
// AvgDailyVolatility is the mean absolute day-over-day percent change,
// not a standard deviation.
type SummaryStats struct {
	Symbol             string    `json:"symbol"`
	CurrentPrice       float64   `json:"current_price"`
	TotalReturn        float64   `json:"total_return"`
	BestDayReturn      float64   `json:"best_day_return"`
	WorstDayReturn     float64   `json:"worst_day_return"`
	AvgDailyVolatility float64   `json:"avg_daily_volatility"`
	PeriodHigh         float64   `json:"period_high"`
	PeriodHighDate     time.Time `json:"period_high_date"`
	PeriodLow          float64   `json:"period_low"`
	PeriodLowDate      time.Time `json:"period_low_date"`
}

// Listing represents one tradable symbol within a market.
type Listing struct {
	Symbol  string   `json:"symbol"`
	Name    string   `json:"name"`
	Indices []string `json:"indices,omitempty"` // index memberships, e.g. "NIFTY 50"
}

// IndexInfo is one entry of the world-index catalog.
type IndexInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// MarketConfig describes how symbols of a market map onto the data
// provider: the ticker suffix appended to local symbols and the
// currency used for price display.
type MarketConfig struct {
	Name     string `json:"name"`
	Suffix   string `json:"suffix"`
	Currency string `json:"currency"` // ISO code, e.g. INR
	Glyph    string `json:"glyph"`    // display symbol, e.g. ₹
}

// ListingSource tells where a listings response came from.
type ListingSource string

const (
	SourceLive    ListingSource = "live"    // scraped from the upstream source
	SourceBuiltin ListingSource = "builtin" // fallback table shipped with the binary
)
