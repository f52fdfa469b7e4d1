package analytics

import (
	"fmt"
	"time"

	"marketlens/pkg/model"
)

// pctChange returns the percent change from one price to another.
func pctChange(from, to float64) float64 {
	return (to/from - 1) * 100
}

// Normalizer converts raw price series into percent-return series that
// stay comparable across symbols trading on different calendars.
type Normalizer struct {
	// MaxAnchorGap is the widest spread, in calendar days, allowed
	// between the first trading dates of compared symbols before the
	// comparison is flagged as truncated.
	MaxAnchorGap int
}

// NewNormalizer creates a normalizer with the default anchor-gap limit.
func NewNormalizer() *Normalizer {
	return &Normalizer{MaxAnchorGap: 10}
}

// Returns converts one price series into a percent-return series
// anchored at the series' own first close. The first point is exactly 0.
func (n *Normalizer) Returns(s model.PriceSeries) (model.ReturnSeries, error) {
	if s.Len() < 2 {
		return model.ReturnSeries{}, fmt.Errorf("%s: %w", s.Symbol, ErrInsufficientData)
	}
	anchor := s.First().Close
	if anchor == 0 {
		return model.ReturnSeries{}, &DataError{Symbol: s.Symbol, Reason: "first close is zero"}
	}

	points := make([]model.ReturnPoint, 0, s.Len())
	for _, c := range s.Candles {
		points = append(points, model.ReturnPoint{
			Time:    c.Time,
			Percent: pctChange(anchor, c.Close),
		})
	}
	return model.ReturnSeries{Symbol: s.Symbol, Points: points}, nil
}

// NormalizeAll converts every series, anchoring each at its own first
// trading date within the range (no cross-symbol date join). Symbols
// that cannot be normalized are excluded and reported in the error map;
// the remaining symbols still normalize.
func (n *Normalizer) NormalizeAll(series []model.PriceSeries) ([]model.ReturnSeries, map[string]error) {
	returns := make([]model.ReturnSeries, 0, len(series))
	failed := make(map[string]error)
	for _, s := range series {
		rs, err := n.Returns(s)
		if err != nil {
			failed[s.Symbol] = err
			continue
		}
		returns = append(returns, rs)
	}
	return returns, failed
}

// Truncation reports a comparison whose symbols begin trading on dates
// spread wider apart than the anchor-gap limit. Each series still
// anchors at its own start; the note lets the caller warn that late
// starters cover a shorter window than the rest.
type Truncation struct {
	EarliestStart time.Time `json:"earliest_start"`
	LatestStart   time.Time `json:"latest_start"`
	GapDays       int       `json:"gap_days"`
	LateSymbols   []string  `json:"late_symbols"`
}

// DetectTruncation inspects the anchor dates of normalized series and
// returns a note when their spread exceeds the gap limit, nil otherwise.
func (n *Normalizer) DetectTruncation(returns []model.ReturnSeries) *Truncation {
	if len(returns) < 2 {
		return nil
	}

	earliest := returns[0].Points[0].Time
	latest := earliest
	for _, rs := range returns[1:] {
		start := rs.Points[0].Time
		if start.Before(earliest) {
			earliest = start
		}
		if start.After(latest) {
			latest = start
		}
	}

	gap := int(latest.Sub(earliest).Hours() / 24)
	if gap <= n.MaxAnchorGap {
		return nil
	}

	note := &Truncation{
		EarliestStart: earliest,
		LatestStart:   latest,
		GapDays:       gap,
	}
	cutoff := earliest.AddDate(0, 0, n.MaxAnchorGap)
	for _, rs := range returns {
		if rs.Points[0].Time.After(cutoff) {
			note.LateSymbols = append(note.LateSymbols, rs.Symbol)
		}
	}
	return note
}
