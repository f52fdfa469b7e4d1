package analytics

import (
	"fmt"
	"math"

	"marketlens/pkg/model"
)

// Summarize computes the per-symbol scalar bundle over one date range.
// AvgDailyVolatility is the mean absolute day-over-day percent change,
// deliberately not a standard deviation.
func Summarize(s model.PriceSeries) (model.SummaryStats, error) {
	if s.Len() < 2 {
		return model.SummaryStats{}, fmt.Errorf("%s: %w", s.Symbol, ErrInsufficientData)
	}
	first := s.First()
	if first.Close == 0 {
		return model.SummaryStats{}, &DataError{Symbol: s.Symbol, Reason: "first close is zero"}
	}

	stats := model.SummaryStats{
		Symbol:         s.Symbol,
		CurrentPrice:   s.Last().Close,
		TotalReturn:    pctChange(first.Close, s.Last().Close),
		PeriodHigh:     first.High,
		PeriodHighDate: first.Time,
		PeriodLow:      first.Low,
		PeriodLowDate:  first.Time,
	}

	var absSum float64
	for i, c := range s.Candles {
		if c.High > stats.PeriodHigh {
			stats.PeriodHigh = c.High
			stats.PeriodHighDate = c.Time
		}
		if c.Low < stats.PeriodLow {
			stats.PeriodLow = c.Low
			stats.PeriodLowDate = c.Time
		}
		if i == 0 {
			continue
		}

		prev := s.Candles[i-1].Close
		if prev == 0 {
			return model.SummaryStats{}, &DataError{
				Symbol: s.Symbol,
				Reason: fmt.Sprintf("zero close on %s", s.Candles[i-1].Time.Format("2006-01-02")),
			}
		}
		change := pctChange(prev, c.Close)
		if i == 1 || change > stats.BestDayReturn {
			stats.BestDayReturn = change
		}
		if i == 1 || change < stats.WorstDayReturn {
			stats.WorstDayReturn = change
		}
		absSum += math.Abs(change)
	}
	stats.AvgDailyVolatility = absSum / float64(s.Len()-1)

	return stats, nil
}
