package analytics

import (
	"errors"
	"math"
	"testing"

	"marketlens/pkg/model"
)

func TestSummarize(t *testing.T) {
	series := dailySeries("TEST", date(2024, 1, 2), 100, 110, 99)

	stats, err := Summarize(series)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if math.Abs(stats.TotalReturn-(-1.0)) > 1e-9 {
		t.Errorf("Expected total return -1%%, got %v%%", stats.TotalReturn)
	}
	if math.Abs(stats.BestDayReturn-10.0) > 1e-9 {
		t.Errorf("Expected best day +10%%, got %v%%", stats.BestDayReturn)
	}
	// Day 3 vs day 2: (99/110 - 1) * 100
	wantWorst := (99.0/110.0 - 1) * 100
	if math.Abs(stats.WorstDayReturn-wantWorst) > 1e-9 {
		t.Errorf("Expected worst day %v%%, got %v%%", wantWorst, stats.WorstDayReturn)
	}
	wantVol := (math.Abs((110.0/100.0-1)*100) + math.Abs((99.0/110.0-1)*100)) / 2
	if math.Abs(stats.AvgDailyVolatility-wantVol) > 1e-9 {
		t.Errorf("Expected avg volatility %v, got %v", wantVol, stats.AvgDailyVolatility)
	}
	if stats.CurrentPrice != 99 {
		t.Errorf("Expected current price 99, got %v", stats.CurrentPrice)
	}
}

func TestSummarize_MatchesReturnSeries(t *testing.T) {
	// Total return must equal the final point of the return series
	// exactly: both come from the same anchor computation.
	series := dailySeries("TEST", date(2024, 1, 2), 84.3, 91.7, 88.05, 95.2)

	stats, err := Summarize(series)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	rs, err := NewNormalizer().Returns(series)
	if err != nil {
		t.Fatalf("Returns: %v", err)
	}

	last := rs.Points[len(rs.Points)-1].Percent
	if stats.TotalReturn != last {
		t.Errorf("Expected total return %v to equal last return point %v", stats.TotalReturn, last)
	}
}

func TestSummarize_PeriodHighLow(t *testing.T) {
	// High/low come from the high/low columns, not from closes.
	start := date(2024, 3, 4)
	series := model.PriceSeries{
		Symbol: "HL",
		Candles: []model.Candle{
			{Time: start, Open: 100, High: 104, Low: 97, Close: 100, Volume: 100},
			{Time: start.AddDate(0, 0, 1), Open: 100, High: 120, Low: 99, Close: 101, Volume: 100},
			{Time: start.AddDate(0, 0, 2), Open: 101, High: 103, Low: 88, Close: 102, Volume: 100},
		},
	}

	stats, err := Summarize(series)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stats.PeriodHigh != 120 {
		t.Errorf("Expected period high 120, got %v", stats.PeriodHigh)
	}
	if !stats.PeriodHighDate.Equal(start.AddDate(0, 0, 1)) {
		t.Errorf("Expected high on day 2, got %v", stats.PeriodHighDate)
	}
	if stats.PeriodLow != 88 {
		t.Errorf("Expected period low 88, got %v", stats.PeriodLow)
	}
	if !stats.PeriodLowDate.Equal(start.AddDate(0, 0, 2)) {
		t.Errorf("Expected low on day 3, got %v", stats.PeriodLowDate)
	}
}

func TestSummarize_VolatilityNonNegative(t *testing.T) {
	cases := [][]float64{
		{100, 110, 99},
		{50, 50, 50, 50},
		{200, 100, 300, 150},
		{1.5, 1.4},
	}

	for _, closes := range cases {
		stats, err := Summarize(dailySeries("VOL", date(2024, 1, 2), closes...))
		if err != nil {
			t.Fatalf("closes %v: %v", closes, err)
		}
		if stats.AvgDailyVolatility < 0 {
			t.Errorf("closes %v: expected non-negative volatility, got %v", closes, stats.AvgDailyVolatility)
		}
	}
}

func TestSummarize_InsufficientData(t *testing.T) {
	for _, closes := range [][]float64{{}, {42}} {
		stats, err := Summarize(dailySeries("SHORT", date(2024, 1, 2), closes...))
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("len=%d: expected ErrInsufficientData, got %v", len(closes), err)
		}
		if stats != (model.SummaryStats{}) {
			t.Errorf("len=%d: expected empty stats, got %+v", len(closes), stats)
		}
	}
}

func TestSummarize_ZeroAnchor(t *testing.T) {
	_, err := Summarize(dailySeries("ZERO", date(2024, 1, 2), 0, 10))
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("Expected DataError, got %v", err)
	}
}
