package compare

import (
	"fmt"
	"time"
)

// Periods accepted by the dashboard and CLI, shortest first.
var Periods = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "max"}

// RangeForPeriod resolves a period preset against now. The range ends
// at now; "max" reaches back thirty years, further than any provider's
// daily history.
func RangeForPeriod(period string, now time.Time) (from, to time.Time, err error) {
	to = now
	switch period {
	case "1mo":
		from = now.AddDate(0, -1, 0)
	case "3mo":
		from = now.AddDate(0, -3, 0)
	case "6mo":
		from = now.AddDate(0, -6, 0)
	case "1y":
		from = now.AddDate(-1, 0, 0)
	case "2y":
		from = now.AddDate(-2, 0, 0)
	case "5y":
		from = now.AddDate(-5, 0, 0)
	case "10y":
		from = now.AddDate(-10, 0, 0)
	case "max":
		from = now.AddDate(-30, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", period)
	}
	return from, to, nil
}
