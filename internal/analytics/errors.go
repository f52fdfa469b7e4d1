package analytics

import (
	"errors"
	"fmt"
)

// ErrInsufficientData flags a series with fewer than two observations,
// which can produce neither returns nor day-over-day statistics.
var ErrInsufficientData = errors.New("insufficient data")

// DataError reports a malformed price series (empty payload, zero or
// missing anchor close).
type DataError struct {
	Symbol string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad data for %s: %s", e.Symbol, e.Reason)
}
