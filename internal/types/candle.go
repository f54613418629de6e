package types

import (
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/pkg/errors"
)

// Interval is the time bucket size of a candle.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Intervals lists every supported candle interval.
var Intervals = []Interval{
	Interval1m,
	Interval5m,
	Interval15m,
	Interval1h,
	Interval4h,
	Interval1d,
	Interval1w,
}

// ParseInterval converts a string like "1h" into an Interval.
func ParseInterval(s string) (Interval, error) {
	for _, interval := range Intervals {
		if s == string(interval) {
			return interval, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %q", s)
}

// Seconds returns the bar length in seconds, or 0 for an unknown interval.
func (i Interval) Seconds() int64 {
	switch i {
	case Interval1m:
		return 60
	case Interval5m:
		return 5 * 60
	case Interval15m:
		return 15 * 60
	case Interval1h:
		return 60 * 60
	case Interval4h:
		return 4 * 60 * 60
	case Interval1d:
		return 24 * 60 * 60
	case Interval1w:
		return 7 * 24 * 60 * 60
	}

	return 0
}

// Candle is a single OHLCV bar for a symbol. Timestamp is the Unix time of
// the bar open in seconds. All price and volume fields use exact decimal
// arithmetic so cumulative P&L never accumulates binary rounding error.
type Candle struct {
	Symbol    string          `csv:"symbol" yaml:"symbol"`
	Timestamp int64           `csv:"timestamp" yaml:"timestamp"`
	Open      decimal.Decimal `csv:"open" yaml:"open"`
	High      decimal.Decimal `csv:"high" yaml:"high"`
	Low       decimal.Decimal `csv:"low" yaml:"low"`
	Close     decimal.Decimal `csv:"close" yaml:"close"`
	Volume    decimal.Decimal `csv:"volume" yaml:"volume"`
	Interval  Interval        `csv:"interval" yaml:"interval"`
}
