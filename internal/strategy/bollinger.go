package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/indicator"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const defaultBollingerPeriod = 20

var defaultNumStd = decimal.NewFromInt(2)

// Bollinger buys when the close crosses below the lower band and sells when
// it crosses above the upper band. Crossing, not sitting: a close that stays
// outside a band fires only on the bar it moved outside.
type Bollinger struct {
	period int
	numStd decimal.Decimal
}

// NewBollinger builds a Bollinger band reversion strategy. A zero period
// defaults to 20, a zero band width to 2 standard deviations.
func NewBollinger(period int, numStd decimal.Decimal) (*Bollinger, error) {
	if period == 0 {
		period = defaultBollingerPeriod
	}

	if numStd.IsZero() {
		numStd = defaultNumStd
	}

	if period < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "bollinger period must be positive, got %d", period)
	}

	if numStd.IsNegative() {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold, "bollinger num_std must be positive, got %s", numStd)
	}

	return &Bollinger{
		period: period,
		numStd: numStd,
	}, nil
}

func (s *Bollinger) Name() string {
	return string(TypeBollinger)
}

func (s *Bollinger) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)
	if len(series) < s.period+1 {
		return noSignal()
	}

	prevLower, prevUpper, err := s.bands(history)
	if err != nil {
		return noSignal()
	}

	lower, upper, err := s.bands(series)
	if err != nil {
		return noSignal()
	}

	prevClose := history[len(history)-1].Close

	if prevClose.GreaterThanOrEqual(prevLower) && candle.Close.LessThan(lower) {
		return buy(candle.Symbol, fmt.Sprintf("close %s crossed below lower band %s", candle.Close, lower.Round(4)))
	}

	if prevClose.LessThanOrEqual(prevUpper) && candle.Close.GreaterThan(upper) {
		return sell(candle.Symbol, fmt.Sprintf("close %s crossed above upper band %s", candle.Close, upper.Round(4)))
	}

	return noSignal()
}

func (s *Bollinger) bands(candles []types.Candle) (lower, upper decimal.Decimal, err error) {
	middle, err := indicator.SMA(candles, s.period)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	std, err := indicator.RollingStd(candles, s.period)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	width := std.Mul(s.numStd)

	return middle.Sub(width), middle.Add(width), nil
}
