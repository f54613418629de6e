package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const (
	defaultVWAPPeriod = 20
	minVWAPPeriod     = 2
)

// VWAPStrategy reverts toward the rolling volume-weighted average price:
// a close crossing below the VWAP buys, a close crossing above it sells.
// Bars with no traded volume in the window produce no signal.
type VWAPStrategy struct {
	period int
}

// NewVWAP builds a VWAP reversion strategy. A zero period defaults to 20;
// the window needs at least two bars to define a cross.
func NewVWAP(period int) (*VWAPStrategy, error) {
	if period == 0 {
		period = defaultVWAPPeriod
	}

	if period < minVWAPPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "vwap period must be at least %d, got %d", minVWAPPeriod, period)
	}

	return &VWAPStrategy{period: period}, nil
}

func (s *VWAPStrategy) Name() string {
	return string(TypeVWAP)
}

func (s *VWAPStrategy) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)
	if len(series) < s.period+1 {
		return noSignal()
	}

	currVWAP, ok := rollingVWAP(series[len(series)-s.period:])
	if !ok {
		return noSignal()
	}

	prevVWAP, ok := rollingVWAP(series[len(series)-s.period-1 : len(series)-1])
	if !ok {
		return noSignal()
	}

	prevClose := history[len(history)-1].Close

	if prevClose.GreaterThanOrEqual(prevVWAP) && candle.Close.LessThan(currVWAP) {
		return buy(candle.Symbol, fmt.Sprintf("close %s crossed below vwap %s", candle.Close, currVWAP.Round(4)))
	}

	if prevClose.LessThanOrEqual(prevVWAP) && candle.Close.GreaterThan(currVWAP) {
		return sell(candle.Symbol, fmt.Sprintf("close %s crossed above vwap %s", candle.Close, currVWAP.Round(4)))
	}

	return noSignal()
}

// rollingVWAP is sum(close*volume)/sum(volume) over the window. A window
// with zero total volume has no defined VWAP.
func rollingVWAP(window []types.Candle) (decimal.Decimal, bool) {
	weighted := decimal.Zero
	volume := decimal.Zero

	for _, c := range window {
		weighted = weighted.Add(c.Close.Mul(c.Volume))
		volume = volume.Add(c.Volume)
	}

	if volume.IsZero() {
		return decimal.Zero, false
	}

	return weighted.Div(volume), true
}
