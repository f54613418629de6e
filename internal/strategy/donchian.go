package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const defaultDonchianPeriod = 20

// Donchian is a channel breakout strategy. The channel is the highest high
// and lowest low of the period bars before the current one; a close beyond
// either edge is a breakout. The current bar never widens its own channel.
type Donchian struct {
	period int
}

// NewDonchian builds a Donchian channel breakout strategy. A zero period
// defaults to 20.
func NewDonchian(period int) (*Donchian, error) {
	if period == 0 {
		period = defaultDonchianPeriod
	}

	if period < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "donchian period must be positive, got %d", period)
	}

	return &Donchian{period: period}, nil
}

func (s *Donchian) Name() string {
	return string(TypeDonchian)
}

func (s *Donchian) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	if len(history) < s.period {
		return noSignal()
	}

	window := history[len(history)-s.period:]
	upper := window[0].High
	lower := window[0].Low

	for _, c := range window[1:] {
		upper = decimal.Max(upper, c.High)
		lower = decimal.Min(lower, c.Low)
	}

	if candle.Close.GreaterThan(upper) {
		return buy(candle.Symbol, fmt.Sprintf("close %s broke above %d-bar high %s", candle.Close, s.period, upper))
	}

	if candle.Close.LessThan(lower) {
		return sell(candle.Symbol, fmt.Sprintf("close %s broke below %d-bar low %s", candle.Close, s.period, lower))
	}

	return noSignal()
}
