package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/indicator"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const defaultRSIPeriod = 14

var (
	defaultOversold   = decimal.NewFromInt(30)
	defaultOverbought = decimal.NewFromInt(70)
	maxRSI            = decimal.NewFromInt(100)
)

// RSIStrategy buys when the RSI drops below the oversold threshold and sells
// when it rises above the overbought threshold.
type RSIStrategy struct {
	period     int
	oversold   decimal.Decimal
	overbought decimal.Decimal
}

// NewRSI builds an RSI mean-reversion strategy. A zero period defaults to
// 14; zero thresholds default to 30/70.
func NewRSI(period int, oversold, overbought decimal.Decimal) (*RSIStrategy, error) {
	if period == 0 {
		period = defaultRSIPeriod
	}

	if oversold.IsZero() && overbought.IsZero() {
		oversold = defaultOversold
		overbought = defaultOverbought
	}

	if period < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "rsi period must be positive, got %d", period)
	}

	if oversold.IsNegative() || overbought.GreaterThan(maxRSI) || oversold.GreaterThanOrEqual(overbought) {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold,
			"rsi thresholds must satisfy 0 <= oversold < overbought <= 100, got %s/%s", oversold, overbought)
	}

	return &RSIStrategy{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

func (s *RSIStrategy) Name() string {
	return string(TypeRSI)
}

func (s *RSIStrategy) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	value, err := indicator.RSI(withCurrent(history, candle), s.period)
	if err != nil {
		return noSignal()
	}

	if value.LessThan(s.oversold) {
		return buy(candle.Symbol, fmt.Sprintf("rsi %s below oversold %s", value.Round(2), s.oversold))
	}

	if value.GreaterThan(s.overbought) {
		return sell(candle.Symbol, fmt.Sprintf("rsi %s above overbought %s", value.Round(2), s.overbought))
	}

	return noSignal()
}
