package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/indicator"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const (
	defaultMeanReversionPeriod = 20
	minMeanReversionPeriod     = 2
)

var defaultZThreshold = decimal.NewFromInt(2)

// MeanReversion trades z-score extremes of the close against its rolling
// mean. A z-score crossing below -threshold buys, crossing above +threshold
// sells. Crossing, not sitting: staying beyond the threshold fires once.
type MeanReversion struct {
	period     int
	zThreshold decimal.Decimal
}

// NewMeanReversion builds a z-score mean reversion strategy. A zero period
// defaults to 20, a zero threshold to 2 standard deviations.
func NewMeanReversion(period int, zThreshold decimal.Decimal) (*MeanReversion, error) {
	if period == 0 {
		period = defaultMeanReversionPeriod
	}

	if zThreshold.IsZero() {
		zThreshold = defaultZThreshold
	}

	if period < minMeanReversionPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"mean reversion period must be at least %d, got %d", minMeanReversionPeriod, period)
	}

	if !zThreshold.IsPositive() {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold,
			"mean reversion z_threshold must be positive, got %s", zThreshold)
	}

	return &MeanReversion{
		period:     period,
		zThreshold: zThreshold,
	}, nil
}

func (s *MeanReversion) Name() string {
	return string(TypeMeanRevert)
}

func (s *MeanReversion) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)
	if len(series) < s.period+1 {
		return noSignal()
	}

	currZ, err := s.zScore(series)
	if err != nil {
		return noSignal()
	}

	prevZ, err := s.zScore(history)
	if err != nil {
		return noSignal()
	}

	threshold := s.zThreshold

	if prevZ.GreaterThanOrEqual(threshold.Neg()) && currZ.LessThan(threshold.Neg()) {
		return buy(candle.Symbol, fmt.Sprintf("z-score %s dropped below -%s", currZ.Round(2), threshold))
	}

	if prevZ.LessThanOrEqual(threshold) && currZ.GreaterThan(threshold) {
		return sell(candle.Symbol, fmt.Sprintf("z-score %s rose above %s", currZ.Round(2), threshold))
	}

	return noSignal()
}

// zScore measures how far the last close sits from the rolling mean, in
// rolling standard deviations. A flat window has a z-score of zero.
func (s *MeanReversion) zScore(candles []types.Candle) (decimal.Decimal, error) {
	mean, err := indicator.SMA(candles, s.period)
	if err != nil {
		return decimal.Zero, err
	}

	std, err := indicator.RollingStd(candles, s.period)
	if err != nil {
		return decimal.Zero, err
	}

	if std.IsZero() {
		return decimal.Zero, nil
	}

	return candles[len(candles)-1].Close.Sub(mean).Div(std), nil
}
