package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

const (
	defaultStochasticKPeriod = 14
	defaultStochasticDPeriod = 3
)

var (
	defaultStochasticOversold   = decimal.NewFromInt(20)
	defaultStochasticOverbought = decimal.NewFromInt(80)
	midRange                    = decimal.NewFromInt(50)
	hundredPercent              = decimal.NewFromInt(100)
)

// Stochastic trades %K/%D crossovers at the extremes of the oscillator:
// a bullish cross while %K is below the oversold level buys, a bearish
// cross while %K is above the overbought level sells. Crosses in the middle
// of the range are ignored.
type Stochastic struct {
	kPeriod    int
	dPeriod    int
	oversold   decimal.Decimal
	overbought decimal.Decimal
}

// NewStochastic builds a stochastic oscillator strategy. Zero periods take
// the 14/3 defaults, zero thresholds the 20/80 defaults.
func NewStochastic(kPeriod, dPeriod int, oversold, overbought decimal.Decimal) (*Stochastic, error) {
	if kPeriod == 0 {
		kPeriod = defaultStochasticKPeriod
	}

	if dPeriod == 0 {
		dPeriod = defaultStochasticDPeriod
	}

	if oversold.IsZero() && overbought.IsZero() {
		oversold = defaultStochasticOversold
		overbought = defaultStochasticOverbought
	}

	if kPeriod < 0 || dPeriod < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"stochastic periods must be positive, got k=%d d=%d", kPeriod, dPeriod)
	}

	if !oversold.IsPositive() || overbought.GreaterThanOrEqual(hundredPercent) || oversold.GreaterThanOrEqual(overbought) {
		return nil, errors.Newf(errors.ErrCodeInvalidThreshold,
			"stochastic thresholds must satisfy 0 < oversold < overbought < 100, got %s/%s", oversold, overbought)
	}

	return &Stochastic{
		kPeriod:    kPeriod,
		dPeriod:    dPeriod,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

func (s *Stochastic) Name() string {
	return string(TypeStochastic)
}

func (s *Stochastic) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)

	// %K needs kPeriod bars, %D needs dPeriod %K values on top.
	warmup := s.kPeriod + s.dPeriod
	if len(series) < warmup {
		return noSignal()
	}

	currK := s.percentK(series, len(series)-1)
	currD := s.percentD(series, len(series)-1)

	// The very first evaluable bar has no oscillator state behind it; both
	// previous values are taken as zero, matching a cold start.
	prevK := decimal.Zero
	prevD := decimal.Zero

	if len(series) > warmup {
		prevK = s.percentK(series, len(series)-2)
		prevD = s.percentD(series, len(series)-2)
	}

	if prevK.LessThanOrEqual(prevD) && currK.GreaterThan(currD) && currK.LessThan(s.oversold) {
		return buy(candle.Symbol, fmt.Sprintf("%%K %s crossed above %%D %s in oversold zone", currK.Round(2), currD.Round(2)))
	}

	if prevK.GreaterThanOrEqual(prevD) && currK.LessThan(currD) && currK.GreaterThan(s.overbought) {
		return sell(candle.Symbol, fmt.Sprintf("%%K %s crossed below %%D %s in overbought zone", currK.Round(2), currD.Round(2)))
	}

	return noSignal()
}

// percentK computes %K at bar i over the kPeriod bars ending there. A flat
// range pins the oscillator to 50.
func (s *Stochastic) percentK(series []types.Candle, i int) decimal.Decimal {
	window := series[i+1-s.kPeriod : i+1]
	highest := window[0].High
	lowest := window[0].Low

	for _, c := range window[1:] {
		highest = decimal.Max(highest, c.High)
		lowest = decimal.Min(lowest, c.Low)
	}

	span := highest.Sub(lowest)
	if span.IsZero() {
		return midRange
	}

	return series[i].Close.Sub(lowest).Div(span).Mul(hundredPercent)
}

// percentD is the simple average of the last dPeriod %K values ending at bar i.
func (s *Stochastic) percentD(series []types.Candle, i int) decimal.Decimal {
	sum := decimal.Zero
	for j := i - s.dPeriod + 1; j <= i; j++ {
		sum = sum.Add(s.percentK(series, j))
	}

	return sum.Div(decimal.NewFromInt(int64(s.dPeriod)))
}
