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
	defaultMACDFastPeriod   = 12
	defaultMACDSlowPeriod   = 26
	defaultMACDSignalPeriod = 9
)

// MACDStrategy buys when the MACD line crosses above its signal line and
// sells when it crosses below.
type MACDStrategy struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD builds a MACD crossover strategy. Zero periods take the 12/26/9
// defaults.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) (*MACDStrategy, error) {
	if fastPeriod == 0 {
		fastPeriod = defaultMACDFastPeriod
	}

	if slowPeriod == 0 {
		slowPeriod = defaultMACDSlowPeriod
	}

	if signalPeriod == 0 {
		signalPeriod = defaultMACDSignalPeriod
	}

	if fastPeriod < 0 || slowPeriod < 0 || signalPeriod < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd periods must be positive, got %d/%d/%d", fastPeriod, slowPeriod, signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd fast period %d must be below slow period %d", fastPeriod, slowPeriod)
	}

	return &MACDStrategy{
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}, nil
}

func (s *MACDStrategy) Name() string {
	return string(TypeMACD)
}

func (s *MACDStrategy) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)

	// The signal line needs signal_period MACD values, and cross detection
	// one more bar on top of that.
	if len(series) < s.slowPeriod+s.signalPeriod {
		return noSignal()
	}

	macdLine, signalLine := s.lines(series)
	if len(signalLine) < 2 {
		return noSignal()
	}

	offset := len(macdLine) - len(signalLine)
	prevDiff := macdLine[offset+len(signalLine)-2].Sub(signalLine[len(signalLine)-2])
	currDiff := macdLine[offset+len(signalLine)-1].Sub(signalLine[len(signalLine)-1])

	if !prevDiff.IsPositive() && currDiff.IsPositive() {
		return buy(candle.Symbol, fmt.Sprintf("macd(%d,%d) crossed above signal(%d)", s.fastPeriod, s.slowPeriod, s.signalPeriod))
	}

	if !prevDiff.IsNegative() && currDiff.IsNegative() {
		return sell(candle.Symbol, fmt.Sprintf("macd(%d,%d) crossed below signal(%d)", s.fastPeriod, s.slowPeriod, s.signalPeriod))
	}

	return noSignal()
}

// lines computes the MACD line aligned from the first index where the slow
// EMA exists, and the signal line over it. Length checks in OnCandle
// guarantee both EMASeries calls succeed.
func (s *MACDStrategy) lines(history []types.Candle) (macdLine, signalLine []decimal.Decimal) {
	closes := make([]decimal.Decimal, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}

	fastSeries, err := indicator.EMASeries(closes, s.fastPeriod)
	if err != nil {
		return nil, nil
	}

	slowSeries, err := indicator.EMASeries(closes, s.slowPeriod)
	if err != nil {
		return nil, nil
	}

	// fastSeries starts at index fastPeriod-1, slowSeries at slowPeriod-1.
	lead := s.slowPeriod - s.fastPeriod

	macdLine = make([]decimal.Decimal, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+lead].Sub(slowSeries[i])
	}

	signalLine, err = indicator.EMASeries(macdLine, s.signalPeriod)
	if err != nil {
		return macdLine, nil
	}

	return macdLine, signalLine
}
