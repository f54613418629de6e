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
	defaultSMAShortPeriod = 20
	defaultSMALongPeriod  = 50
	defaultEMAShortPeriod = 12
	defaultEMALongPeriod  = 26
)

// movingAverage computes an average of close prices over the trailing window.
type movingAverage func(candles []types.Candle, period int) (decimal.Decimal, error)

// Crossover emits BUY when the short average crosses above the long average
// and SELL when it crosses back below. The comparison uses the previous bar
// and the current bar, so a signal fires exactly once per cross.
type Crossover struct {
	name        string
	shortPeriod int
	longPeriod  int
	average     movingAverage
}

// NewSMACrossover builds a simple moving average crossover strategy.
// Zero periods take the 20/50 defaults.
func NewSMACrossover(shortPeriod, longPeriod int) (*Crossover, error) {
	return newCrossover(TypeSMACrossover, shortPeriod, longPeriod, defaultSMAShortPeriod, defaultSMALongPeriod, indicator.SMA)
}

// NewEMACrossover builds an exponential moving average crossover strategy.
// Zero periods take the 12/26 defaults.
func NewEMACrossover(shortPeriod, longPeriod int) (*Crossover, error) {
	return newCrossover(TypeEMACrossover, shortPeriod, longPeriod, defaultEMAShortPeriod, defaultEMALongPeriod, indicator.EMA)
}

func newCrossover(t Type, shortPeriod, longPeriod, defaultShort, defaultLong int, average movingAverage) (*Crossover, error) {
	if shortPeriod == 0 {
		shortPeriod = defaultShort
	}

	if longPeriod == 0 {
		longPeriod = defaultLong
	}

	if shortPeriod <= 0 || longPeriod <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "%s periods must be positive, got %d/%d", t, shortPeriod, longPeriod)
	}

	if shortPeriod >= longPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "%s short period %d must be below long period %d", t, shortPeriod, longPeriod)
	}

	return &Crossover{
		name:        string(t),
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		average:     average,
	}, nil
}

func (s *Crossover) Name() string {
	return s.name
}

func (s *Crossover) OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal] {
	series := withCurrent(history, candle)

	// One extra candle so both the previous and current averages exist.
	if len(series) < s.longPeriod+1 {
		return noSignal()
	}

	prevShort, err := s.average(history, s.shortPeriod)
	if err != nil {
		return noSignal()
	}

	prevLong, err := s.average(history, s.longPeriod)
	if err != nil {
		return noSignal()
	}

	currShort, err := s.average(series, s.shortPeriod)
	if err != nil {
		return noSignal()
	}

	currLong, err := s.average(series, s.longPeriod)
	if err != nil {
		return noSignal()
	}

	if prevShort.LessThanOrEqual(prevLong) && currShort.GreaterThan(currLong) {
		return buy(candle.Symbol, fmt.Sprintf("%s(%d) crossed above %s(%d)", s.name, s.shortPeriod, s.name, s.longPeriod))
	}

	if prevShort.GreaterThanOrEqual(prevLong) && currShort.LessThan(currLong) {
		return sell(candle.Symbol, fmt.Sprintf("%s(%d) crossed below %s(%d)", s.name, s.shortPeriod, s.name, s.longPeriod))
	}

	return noSignal()
}
