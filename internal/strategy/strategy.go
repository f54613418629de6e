// Package strategy defines the trading strategy interface and the built-in
// strategies that implement it. Strategies are pure observers: they look at
// candle history and may emit a signal, but they never touch portfolio state.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// TradingStrategy generates signals from candle data. OnCandle is called
// once per bar with the history of candles strictly before the current one;
// the current candle is never in history. Returning None means no action.
// Implementations must be deterministic given the same inputs.
type TradingStrategy interface {
	Name() string
	OnCandle(candle types.Candle, history []types.Candle) optional.Option[types.Signal]
}

// Type identifies a built-in strategy.
type Type string

const (
	TypeBuyAndHold   Type = "buy_and_hold"
	TypeSMACrossover Type = "sma_crossover"
	TypeEMACrossover Type = "ema_crossover"
	TypeRSI          Type = "rsi"
	TypeBollinger    Type = "bollinger"
	TypeMACD         Type = "macd"
	TypeDonchian     Type = "donchian"
	TypeStochastic   Type = "stochastic"
	TypeVWAP         Type = "vwap"
	TypeMeanRevert   Type = "mean_reversion"
)

// Types lists every built-in strategy type.
var Types = []Type{
	TypeBuyAndHold,
	TypeSMACrossover,
	TypeEMACrossover,
	TypeRSI,
	TypeBollinger,
	TypeMACD,
	TypeDonchian,
	TypeStochastic,
	TypeVWAP,
	TypeMeanRevert,
}

// Config selects a strategy type and carries its parameters. Zero-valued
// parameters take the conventional default for that strategy, so a config
// with only a type is always valid.
type Config struct {
	Type Type `yaml:"type" json:"type" validate:"required"`

	// Crossover parameters (sma_crossover, ema_crossover).
	ShortPeriod int `yaml:"short_period,omitempty" json:"short_period,omitempty"`
	LongPeriod  int `yaml:"long_period,omitempty" json:"long_period,omitempty"`

	// Windowed parameters (rsi, bollinger, donchian, vwap, mean_reversion).
	Period     int             `yaml:"period,omitempty" json:"period,omitempty"`
	Oversold   decimal.Decimal `yaml:"oversold,omitempty" json:"oversold,omitempty"`
	Overbought decimal.Decimal `yaml:"overbought,omitempty" json:"overbought,omitempty"`
	NumStd     decimal.Decimal `yaml:"num_std,omitempty" json:"num_std,omitempty"`

	// MACD parameters.
	FastPeriod   int `yaml:"fast_period,omitempty" json:"fast_period,omitempty"`
	SlowPeriod   int `yaml:"slow_period,omitempty" json:"slow_period,omitempty"`
	SignalPeriod int `yaml:"signal_period,omitempty" json:"signal_period,omitempty"`

	// Stochastic oscillator parameters.
	KPeriod int `yaml:"k_period,omitempty" json:"k_period,omitempty"`
	DPeriod int `yaml:"d_period,omitempty" json:"d_period,omitempty"`

	// Mean reversion parameters.
	ZThreshold decimal.Decimal `yaml:"z_threshold,omitempty" json:"z_threshold,omitempty"`
}

// New constructs the strategy described by the config, applying defaults and
// validating parameters. Unknown types are rejected with
// ErrCodeUnsupportedStrategy.
func New(cfg Config) (TradingStrategy, error) {
	switch cfg.Type {
	case TypeBuyAndHold:
		return NewBuyAndHold(), nil
	case TypeSMACrossover:
		return NewSMACrossover(cfg.ShortPeriod, cfg.LongPeriod)
	case TypeEMACrossover:
		return NewEMACrossover(cfg.ShortPeriod, cfg.LongPeriod)
	case TypeRSI:
		return NewRSI(cfg.Period, cfg.Oversold, cfg.Overbought)
	case TypeBollinger:
		return NewBollinger(cfg.Period, cfg.NumStd)
	case TypeMACD:
		return NewMACD(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod)
	case TypeDonchian:
		return NewDonchian(cfg.Period)
	case TypeStochastic:
		return NewStochastic(cfg.KPeriod, cfg.DPeriod, cfg.Oversold, cfg.Overbought)
	case TypeVWAP:
		return NewVWAP(cfg.Period)
	case TypeMeanRevert:
		return NewMeanReversion(cfg.Period, cfg.ZThreshold)
	}

	return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy type %q", cfg.Type)
}

// fullStrength is the signal strength emitted by the built-in strategies;
// they are binary by construction.
var fullStrength = decimal.NewFromInt(1)

func buy(symbol, reason string) optional.Option[types.Signal] {
	return optional.Some(types.Signal{
		Side:     types.SideBuy,
		Symbol:   symbol,
		Strength: fullStrength,
		Reason:   reason,
	})
}

func sell(symbol, reason string) optional.Option[types.Signal] {
	return optional.Some(types.Signal{
		Side:     types.SideSell,
		Symbol:   symbol,
		Strength: fullStrength,
		Reason:   reason,
	})
}

func noSignal() optional.Option[types.Signal] {
	return optional.None[types.Signal]()
}

// withCurrent extends history with the current candle without touching the
// caller's backing array. Indicator math runs over the extended series.
func withCurrent(history []types.Candle, candle types.Candle) []types.Candle {
	return append(history[:len(history):len(history)], candle)
}
