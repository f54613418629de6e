package types

import (
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/pkg/errors"
)

// Side is the direction of a signal or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a trade instruction emitted by a strategy. Strength grades the
// conviction of the signal on a 0..1 scale.
type Signal struct {
	Side     Side
	Symbol   string
	Strength decimal.Decimal
	Reason   string
}

// NewSignal builds a Signal, rejecting a strength outside [0, 1]. Out of
// range values are an error, never clamped.
func NewSignal(side Side, symbol string, strength decimal.Decimal, reason string) (Signal, error) {
	if strength.IsNegative() || strength.GreaterThan(decimal.NewFromInt(1)) {
		return Signal{}, errors.Newf(errors.ErrCodeInvalidStrength, "strength must be between 0 and 1, got %s", strength)
	}

	return Signal{
		Side:     side,
		Symbol:   symbol,
		Strength: strength,
		Reason:   reason,
	}, nil
}
