package types

import (
	"github.com/shopspring/decimal"
)

// Position is an open holding owned by the portfolio that created it.
// Closing it consumes the position and produces a Trade.
type Position struct {
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	EntryTime  int64
}

// Close converts the position into an immutable Trade at the given exit
// price and time, attaching the fees paid on each leg.
func (p Position) Close(exitPrice decimal.Decimal, exitTime int64, entryFee, exitFee decimal.Decimal) Trade {
	return Trade{
		Symbol:     p.Symbol,
		Side:       p.Side,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		EntryTime:  p.EntryTime,
		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
		EntryFee:   entryFee,
		ExitFee:    exitFee,
	}
}

// Trade is a completed round trip. Once appended to a portfolio ledger it is
// never mutated or removed.
type Trade struct {
	Symbol     string          `yaml:"symbol"`
	Side       Side            `yaml:"side"`
	Quantity   decimal.Decimal `yaml:"quantity"`
	EntryPrice decimal.Decimal `yaml:"entry_price"`
	EntryTime  int64           `yaml:"entry_time"`
	ExitPrice  decimal.Decimal `yaml:"exit_price"`
	ExitTime   int64           `yaml:"exit_time"`
	EntryFee   decimal.Decimal `yaml:"entry_fee"`
	ExitFee    decimal.Decimal `yaml:"exit_fee"`
}

// PnL is the absolute profit or loss of the trade net of both fees.
// A short trade profits when the exit price is below the entry price.
func (t Trade) PnL() decimal.Decimal {
	fees := t.EntryFee.Add(t.ExitFee)

	if t.Side == SideSell {
		return t.EntryPrice.Sub(t.ExitPrice).Mul(t.Quantity).Sub(fees)
	}

	return t.ExitPrice.Sub(t.EntryPrice).Mul(t.Quantity).Sub(fees)
}

// PnLPct is the trade return relative to the entry notional.
func (t Trade) PnLPct() decimal.Decimal {
	notional := t.EntryPrice.Mul(t.Quantity)
	if notional.IsZero() {
		return decimal.Zero
	}

	return t.PnL().Div(notional)
}
