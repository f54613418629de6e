// Package portfolio implements the position state machines driven by the
// backtest engines. The single-asset Portfolio is the frictionless baseline:
// it deploys all capital on entry and applies no fees or slippage. The
// MultiAssetPortfolio is the realistic variant with per-symbol positions,
// shared capital, and the full execution cost model. The asymmetry is
// deliberate; do not unify the two.
package portfolio

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
)

// Portfolio tracks capital, at most one open long position, and the ledger
// of completed trades for a single-asset backtest.
type Portfolio struct {
	capital  decimal.Decimal
	position optional.Option[types.Position]
	trades   []types.Trade
}

// NewPortfolio creates a portfolio with the given starting capital.
func NewPortfolio(initialCapital decimal.Decimal) *Portfolio {
	return &Portfolio{
		capital:  initialCapital,
		position: optional.None[types.Position](),
		trades:   nil,
	}
}

// Capital returns the currently available capital.
func (p *Portfolio) Capital() decimal.Decimal {
	return p.capital
}

// Position returns the open position, if any.
func (p *Portfolio) Position() optional.Option[types.Position] {
	return p.position
}

// Trades returns a copy of the completed trade ledger in close order.
func (p *Portfolio) Trades() []types.Trade {
	trades := make([]types.Trade, len(p.trades))
	copy(trades, p.trades)

	return trades
}

// ProcessSignal acts on a signal at the given price and time. A BUY while
// flat opens a position with all available capital; a SELL while long
// closes it. Duplicate signals are silently ignored.
func (p *Portfolio) ProcessSignal(signal types.Signal, price decimal.Decimal, timestamp int64) optional.Option[types.Trade] {
	if signal.Side == types.SideBuy && p.position.IsNone() {
		p.openPosition(signal.Symbol, price, timestamp)
		return optional.None[types.Trade]()
	}

	if signal.Side == types.SideSell && p.position.IsSome() {
		return optional.Some(p.closePosition(price, timestamp))
	}

	return optional.None[types.Trade]()
}

// ForceClose closes any open position at the given price, typically at the
// end of a run so the final trade is not excluded from metrics. Calling it
// again is a no-op.
func (p *Portfolio) ForceClose(price decimal.Decimal, timestamp int64) optional.Option[types.Trade] {
	if p.position.IsNone() {
		return optional.None[types.Trade]()
	}

	return optional.Some(p.closePosition(price, timestamp))
}

func (p *Portfolio) openPosition(symbol string, price decimal.Decimal, timestamp int64) {
	if !price.IsPositive() {
		return
	}

	quantity := p.capital.Div(price)

	p.position = optional.Some(types.Position{
		Symbol:     symbol,
		Side:       types.SideBuy,
		Quantity:   quantity,
		EntryPrice: price,
		EntryTime:  timestamp,
	})
	p.capital = decimal.Zero
}

func (p *Portfolio) closePosition(price decimal.Decimal, timestamp int64) types.Trade {
	position := p.position.Unwrap()

	trade := position.Close(price, timestamp, decimal.Zero, decimal.Zero)

	p.capital = position.Quantity.Mul(price)
	p.position = optional.None[types.Position]()
	p.trades = append(p.trades, trade)

	return trade
}
