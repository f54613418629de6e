package portfolio

import (
	"sort"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/types"
)

var one = decimal.NewFromInt(1)

// MultiAssetPortfolio tracks a shared capital pool and at most one open long
// position per symbol. Unlike the single-asset Portfolio it applies the full
// execution cost model: entry and exit slippage, taker and maker fees, and
// position sizing from initial capital so every position gets the same
// nominal allocation regardless of open order.
type MultiAssetPortfolio struct {
	initialCapital decimal.Decimal
	capital        decimal.Decimal
	exec           execution.ExecutionConfig
	positions      map[string]types.Position
	entryFees      map[string]decimal.Decimal
	trades         []types.Trade
	breaker        circuitBreaker
}

// NewMultiAssetPortfolio creates a portfolio with the given starting capital
// and execution configuration. The risk configuration only feeds the
// drawdown circuit breaker here; stop-loss and take-profit triggers are
// evaluated by the engine against candle extremes.
func NewMultiAssetPortfolio(initialCapital decimal.Decimal, exec execution.ExecutionConfig, risk execution.RiskConfig) (*MultiAssetPortfolio, error) {
	if err := exec.Validate(); err != nil {
		return nil, err
	}

	return &MultiAssetPortfolio{
		initialCapital: initialCapital,
		capital:        initialCapital,
		exec:           exec,
		positions:      make(map[string]types.Position),
		entryFees:      make(map[string]decimal.Decimal),
		breaker:        newCircuitBreaker(risk.CircuitBreakerPct, risk.RecoveryPct, initialCapital),
	}, nil
}

// Capital returns the uncommitted cash balance.
func (p *MultiAssetPortfolio) Capital() decimal.Decimal {
	return p.capital
}

// Position returns the open position for a symbol, if any.
func (p *MultiAssetPortfolio) Position(symbol string) optional.Option[types.Position] {
	position, ok := p.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(position)
}

// OpenSymbols returns the symbols with open positions in sorted order.
func (p *MultiAssetPortfolio) OpenSymbols() []string {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Trades returns a copy of the completed trade ledger in close order.
func (p *MultiAssetPortfolio) Trades() []types.Trade {
	trades := make([]types.Trade, len(p.trades))
	copy(trades, p.trades)

	return trades
}

// Halted reports whether the circuit breaker is blocking new entries.
func (p *MultiAssetPortfolio) Halted() bool {
	return p.breaker.halted
}

// TotalEquity values the portfolio at the given mark prices: cash plus the
// mark value of every open position. Positions without a mark price
// contribute nothing.
func (p *MultiAssetPortfolio) TotalEquity(prices map[string]decimal.Decimal) decimal.Decimal {
	equity := p.capital
	for symbol, position := range p.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}

		equity = equity.Add(position.Quantity.Mul(price))
	}

	return equity
}

// UpdateEquity marks the portfolio to the given prices and advances the
// circuit breaker state. Engines call this once per bar, before any signal
// on that bar is considered.
func (p *MultiAssetPortfolio) UpdateEquity(prices map[string]decimal.Decimal) {
	p.breaker.update(p.TotalEquity(prices))
}

// ProcessSignal acts on a signal at the given price and time. A BUY opens a
// position sized from initial capital, priced with entry slippage and
// charged the taker fee. The signal is ignored when a position for the
// symbol is already open, the circuit breaker is halted, or the allocation
// exceeds remaining capital. A SELL closes the symbol's position with exit
// slippage and the maker fee. The candle history is consulted only when
// volatility sizing is enabled.
func (p *MultiAssetPortfolio) ProcessSignal(signal types.Signal, price decimal.Decimal, timestamp int64, history []types.Candle) optional.Option[types.Trade] {
	switch signal.Side {
	case types.SideBuy:
		p.open(signal.Symbol, price, timestamp, history)
		return optional.None[types.Trade]()
	case types.SideSell:
		return p.close(signal.Symbol, price, timestamp)
	}

	return optional.None[types.Trade]()
}

// ForceCloseAll closes every open position at its mark price, in sorted
// symbol order so the resulting ledger is deterministic. Symbols without a
// mark price stay open.
func (p *MultiAssetPortfolio) ForceCloseAll(prices map[string]decimal.Decimal, timestamp int64) []types.Trade {
	var closed []types.Trade

	for _, symbol := range p.OpenSymbols() {
		price, ok := prices[symbol]
		if !ok {
			continue
		}

		if trade := p.close(symbol, price, timestamp); trade.IsSome() {
			closed = append(closed, trade.Unwrap())
		}
	}

	return closed
}

func (p *MultiAssetPortfolio) open(symbol string, price decimal.Decimal, timestamp int64, history []types.Candle) {
	if p.breaker.halted {
		return
	}

	if _, exists := p.positions[symbol]; exists {
		return
	}

	fillPrice := execution.ApplyEntrySlippage(price, p.exec.SlippagePct)

	// Sizing from initial capital keeps allocations independent of how much
	// cash earlier entries have already consumed.
	allocation, entryFee, quantity := execution.ComputeAllocation(p.initialCapital, fillPrice, p.exec, history)
	if !quantity.IsPositive() {
		return
	}

	if allocation.GreaterThan(p.capital) {
		return
	}

	p.positions[symbol] = types.Position{
		Symbol:     symbol,
		Side:       types.SideBuy,
		Quantity:   quantity,
		EntryPrice: fillPrice,
		EntryTime:  timestamp,
	}
	p.entryFees[symbol] = entryFee
	p.capital = p.capital.Sub(allocation)
}

func (p *MultiAssetPortfolio) close(symbol string, price decimal.Decimal, timestamp int64) optional.Option[types.Trade] {
	position, ok := p.positions[symbol]
	if !ok {
		return optional.None[types.Trade]()
	}

	fillPrice := execution.ApplyExitSlippage(price, p.exec.SlippagePct)
	exitValue := position.Quantity.Mul(fillPrice)
	exitFee := exitValue.Mul(p.exec.MakerFeePct)

	trade := position.Close(fillPrice, timestamp, p.entryFees[symbol], exitFee)

	p.capital = p.capital.Add(exitValue).Sub(exitFee)
	delete(p.positions, symbol)
	delete(p.entryFees, symbol)
	p.trades = append(p.trades, trade)

	return optional.Some(trade)
}
