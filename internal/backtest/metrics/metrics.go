// Package metrics computes performance statistics over a completed trade
// ledger. Intermediate sums use decimal arithmetic; the results are reported
// as float64 because some metrics are legitimately infinite.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
)

// TotalReturn is the fractional change from initial to final capital.
// A zero initial capital yields 0 rather than a division error.
func TotalReturn(initialCapital, finalCapital decimal.Decimal) float64 {
	if initialCapital.IsZero() {
		return 0
	}

	return finalCapital.Sub(initialCapital).Div(initialCapital).InexactFloat64()
}

// WinRate is the fraction of trades with strictly positive net PnL.
func WinRate(trades []types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	wins := 0
	for _, trade := range trades {
		if trade.PnL().IsPositive() {
			wins++
		}
	}

	return float64(wins) / float64(len(trades))
}

// ProfitFactor is gross profit divided by gross loss. A ledger with profit
// but no losing trades returns +Inf; a ledger with neither returns 0.
func ProfitFactor(trades []types.Trade) float64 {
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero

	for _, trade := range trades {
		pnl := trade.PnL()
		if pnl.IsPositive() {
			grossProfit = grossProfit.Add(pnl)
		} else {
			grossLoss = grossLoss.Add(pnl.Abs())
		}
	}

	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return math.Inf(1)
		}

		return 0
	}

	return grossProfit.Div(grossLoss).InexactFloat64()
}

// MaxDrawdown walks the equity curve implied by cumulative trade PnL in
// ledger order and returns the largest peak-to-trough decline as a positive
// fraction of the peak.
func MaxDrawdown(initialCapital decimal.Decimal, trades []types.Trade) float64 {
	equity := initialCapital
	peak := initialCapital
	maxDrawdown := decimal.Zero

	for _, trade := range trades {
		equity = equity.Add(trade.PnL())

		if equity.GreaterThan(peak) {
			peak = equity
			continue
		}

		if !peak.IsPositive() {
			continue
		}

		drawdown := peak.Sub(equity).Div(peak)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown.InexactFloat64()
}

// SharpeRatio is the mean per-trade return divided by the sample standard
// deviation (n-1) of those returns. It needs at least two trades and a
// non-zero dispersion; otherwise it is 0.
func SharpeRatio(trades []types.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}

	returns := make([]decimal.Decimal, len(trades))
	sum := decimal.Zero
	for i, trade := range trades {
		returns[i] = trade.PnLPct()
		sum = sum.Add(returns[i])
	}

	n := decimal.NewFromInt(int64(len(returns)))
	mean := sum.Div(n)

	sumSquares := decimal.Zero
	for _, r := range returns {
		diff := r.Sub(mean)
		sumSquares = sumSquares.Add(diff.Mul(diff))
	}

	variance := sumSquares.Div(n.Sub(decimal.NewFromInt(1)))
	std := math.Sqrt(variance.InexactFloat64())
	if std == 0 {
		return 0
	}

	return mean.InexactFloat64() / std
}

// TotalFees sums the entry and exit fees across the ledger.
func TotalFees(trades []types.Trade) float64 {
	total := decimal.Zero
	for _, trade := range trades {
		total = total.Add(trade.EntryFee).Add(trade.ExitFee)
	}

	return total.InexactFloat64()
}

// Calculate computes the full metric set for a finished run. An empty ledger
// produces zeros, never an error, so degenerate runs still report cleanly.
func Calculate(initialCapital, finalCapital decimal.Decimal, trades []types.Trade) map[string]float64 {
	return map[string]float64{
		"total_return":  TotalReturn(initialCapital, finalCapital),
		"win_rate":      WinRate(trades),
		"profit_factor": ProfitFactor(trades),
		"max_drawdown":  MaxDrawdown(initialCapital, trades),
		"sharpe_ratio":  SharpeRatio(trades),
		"total_fees":    TotalFees(trades),
		"total_trades":  float64(len(trades)),
	}
}
