// Package execution provides the pure cost and sizing primitives shared by
// the portfolio variants: slippage application, fee-adjusted allocation with
// optional ATR-based volatility sizing, and stop-loss/take-profit trigger
// evaluation. Nothing in this package holds state.
package execution

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/indicator"
	"github.com/quantlab-trading/backtester/internal/types"
)

var one = decimal.NewFromInt(1)

// ApplyEntrySlippage worsens an entry fill upward: price * (1 + pct).
// The model is direction agnostic; entries always pay up.
func ApplyEntrySlippage(price, slippagePct decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Add(slippagePct))
}

// ApplyExitSlippage worsens an exit fill downward: price * (1 - pct).
func ApplyExitSlippage(price, slippagePct decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(slippagePct))
}

// ComputeAllocation computes the capital committed to a new position, the
// entry fee portion, and the resulting quantity.
//
// The allocation starts at capital * position_size_pct. When volatility
// sizing is enabled and history covers at least atr_period+1 candles, the
// allocation is reduced so that a one-ATR move risks approximately
// target_risk_pct of capital, still capped by position_size_pct. A zero ATR
// (flat market) falls back to the cap. A non-positive price yields all zeros.
func ComputeAllocation(capital, price decimal.Decimal, cfg ExecutionConfig, history []types.Candle) (allocation, entryFee, quantity decimal.Decimal) {
	maxAvailable := capital.Mul(cfg.PositionSizePct)

	available := maxAvailable

	if cfg.VolatilitySizing && len(history) >= cfg.ATRPeriod+1 {
		atr, err := indicator.ATR(history, cfg.ATRPeriod)
		if err == nil && atr.IsPositive() {
			riskBudget := capital.Mul(cfg.TargetRiskPct)
			volQuantity := riskBudget.Div(atr)
			volAllocation := volQuantity.Mul(price)
			available = decimal.Min(volAllocation, maxAvailable)
		}
	}

	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	entryFee = available.Mul(cfg.TakerFeePct)
	quantity = available.Sub(entryFee).Div(price)

	return available, entryFee, quantity
}

// CheckRiskTriggers evaluates stop-loss and take-profit levels against a
// candle. For a long position the stop fires on the low and the take-profit
// on the high; mirrored for a short. When both levels are breached by the
// same candle the stop-loss wins: the intraday path is unknown from OHLC
// alone, so the conservative exit is assumed. The returned price is the
// exact trigger level, not the candle extreme.
func CheckRiskTriggers(candle types.Candle, entryPrice decimal.Decimal, risk RiskConfig, side types.Side) optional.Option[decimal.Decimal] {
	if side == types.SideSell {
		if risk.StopLossPct.IsSome() {
			stopPrice := entryPrice.Mul(one.Add(risk.StopLossPct.Unwrap()))
			if candle.High.GreaterThanOrEqual(stopPrice) {
				return optional.Some(stopPrice)
			}
		}

		if risk.TakeProfitPct.IsSome() {
			takePrice := entryPrice.Mul(one.Sub(risk.TakeProfitPct.Unwrap()))
			if candle.Low.LessThanOrEqual(takePrice) {
				return optional.Some(takePrice)
			}
		}

		return optional.None[decimal.Decimal]()
	}

	if risk.StopLossPct.IsSome() {
		stopPrice := entryPrice.Mul(one.Sub(risk.StopLossPct.Unwrap()))
		if candle.Low.LessThanOrEqual(stopPrice) {
			return optional.Some(stopPrice)
		}
	}

	if risk.TakeProfitPct.IsSome() {
		takePrice := entryPrice.Mul(one.Add(risk.TakeProfitPct.Unwrap()))
		if candle.High.GreaterThanOrEqual(takePrice) {
			return optional.Some(takePrice)
		}
	}

	return optional.None[decimal.Decimal]()
}
