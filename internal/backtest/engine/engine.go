// Package engine drives backtests: it pulls candles from a provider, feeds
// them to a strategy, routes signals into a portfolio, and reports the
// completed run as a BacktestResult. The single-asset Engine uses the
// frictionless portfolio; MultiAssetEngine applies the full cost model.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/backtest/metrics"
	"github.com/quantlab-trading/backtester/internal/backtest/portfolio"
	"github.com/quantlab-trading/backtester/internal/logger"
	"github.com/quantlab-trading/backtester/internal/strategy"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/provider"
)

// OnProgress is called after each processed candle with the current index
// and the total count.
type OnProgress func(current, total int)

// Engine runs a strategy over one symbol with the frictionless single-asset
// portfolio. Risk triggers are evaluated before the strategy on every bar
// when a risk configuration is present.
type Engine struct {
	provider       provider.CandleProvider
	strategy       strategy.TradingStrategy
	initialCapital decimal.Decimal
	risk           optional.Option[execution.RiskConfig]
	logger         *logger.Logger
	onProgress     optional.Option[OnProgress]
}

// NewEngine creates a single-asset engine. The risk configuration is
// optional; None disables stop-loss and take-profit handling entirely.
func NewEngine(p provider.CandleProvider, s strategy.TradingStrategy, initialCapital decimal.Decimal, risk optional.Option[execution.RiskConfig], log *logger.Logger) *Engine {
	return &Engine{
		provider:       p,
		strategy:       s,
		initialCapital: initialCapital,
		risk:           risk,
		logger:         log,
		onProgress:     optional.None[OnProgress](),
	}
}

// SetOnProgress registers a per-candle progress callback.
func (e *Engine) SetOnProgress(fn OnProgress) {
	e.onProgress = optional.Some(fn)
}

// Run executes the backtest over [startTime, endTime]. An empty candle range
// is not an error: it produces a degenerate result with zero trades and the
// initial capital intact.
func (e *Engine) Run(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) (types.BacktestResult, error) {
	candles, err := e.provider.GetCandles(ctx, symbol, interval, startTime, endTime)
	if err != nil {
		return types.BacktestResult{}, err
	}

	e.logger.Info("starting backtest",
		zap.String("strategy", e.strategy.Name()),
		zap.String("symbol", symbol),
		zap.Int("candles", len(candles)),
	)

	pf := portfolio.NewPortfolio(e.initialCapital)
	history := make([]types.Candle, 0, len(candles))

	for i, candle := range candles {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{}, err
		}

		// Risk exits act on the candle extremes before the strategy sees
		// the bar. A bar that exits on risk is consumed by the exit: the
		// strategy is not consulted until the next bar.
		exited := false
		if e.risk.IsSome() {
			exited = e.applyRiskTriggers(pf, candle)
		}

		if !exited {
			if signal := e.strategy.OnCandle(candle, history); signal.IsSome() {
				pf.ProcessSignal(signal.Unwrap(), candle.Close, candle.Timestamp)
			}
		}

		history = append(history, candle)

		if e.onProgress.IsSome() {
			e.onProgress.Unwrap()(i+1, len(candles))
		}
	}

	if len(candles) > 0 {
		last := candles[len(candles)-1]
		pf.ForceClose(last.Close, last.Timestamp)
	}

	result := types.BacktestResult{
		ID:             uuid.New().String(),
		StrategyName:   e.strategy.Name(),
		Symbol:         symbol,
		Interval:       interval,
		InitialCapital: e.initialCapital,
		FinalCapital:   pf.Capital(),
		Trades:         pf.Trades(),
		Metrics:        metrics.Calculate(e.initialCapital, pf.Capital(), pf.Trades()),
	}

	e.logger.Info("backtest finished",
		zap.String("id", result.ID),
		zap.Int("trades", len(result.Trades)),
		zap.String("final_capital", result.FinalCapital.String()),
	)

	return result, nil
}

// applyRiskTriggers reports whether a risk exit closed the open position on
// this candle.
func (e *Engine) applyRiskTriggers(pf *portfolio.Portfolio, candle types.Candle) bool {
	position := pf.Position()
	if position.IsNone() {
		return false
	}

	open := position.Unwrap()

	exit := execution.CheckRiskTriggers(candle, open.EntryPrice, e.risk.Unwrap(), open.Side)
	if exit.IsNone() {
		return false
	}

	pf.ForceClose(exit.Unwrap(), candle.Timestamp)

	return true
}
