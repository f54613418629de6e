package engine

import (
	"context"
	"sort"
	"strings"

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

// MultiAssetEngine runs one strategy across several symbols sharing a single
// capital pool. Candles from all symbols are merged into one chronological
// stream; each symbol keeps its own history, so the strategy sees every
// symbol as an independent series. The built-in strategies are stateless,
// which is what makes sharing one instance across symbols sound.
type MultiAssetEngine struct {
	provider       provider.CandleProvider
	strategy       strategy.TradingStrategy
	symbols        []string
	initialCapital decimal.Decimal
	exec           execution.ExecutionConfig
	risk           execution.RiskConfig
	logger         *logger.Logger
	onProgress     optional.Option[OnProgress]
}

// NewMultiAssetEngine creates a multi-asset engine over the given symbols.
func NewMultiAssetEngine(p provider.CandleProvider, s strategy.TradingStrategy, symbols []string, initialCapital decimal.Decimal, exec execution.ExecutionConfig, risk execution.RiskConfig, log *logger.Logger) *MultiAssetEngine {
	return &MultiAssetEngine{
		provider:       p,
		strategy:       s,
		symbols:        symbols,
		initialCapital: initialCapital,
		exec:           exec,
		risk:           risk,
		logger:         log,
		onProgress:     optional.None[OnProgress](),
	}
}

// SetOnProgress registers a callback invoked after each merged stream candle.
func (e *MultiAssetEngine) SetOnProgress(fn OnProgress) {
	e.onProgress = optional.Some(fn)
}

// Run executes the backtest over [startTime, endTime] for every symbol.
// Open positions are force closed at each symbol's last seen price once the
// stream is exhausted.
func (e *MultiAssetEngine) Run(ctx context.Context, interval types.Interval, startTime, endTime int64) (types.BacktestResult, error) {
	stream, err := e.mergedStream(ctx, interval, startTime, endTime)
	if err != nil {
		return types.BacktestResult{}, err
	}

	e.logger.Info("starting multi-asset backtest",
		zap.String("strategy", e.strategy.Name()),
		zap.Strings("symbols", e.symbols),
		zap.Int("candles", len(stream)),
	)

	pf, err := portfolio.NewMultiAssetPortfolio(e.initialCapital, e.exec, e.risk)
	if err != nil {
		return types.BacktestResult{}, err
	}

	histories := make(map[string][]types.Candle, len(e.symbols))
	lastPrices := make(map[string]decimal.Decimal, len(e.symbols))

	var lastTimestamp int64

	for i, candle := range stream {
		if err := ctx.Err(); err != nil {
			return types.BacktestResult{}, err
		}

		history := histories[candle.Symbol]
		lastPrices[candle.Symbol] = candle.Close
		lastTimestamp = candle.Timestamp

		// Equity marks to the current close before anything else happens on
		// the bar, so the circuit breaker reacts to this bar's move.
		pf.UpdateEquity(lastPrices)

		// A bar that exits on risk is consumed by the exit; the strategy is
		// not consulted until the next bar.
		if !e.applyRiskTriggers(pf, candle, history) {
			if signal := e.strategy.OnCandle(candle, history); signal.IsSome() {
				pf.ProcessSignal(signal.Unwrap(), candle.Close, candle.Timestamp, history)
			}
		}

		histories[candle.Symbol] = append(history, candle)

		if e.onProgress.IsSome() {
			e.onProgress.Unwrap()(i+1, len(stream))
		}
	}

	if len(stream) > 0 {
		pf.ForceCloseAll(lastPrices, lastTimestamp)
	}

	finalCapital := pf.Capital()

	result := types.BacktestResult{
		ID:             uuid.New().String(),
		StrategyName:   e.strategy.Name(),
		Symbol:         strings.Join(e.symbols, ","),
		Interval:       interval,
		InitialCapital: e.initialCapital,
		FinalCapital:   finalCapital,
		Trades:         pf.Trades(),
		Metrics:        metrics.Calculate(e.initialCapital, finalCapital, pf.Trades()),
	}

	e.logger.Info("multi-asset backtest finished",
		zap.String("id", result.ID),
		zap.Int("trades", len(result.Trades)),
		zap.String("final_capital", result.FinalCapital.String()),
	)

	return result, nil
}

// mergedStream fetches every symbol's candles and interleaves them in
// chronological order. Ties break by symbol so reruns are deterministic.
func (e *MultiAssetEngine) mergedStream(ctx context.Context, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	var stream []types.Candle

	for _, symbol := range e.symbols {
		candles, err := e.provider.GetCandles(ctx, symbol, interval, startTime, endTime)
		if err != nil {
			return nil, err
		}

		stream = append(stream, candles...)
	}

	sort.SliceStable(stream, func(i, j int) bool {
		if stream[i].Timestamp != stream[j].Timestamp {
			return stream[i].Timestamp < stream[j].Timestamp
		}

		return stream[i].Symbol < stream[j].Symbol
	})

	return stream, nil
}

// applyRiskTriggers closes a breached position through the portfolio's
// normal sell path, so exit slippage and fees apply to risk exits too.
// It reports whether an exit fired on this candle.
func (e *MultiAssetEngine) applyRiskTriggers(pf *portfolio.MultiAssetPortfolio, candle types.Candle, history []types.Candle) bool {
	position := pf.Position(candle.Symbol)
	if position.IsNone() {
		return false
	}

	open := position.Unwrap()

	exit := execution.CheckRiskTriggers(candle, open.EntryPrice, e.risk, open.Side)
	if exit.IsNone() {
		return false
	}

	reason := "stop-loss triggered"
	if exit.Unwrap().GreaterThan(open.EntryPrice) == (open.Side == types.SideBuy) {
		reason = "take-profit triggered"
	}

	signal := types.Signal{
		Side:     types.SideSell,
		Symbol:   candle.Symbol,
		Strength: decimal.NewFromInt(1),
		Reason:   reason,
	}

	pf.ProcessSignal(signal, exit.Unwrap(), candle.Timestamp, history)

	return true
}
