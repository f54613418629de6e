// Package walkforward runs rolling out-of-sample validation: strategies are
// selected on a training window and then evaluated on the adjacent unseen
// test window, fold after fold. It guards against picking a strategy that
// only ever worked in-sample.
package walkforward

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantlab-trading/backtester/internal/backtest/engine"
	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/backtest/metrics"
	"github.com/quantlab-trading/backtester/internal/logger"
	"github.com/quantlab-trading/backtester/internal/strategy"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
	"github.com/quantlab-trading/backtester/pkg/provider"
)

// Config describes a walk-forward analysis. Window sizes are candle counts;
// Step defaults to TestSize so test windows tile without overlap.
type Config struct {
	Symbol         string            `yaml:"symbol"`
	Interval       types.Interval    `yaml:"interval"`
	StartTime      int64             `yaml:"start_time,omitempty"`
	EndTime        int64             `yaml:"end_time,omitempty"`
	InitialCapital decimal.Decimal   `yaml:"initial_capital"`
	TrainSize      int               `yaml:"train_size"`
	TestSize       int               `yaml:"test_size"`
	Step           int               `yaml:"step,omitempty"`
	Strategies     []strategy.Config `yaml:"strategies"`
	SortMetric     string            `yaml:"sort_metric,omitempty"`
	// OnProgress, when set, is called after each completed fold.
	OnProgress optional.Option[func(completed, total int)] `yaml:"-"`
}

// Fold records one train/test split and its outcome.
type Fold struct {
	Index        int                  `yaml:"index"`
	TrainStart   int64                `yaml:"train_start"`
	TrainEnd     int64                `yaml:"train_end"`
	TestStart    int64                `yaml:"test_start"`
	TestEnd      int64                `yaml:"test_end"`
	BestStrategy string               `yaml:"best_strategy"`
	TrainValue   float64              `yaml:"train_value"`
	TestResult   types.BacktestResult `yaml:"test_result"`
}

// Result aggregates all folds. AggregateMetrics are computed over the
// concatenation of every fold's out-of-sample trades.
type Result struct {
	Folds            []Fold             `yaml:"folds"`
	AggregateMetrics map[string]float64 `yaml:"aggregate_metrics"`
}

// Run fetches the full candle range once and slides the train/test windows
// across it. Each fold picks the best training strategy by the sort metric
// and scores it on the test window.
func Run(ctx context.Context, p provider.CandleProvider, cfg Config, log *logger.Logger) (Result, error) {
	if len(cfg.Strategies) == 0 {
		return Result{}, errors.New(errors.ErrCodeBacktestConfigError, "walk-forward needs at least one strategy")
	}

	if cfg.TrainSize <= 0 || cfg.TestSize <= 0 {
		return Result{}, errors.Newf(errors.ErrCodeBacktestConfigError,
			"train and test sizes must be positive, got %d/%d", cfg.TrainSize, cfg.TestSize)
	}

	step := cfg.Step
	if step <= 0 {
		step = cfg.TestSize
	}

	candles, err := p.GetCandles(ctx, cfg.Symbol, cfg.Interval, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return Result{}, err
	}

	foldSize := cfg.TrainSize + cfg.TestSize
	if len(candles) < foldSize {
		return Result{}, errors.NewInsufficientDataErrorf(foldSize, len(candles), cfg.Symbol,
			"walk-forward needs %d candles for one fold, got %d", foldSize, len(candles))
	}

	totalFolds := (len(candles)-foldSize)/step + 1
	folds := make([]Fold, 0, totalFolds)

	var testTrades []types.Trade

	for start := 0; start+foldSize <= len(candles); start += step {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		train := candles[start : start+cfg.TrainSize]
		test := candles[start+cfg.TrainSize : start+foldSize]

		fold, err := runFold(ctx, cfg, len(folds), train, test, log)
		if err != nil {
			return Result{}, err
		}

		folds = append(folds, fold)
		testTrades = append(testTrades, fold.TestResult.Trades...)

		if cfg.OnProgress.IsSome() {
			cfg.OnProgress.Unwrap()(len(folds), totalFolds)
		}
	}

	// Aggregate out-of-sample performance as if the per-fold trades formed
	// one continuous ledger starting from the initial capital.
	pnl := decimal.Zero
	for _, trade := range testTrades {
		pnl = pnl.Add(trade.PnL())
	}

	return Result{
		Folds:            folds,
		AggregateMetrics: metrics.Calculate(cfg.InitialCapital, cfg.InitialCapital.Add(pnl), testTrades),
	}, nil
}

func runFold(ctx context.Context, cfg Config, index int, train, test []types.Candle, log *logger.Logger) (Fold, error) {
	sortMetric := cfg.SortMetric
	if sortMetric == "" {
		sortMetric = "total_return"
	}

	ascending := sortMetric == "max_drawdown"

	var (
		bestCfg   strategy.Config
		bestName  string
		bestValue float64
		haveBest  bool
	)

	for _, strategyCfg := range cfg.Strategies {
		result, name, err := runWindow(ctx, cfg, strategyCfg, train, log)
		if err != nil {
			return Fold{}, err
		}

		value := result.Metrics[sortMetric]

		better := value > bestValue
		if ascending {
			better = value < bestValue
		}

		if !haveBest || better {
			bestCfg = strategyCfg
			bestName = name
			bestValue = value
			haveBest = true
		}
	}

	testResult, _, err := runWindow(ctx, cfg, bestCfg, test, log)
	if err != nil {
		return Fold{}, err
	}

	log.Info("walk-forward fold complete",
		zap.Int("fold", index),
		zap.String("best_strategy", bestName),
		zap.Float64("train_value", bestValue),
		zap.Float64("test_value", testResult.Metrics[sortMetric]),
	)

	return Fold{
		Index:        index,
		TrainStart:   train[0].Timestamp,
		TrainEnd:     train[len(train)-1].Timestamp,
		TestStart:    test[0].Timestamp,
		TestEnd:      test[len(test)-1].Timestamp,
		BestStrategy: bestName,
		TrainValue:   bestValue,
		TestResult:   testResult,
	}, nil
}

// runWindow backtests one strategy over a candle window using an in-memory
// provider, so fold evaluation never refetches data.
func runWindow(ctx context.Context, cfg Config, strategyCfg strategy.Config, window []types.Candle, log *logger.Logger) (types.BacktestResult, string, error) {
	s, err := strategy.New(strategyCfg)
	if err != nil {
		return types.BacktestResult{}, "", err
	}

	e := engine.NewEngine(provider.NewSliceProvider(window), s, cfg.InitialCapital, optional.None[execution.RiskConfig](), log)

	result, err := e.Run(ctx, cfg.Symbol, cfg.Interval, window[0].Timestamp, window[len(window)-1].Timestamp)
	if err != nil {
		return types.BacktestResult{}, "", err
	}

	return result, s.Name(), nil
}
