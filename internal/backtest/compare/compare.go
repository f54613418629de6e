// Package compare runs several strategies over the same data and ranks the
// results by a chosen metric.
package compare

import (
	"context"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/backtest/engine"
	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/logger"
	"github.com/quantlab-trading/backtester/internal/strategy"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
	"github.com/quantlab-trading/backtester/pkg/provider"
)

// sortableMetrics are the metrics a comparison can rank by. Drawdown ranks
// ascending since smaller is better; everything else descends.
var sortableMetrics = map[string]bool{
	"total_return":  true,
	"win_rate":      true,
	"profit_factor": true,
	"max_drawdown":  true,
	"sharpe_ratio":  true,
}

// DefaultSortMetric ranks comparisons when no metric is chosen.
const DefaultSortMetric = "total_return"

// Config describes a comparison run. Every strategy runs on the
// frictionless single-asset engine so the ranking reflects signal quality,
// not cost modelling.
type Config struct {
	Symbol         string            `yaml:"symbol"`
	Interval       types.Interval    `yaml:"interval"`
	StartTime      int64             `yaml:"start_time,omitempty"`
	EndTime        int64             `yaml:"end_time,omitempty"`
	InitialCapital decimal.Decimal   `yaml:"initial_capital"`
	Strategies     []strategy.Config `yaml:"strategies"`
	SortMetric     string            `yaml:"sort_metric,omitempty"`
}

// Row pairs a strategy with its completed run, in rank order.
type Row struct {
	Rank         int                  `yaml:"rank"`
	StrategyName string               `yaml:"strategy_name"`
	SortValue    float64              `yaml:"sort_value"`
	Result       types.BacktestResult `yaml:"result"`
}

// Run backtests every configured strategy and returns rows sorted best
// first by the sort metric.
func Run(ctx context.Context, p provider.CandleProvider, cfg Config, log *logger.Logger) ([]Row, error) {
	if len(cfg.Strategies) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "comparison needs at least one strategy")
	}

	sortMetric := cfg.SortMetric
	if sortMetric == "" {
		sortMetric = DefaultSortMetric
	}

	if !sortableMetrics[sortMetric] {
		return nil, errors.Newf(errors.ErrCodeUnsupportedMetric, "cannot sort comparison by %q", sortMetric)
	}

	rows := make([]Row, 0, len(cfg.Strategies))

	for _, strategyCfg := range cfg.Strategies {
		s, err := strategy.New(strategyCfg)
		if err != nil {
			return nil, err
		}

		e := engine.NewEngine(p, s, cfg.InitialCapital, optional.None[execution.RiskConfig](), log)

		result, err := e.Run(ctx, cfg.Symbol, cfg.Interval, cfg.StartTime, cfg.EndTime)
		if err != nil {
			return nil, err
		}

		rows = append(rows, Row{
			StrategyName: s.Name(),
			SortValue:    result.Metrics[sortMetric],
			Result:       result,
		})
	}

	ascending := sortMetric == "max_drawdown"

	sort.SliceStable(rows, func(i, j int) bool {
		if ascending {
			return rows[i].SortValue < rows[j].SortValue
		}

		return rows[i].SortValue > rows[j].SortValue
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}

	return rows, nil
}
