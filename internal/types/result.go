package types

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// BacktestResult is the terminal, immutable snapshot of a single run.
// Trades are in close order. Metrics are the report-domain values computed
// by the metrics calculator, keyed by metric name.
type BacktestResult struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id"`
	// StrategyName identifies the strategy that produced the trades.
	StrategyName string `yaml:"strategy_name"`
	// Symbol of the trading pair, comma separated for multi-asset runs.
	Symbol string `yaml:"symbol"`
	// Interval of the candles the run was driven by.
	Interval Interval `yaml:"interval"`
	// InitialCapital is the starting capital in quote currency.
	InitialCapital decimal.Decimal `yaml:"initial_capital"`
	// FinalCapital is the cash balance after the final force close.
	FinalCapital decimal.Decimal `yaml:"final_capital"`
	// Trades completed during the run, in close order.
	Trades []Trade `yaml:"trades"`
	// Metrics computed over the trade ledger.
	Metrics map[string]float64 `yaml:"metrics"`
}

// WriteBacktestResults writes results to a YAML report file.
func WriteBacktestResults(path string, results []BacktestResult) error {
	data, err := yaml.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest results to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest results to file: %w", err)
	}

	return nil
}
