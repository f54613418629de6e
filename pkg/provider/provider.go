// Package provider supplies candle data to the backtest engines. Providers
// return candles for a symbol, interval, and closed time range, sorted by
// timestamp ascending. Implementations cover local files (CSV, DuckDB) and
// remote market data APIs (Binance, Polygon).
package provider

import (
	"context"
	"sort"

	"github.com/quantlab-trading/backtester/internal/types"
)

// CandleProvider fetches candles for one symbol over a closed Unix-second
// time range. Implementations must return candles sorted by timestamp and
// must not mutate the returned slice after handing it out.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error)
}

// SliceProvider serves candles from an in-memory slice. It backs tests and
// the Monte Carlo and walk-forward drivers, which re-run engines over data
// that is already loaded.
type SliceProvider struct {
	candles []types.Candle
}

// NewSliceProvider copies and sorts the given candles by timestamp.
func NewSliceProvider(candles []types.Candle) *SliceProvider {
	sorted := make([]types.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	return &SliceProvider{candles: sorted}
}

func (p *SliceProvider) GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	return filterCandles(p.candles, symbol, interval, startTime, endTime), nil
}

// filterCandles keeps candles matching symbol and interval inside the
// closed [startTime, endTime] range. Zero bounds are treated as open ends.
func filterCandles(candles []types.Candle, symbol string, interval types.Interval, startTime, endTime int64) []types.Candle {
	var result []types.Candle

	for _, candle := range candles {
		if symbol != "" && candle.Symbol != symbol {
			continue
		}

		if interval != "" && candle.Interval != interval {
			continue
		}

		if startTime != 0 && candle.Timestamp < startTime {
			continue
		}

		if endTime != 0 && candle.Timestamp > endTime {
			continue
		}

		result = append(result, candle)
	}

	return result
}
