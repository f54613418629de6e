package provider

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// CSVProvider reads candles from a CSV file with a
// symbol,timestamp,open,high,low,close,volume,interval header. The file is
// parsed once on first use and cached for the lifetime of the provider.
type CSVProvider struct {
	path string

	mu      sync.Mutex
	candles []types.Candle
	loaded  bool
}

// NewCSVProvider creates a provider for the given file path. The file is not
// touched until the first GetCandles call.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

func (p *CSVProvider) GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	if err := p.load(); err != nil {
		return nil, err
	}

	return filterCandles(p.candles, symbol, interval, startTime, endTime), nil
}

func (p *CSVProvider) load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	file, err := os.Open(p.path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open CSV file %s", p.path)
	}
	defer file.Close()

	var candles []types.Candle
	if err := gocsv.UnmarshalFile(file, &candles); err != nil {
		return errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to parse CSV file %s", p.path)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	p.candles = candles
	p.loaded = true

	return nil
}

// WriteCandlesCSV writes candles to a CSV file that NewCSVProvider can read
// back.
func WriteCandlesCSV(path string, candles []types.Candle) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to create CSV file %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&candles, file); err != nil {
		return errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to write CSV file %s", path)
	}

	return nil
}
