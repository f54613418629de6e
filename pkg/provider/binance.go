package provider

import (
	"context"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// binancePageSize is the kline page limit enforced by the Binance API.
const binancePageSize = 500

// BinanceProvider fetches historical klines from the Binance REST API. No
// API key is needed for public market data.
type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates a provider using the public API endpoints.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{client: binance.NewClient("", "")}
}

// NewBinanceProviderWithBaseURL points the provider at an alternate API
// host, used by tests to stand in a local server.
func NewBinanceProviderWithBaseURL(baseURL string) *BinanceProvider {
	client := binance.NewClient("", "")
	client.BaseURL = baseURL

	return &BinanceProvider{client: client}
}

func (p *BinanceProvider) GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	// Binance timestamps are in milliseconds.
	startMillis := startTime * 1000
	endMillis := endTime * 1000

	var candles []types.Candle

	currentStart := startMillis

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		for _, kline := range klines {
			candle, err := candleFromKline(symbol, interval, kline)
			if err != nil {
				return nil, err
			}

			candles = append(candles, candle)
		}

		// A short page means the range is exhausted.
		if len(klines) < binancePageSize {
			break
		}

		// Resume just past the last kline to avoid a duplicate first row.
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return candles, nil
}

func candleFromKline(symbol string, interval types.Interval, kline *binance.Kline) (types.Candle, error) {
	open, err := decimal.NewFromString(kline.Open)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid open price %q", kline.Open)
	}

	high, err := decimal.NewFromString(kline.High)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid high price %q", kline.High)
	}

	low, err := decimal.NewFromString(kline.Low)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid low price %q", kline.Low)
	}

	closePrice, err := decimal.NewFromString(kline.Close)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid close price %q", kline.Close)
	}

	volume, err := decimal.NewFromString(kline.Volume)
	if err != nil {
		return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "invalid volume %q", kline.Volume)
	}

	return types.Candle{
		Symbol:    symbol,
		Timestamp: kline.OpenTime / 1000,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Interval:  interval,
	}, nil
}
