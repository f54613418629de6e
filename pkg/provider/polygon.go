package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// PolygonProvider fetches aggregate bars from the Polygon.io REST API.
type PolygonProvider struct {
	client *polygon.Client
}

// NewPolygonProvider creates a provider with the given API key.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon API key is required")
	}

	return &PolygonProvider{client: polygon.New(apiKey)}, nil
}

func (p *PolygonProvider) GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(time.Unix(startTime, 0)),
		To:         models.Millis(time.Unix(endTime, 0)),
	}.WithOrder(models.Asc).WithAdjusted(true)

	var candles []types.Candle

	iter := p.client.ListAggs(ctx, params)
	for iter.Next() {
		agg := iter.Item()

		candles = append(candles, types.Candle{
			Symbol:    symbol,
			Timestamp: time.Time(agg.Timestamp).Unix(),
			Open:      decimal.NewFromFloat(agg.Open),
			High:      decimal.NewFromFloat(agg.High),
			Low:       decimal.NewFromFloat(agg.Low),
			Close:     decimal.NewFromFloat(agg.Close),
			Volume:    decimal.NewFromFloat(agg.Volume),
			Interval:  interval,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, err, "failed to fetch aggregates for %s", symbol)
	}

	return candles, nil
}

// polygonTimespan maps a candle interval onto Polygon's multiplier and
// timespan pair.
func polygonTimespan(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.Interval1m:
		return 1, models.Minute, nil
	case types.Interval5m:
		return 5, models.Minute, nil
	case types.Interval15m:
		return 15, models.Minute, nil
	case types.Interval1h:
		return 1, models.Hour, nil
	case types.Interval4h:
		return 4, models.Hour, nil
	case types.Interval1d:
		return 1, models.Day, nil
	case types.Interval1w:
		return 1, models.Week, nil
	}

	return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "no Polygon timespan for interval %q", interval)
}
