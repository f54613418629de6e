package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

// candlesFromCloses builds flat candles (high == low == close) from values.
func candlesFromCloses(closes ...float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		candles[i] = types.Candle{
			Symbol:    "TEST-USD",
			Timestamp: int64(i * 60),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1),
			Interval:  types.Interval1m,
		}
	}

	return candles
}

func (suite *IndicatorTestSuite) TestSMA() {
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	sma, err := SMA(candles, 5)
	suite.NoError(err)
	suite.True(sma.Equal(decimal.NewFromInt(3)), "got %s", sma)
}

func (suite *IndicatorTestSuite) TestSMAUsesTrailingWindow() {
	candles := candlesFromCloses(100, 1, 2, 3)

	sma, err := SMA(candles, 3)
	suite.NoError(err)
	suite.True(sma.Equal(decimal.NewFromInt(2)), "got %s", sma)
}

func (suite *IndicatorTestSuite) TestSMAInsufficientData() {
	candles := candlesFromCloses(1, 2)

	_, err := SMA(candles, 5)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestEMASeededWithSMA() {
	// With exactly period values the EMA equals the seed SMA.
	candles := candlesFromCloses(2, 4, 6)

	ema, err := EMA(candles, 3)
	suite.NoError(err)
	suite.True(ema.Equal(decimal.NewFromInt(4)), "got %s", ema)
}

func (suite *IndicatorTestSuite) TestEMAFollowsNewValues() {
	// Seed SMA = 4, multiplier = 2/(3+1) = 0.5, next value 8:
	// ema = (8-4)*0.5 + 4 = 6
	candles := candlesFromCloses(2, 4, 6, 8)

	ema, err := EMA(candles, 3)
	suite.NoError(err)
	suite.True(ema.Equal(decimal.NewFromInt(6)), "got %s", ema)
}

func (suite *IndicatorTestSuite) TestEMASeries() {
	values := []decimal.Decimal{
		decimal.NewFromInt(2),
		decimal.NewFromInt(4),
		decimal.NewFromInt(6),
		decimal.NewFromInt(8),
	}

	series, err := EMASeries(values, 3)
	suite.NoError(err)
	suite.Require().Len(series, 2)
	suite.True(series[0].Equal(decimal.NewFromInt(4)), "got %s", series[0])
	suite.True(series[1].Equal(decimal.NewFromInt(6)), "got %s", series[1])
}

func (suite *IndicatorTestSuite) TestEMASeriesInsufficientData() {
	_, err := EMASeries([]decimal.Decimal{decimal.NewFromInt(1)}, 3)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestRollingStdConstantPrices() {
	candles := candlesFromCloses(5, 5, 5, 5)

	std, err := RollingStd(candles, 4)
	suite.NoError(err)
	suite.True(std.IsZero())
}

func (suite *IndicatorTestSuite) TestRollingStd() {
	// Closes 2 and 4: mean 3, population variance 1, std 1.
	candles := candlesFromCloses(2, 4)

	std, err := RollingStd(candles, 2)
	suite.NoError(err)
	suite.True(std.Equal(decimal.NewFromInt(1)), "got %s", std)
}

func (suite *IndicatorTestSuite) TestATRFlatCandles() {
	// Flat candles moving 1 apart: true range is driven by the close gap.
	candles := candlesFromCloses(10, 11, 12, 13)

	atr, err := ATR(candles, 3)
	suite.NoError(err)
	suite.True(atr.Equal(decimal.NewFromInt(1)), "got %s", atr)
}

func (suite *IndicatorTestSuite) TestATRWithRange() {
	candles := candlesFromCloses(10, 10, 10)
	for i := range candles {
		candles[i].High = candles[i].Close.Add(decimal.NewFromInt(2))
		candles[i].Low = candles[i].Close.Sub(decimal.NewFromInt(2))
	}

	atr, err := ATR(candles, 2)
	suite.NoError(err)
	suite.True(atr.Equal(decimal.NewFromInt(4)), "got %s", atr)
}

func (suite *IndicatorTestSuite) TestATRInsufficientData() {
	candles := candlesFromCloses(10, 11, 12)

	_, err := ATR(candles, 3)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestRSIAllGains() {
	candles := candlesFromCloses(1, 2, 3, 4, 5, 6)

	rsi, err := RSI(candles, 5)
	suite.NoError(err)
	suite.True(rsi.Equal(decimal.NewFromInt(100)), "got %s", rsi)
}

func (suite *IndicatorTestSuite) TestRSIAllLosses() {
	candles := candlesFromCloses(6, 5, 4, 3, 2, 1)

	rsi, err := RSI(candles, 5)
	suite.NoError(err)
	suite.True(rsi.IsZero(), "got %s", rsi)
}

func (suite *IndicatorTestSuite) TestRSIBalanced() {
	// Alternating +1/-1 moves: average gain equals average loss, RSI 50.
	candles := candlesFromCloses(10, 11, 10, 11, 10, 11, 10)

	rsi, err := RSI(candles, 6)
	suite.NoError(err)
	suite.True(rsi.Equal(decimal.NewFromInt(50)), "got %s", rsi)
}

func (suite *IndicatorTestSuite) TestCorrelationIdenticalSeries() {
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	corr, err := Correlation(candles, candles, 5)
	suite.NoError(err)
	suite.InDelta(1.0, corr.InexactFloat64(), 1e-9)
}

func (suite *IndicatorTestSuite) TestCorrelationInverseSeries() {
	up := candlesFromCloses(1, 2, 3, 4, 5)
	down := candlesFromCloses(5, 4, 3, 2, 1)

	corr, err := Correlation(up, down, 5)
	suite.NoError(err)
	suite.InDelta(-1.0, corr.InexactFloat64(), 1e-9)
}

func (suite *IndicatorTestSuite) TestCorrelationZeroVariance() {
	flat := candlesFromCloses(3, 3, 3, 3)
	moving := candlesFromCloses(1, 2, 3, 4)

	corr, err := Correlation(flat, moving, 4)
	suite.NoError(err)
	suite.True(corr.IsZero())
}

func (suite *IndicatorTestSuite) TestADXTrendingMarket() {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}

	candles := candlesFromCloses(closes...)
	for i := range candles {
		candles[i].High = candles[i].Close.Add(decimal.NewFromInt(1))
		candles[i].Low = candles[i].Close.Sub(decimal.NewFromInt(1))
	}

	adx, err := ADX(candles, 14)
	suite.NoError(err)
	// A steady uptrend has almost all directional movement on the plus side.
	suite.Greater(adx.InexactFloat64(), 25.0)
}

func (suite *IndicatorTestSuite) TestADXInsufficientData() {
	candles := candlesFromCloses(1, 2, 3)

	_, err := ADX(candles, 14)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}
