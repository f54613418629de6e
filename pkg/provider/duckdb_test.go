package provider

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantlab-trading/backtester/internal/types"
)

type DuckDBProviderTestSuite struct {
	suite.Suite

	provider *DuckDBProvider
}

func TestDuckDBProviderSuite(t *testing.T) {
	suite.Run(t, new(DuckDBProviderTestSuite))
}

func (suite *DuckDBProviderTestSuite) SetupTest() {
	p, err := NewDuckDBProvider("")
	suite.Require().NoError(err)
	suite.Require().NoError(p.InitializeSchema())

	suite.provider = p
}

func (suite *DuckDBProviderTestSuite) TearDownTest() {
	suite.NoError(suite.provider.Close())
}

func (suite *DuckDBProviderTestSuite) TestWriteAndQueryRoundTrip() {
	ctx := context.Background()

	candles := []types.Candle{
		testCandle("BTC-USD", 120, 102, types.Interval1m),
		testCandle("BTC-USD", 60, 101, types.Interval1m),
		testCandle("ETH-USD", 60, 50, types.Interval1m),
	}

	suite.Require().NoError(suite.provider.WriteCandles(ctx, candles))

	result, err := suite.provider.GetCandles(ctx, "BTC-USD", types.Interval1m, 0, 0)
	suite.NoError(err)
	suite.Require().Len(result, 2)

	// Ordered by timestamp ascending.
	suite.Equal(int64(60), result[0].Timestamp)
	suite.True(result[0].Close.Equal(decimal.NewFromInt(101)), "close %s", result[0].Close)
	suite.Equal("BTC-USD", result[1].Symbol)
}

func (suite *DuckDBProviderTestSuite) TestTimeRangeFilter() {
	ctx := context.Background()

	suite.Require().NoError(suite.provider.WriteCandles(ctx, []types.Candle{
		testCandle("BTC-USD", 60, 101, types.Interval1m),
		testCandle("BTC-USD", 120, 102, types.Interval1m),
		testCandle("BTC-USD", 180, 103, types.Interval1m),
	}))

	result, err := suite.provider.GetCandles(ctx, "BTC-USD", types.Interval1m, 120, 120)
	suite.NoError(err)
	suite.Require().Len(result, 1)
	suite.Equal(int64(120), result[0].Timestamp)
}

func (suite *DuckDBProviderTestSuite) TestEmptyTable() {
	result, err := suite.provider.GetCandles(context.Background(), "BTC-USD", types.Interval1m, 0, 0)
	suite.NoError(err)
	suite.Empty(result)
}
