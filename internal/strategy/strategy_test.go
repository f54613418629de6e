package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantlab-trading/backtester/internal/types"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

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

// candlesWithRange builds candles sharing one high/low band, for strategies
// that read the wicks rather than just the closes.
func candlesWithRange(high, low float64, closes ...float64) []types.Candle {
	candles := candlesFromCloses(closes...)
	for i := range candles {
		candles[i].High = decimal.NewFromFloat(high)
		candles[i].Low = decimal.NewFromFloat(low)
	}

	return candles
}

// runStream feeds candles one at a time, the way an engine would: the
// history holds only the bars before the current one.
func runStream(s TradingStrategy, candles []types.Candle) []types.Signal {
	var signals []types.Signal

	for i := range candles {
		if signal := s.OnCandle(candles[i], candles[:i]); signal.IsSome() {
			signals = append(signals, signal.Unwrap())
		}
	}

	return signals
}

func (suite *StrategyTestSuite) TestNewUnknownType() {
	_, err := New(Config{Type: "martingale"})
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestNewAllBuiltinsWithDefaults() {
	for _, t := range Types {
		s, err := New(Config{Type: t})
		suite.NoError(err, "type %s", t)
		suite.Equal(string(t), s.Name())
	}
}

func (suite *StrategyTestSuite) TestBuyAndHoldSignalsOnce() {
	candles := candlesFromCloses(10, 11, 9, 12)

	signals := runStream(NewBuyAndHold(), candles)

	suite.Require().Len(signals, 1)
	suite.Equal(types.SideBuy, signals[0].Side)
	suite.Equal("TEST-USD", signals[0].Symbol)
}

func (suite *StrategyTestSuite) TestSMACrossoverBuyAndSell() {
	s, err := NewSMACrossover(2, 3)
	suite.Require().NoError(err)

	// Downtrend, sharp reversal, then collapse: one cross up, one cross down.
	candles := candlesFromCloses(10, 9, 8, 12, 7, 5)

	signals := runStream(s, candles)

	suite.Require().Len(signals, 2)
	suite.Equal(types.SideBuy, signals[0].Side)
	suite.Equal(types.SideSell, signals[1].Side)
}

func (suite *StrategyTestSuite) TestSMACrossoverNeedsWarmup() {
	s, err := NewSMACrossover(2, 3)
	suite.Require().NoError(err)

	// Three candles reach the long period but not the extra bar for the
	// previous averages.
	suite.Empty(runStream(s, candlesFromCloses(10, 9, 8)))
}

func (suite *StrategyTestSuite) TestCrossoverRejectsBadPeriods() {
	_, err := NewSMACrossover(50, 20)
	suite.Error(err)

	_, err = NewEMACrossover(-1, 26)
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestEMACrossoverSignals() {
	s, err := NewEMACrossover(2, 3)
	suite.Require().NoError(err)

	signals := runStream(s, candlesFromCloses(10, 9, 8, 12, 7, 5))

	suite.Require().NotEmpty(signals)
	suite.Equal(types.SideBuy, signals[0].Side)
}

func (suite *StrategyTestSuite) TestRSIOversoldBuys() {
	s, err := NewRSI(5, decimal.NewFromInt(30), decimal.NewFromInt(70))
	suite.Require().NoError(err)

	// Straight decline pins the RSI at 0.
	candles := candlesFromCloses(10, 9, 8, 7, 6, 5)

	signal := s.OnCandle(candles[len(candles)-1], candles[:len(candles)-1])
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SideBuy, signal.Unwrap().Side)
}

func (suite *StrategyTestSuite) TestRSIOverboughtSells() {
	s, err := NewRSI(5, decimal.NewFromInt(30), decimal.NewFromInt(70))
	suite.Require().NoError(err)

	candles := candlesFromCloses(5, 6, 7, 8, 9, 10)

	signal := s.OnCandle(candles[len(candles)-1], candles[:len(candles)-1])
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SideSell, signal.Unwrap().Side)
}

func (suite *StrategyTestSuite) TestRSINeutralStaysQuiet() {
	s, err := NewRSI(6, decimal.NewFromInt(30), decimal.NewFromInt(70))
	suite.Require().NoError(err)

	// Alternating moves hold the RSI near 50.
	candles := candlesFromCloses(10, 11, 10, 11, 10, 11, 10)

	suite.True(s.OnCandle(candles[len(candles)-1], candles[:len(candles)-1]).IsNone())
}

func (suite *StrategyTestSuite) TestRSIRejectsBadThresholds() {
	_, err := NewRSI(14, decimal.NewFromInt(70), decimal.NewFromInt(30))
	suite.Error(err)

	_, err = NewRSI(14, decimal.NewFromInt(30), decimal.NewFromInt(150))
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestBollingerBandCrosses() {
	s, err := NewBollinger(3, decimal.NewFromFloat(0.5))
	suite.Require().NoError(err)

	// A flat window has zero-width bands; the drop to 9 crosses below the
	// freshly widened lower band.
	down := candlesFromCloses(10, 10, 10, 9)
	buySignal := s.OnCandle(down[3], down[:3])
	suite.Require().True(buySignal.IsSome())
	suite.Equal(types.SideBuy, buySignal.Unwrap().Side)

	up := candlesFromCloses(10, 10, 10, 11)
	sellSignal := s.OnCandle(up[3], up[:3])
	suite.Require().True(sellSignal.IsSome())
	suite.Equal(types.SideSell, sellSignal.Unwrap().Side)
}

func (suite *StrategyTestSuite) TestBollingerNeedsWarmup() {
	s, err := NewBollinger(3, decimal.NewFromInt(2))
	suite.Require().NoError(err)

	suite.Empty(runStream(s, candlesFromCloses(10, 10, 10)))
}

func (suite *StrategyTestSuite) TestMACDReversalBuys() {
	s, err := NewMACD(2, 3, 2)
	suite.Require().NoError(err)

	// A long decline followed by a strong rally forces the MACD line up
	// through its signal line.
	candles := candlesFromCloses(10, 9.5, 9, 8.5, 8, 7.5, 7, 9, 11, 13)

	signals := runStream(s, candles)

	suite.Require().NotEmpty(signals)
	suite.Equal(types.SideBuy, signals[0].Side)
}

func (suite *StrategyTestSuite) TestMACDQuietBeforeWarmup() {
	s, err := NewMACD(2, 3, 2)
	suite.Require().NoError(err)

	// slow + signal = 5 candles are needed before any signal can fire.
	suite.Empty(runStream(s, candlesFromCloses(10, 9, 8, 7)))
}

func (suite *StrategyTestSuite) TestMACDRejectsInvertedPeriods() {
	_, err := NewMACD(26, 12, 9)
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestStrategiesDoNotMutateHistory() {
	s, err := NewSMACrossover(2, 3)
	suite.Require().NoError(err)

	// The history slice has spare capacity holding a later candle; extending
	// it internally must not overwrite the caller's backing array.
	candles := candlesFromCloses(10, 9, 8, 12)
	current := candlesFromCloses(99)[0]

	s.OnCandle(current, candles[:3])

	suite.True(candles[3].Close.Equal(decimal.NewFromInt(12)))
}

func (suite *StrategyTestSuite) TestDonchianBreakouts() {
	s, err := NewDonchian(3)
	suite.Require().NoError(err)

	// The channel comes from the three bars before the breakout bar; if the
	// breakout bar widened its own channel no signal could ever fire.
	buys := runStream(s, candlesFromCloses(10, 10, 10, 11))
	suite.Require().Len(buys, 1)
	suite.Equal(types.SideBuy, buys[0].Side)

	sells := runStream(s, candlesFromCloses(10, 10, 10, 9))
	suite.Require().Len(sells, 1)
	suite.Equal(types.SideSell, sells[0].Side)
}

func (suite *StrategyTestSuite) TestDonchianQuietInsideChannel() {
	s, err := NewDonchian(3)
	suite.Require().NoError(err)

	// A close sitting on the channel edge is not a breakout.
	suite.Empty(runStream(s, candlesFromCloses(10, 10, 10, 10)))
}

func (suite *StrategyTestSuite) TestDonchianNeedsWarmup() {
	s, err := NewDonchian(3)
	suite.Require().NoError(err)

	suite.Empty(runStream(s, candlesFromCloses(10, 10, 11)))
}

func (suite *StrategyTestSuite) TestStochasticCrossesAtExtremes() {
	s, err := NewStochastic(3, 2, decimal.NewFromInt(20), decimal.NewFromInt(80))
	suite.Require().NoError(err)

	// Closes near the bottom of a fixed 90..100 range set up a bullish %K/%D
	// cross in the oversold zone, then closes near the top set up the
	// bearish cross in the overbought zone.
	candles := candlesWithRange(100, 90, 95, 92, 91, 90.5, 91.5, 99, 98.5)

	signals := runStream(s, candles)

	suite.Require().Len(signals, 2)
	suite.Equal(types.SideBuy, signals[0].Side)
	suite.Equal(types.SideSell, signals[1].Side)
}

func (suite *StrategyTestSuite) TestStochasticFlatRangeStaysQuiet() {
	s, err := NewStochastic(3, 2, decimal.NewFromInt(20), decimal.NewFromInt(80))
	suite.Require().NoError(err)

	// High equals low on every bar, so %K pins to 50 and never reaches
	// either zone.
	suite.Empty(runStream(s, candlesFromCloses(10, 10, 10, 10, 10, 10)))
}

func (suite *StrategyTestSuite) TestStochasticRejectsBadThresholds() {
	_, err := NewStochastic(14, 3, decimal.NewFromInt(80), decimal.NewFromInt(20))
	suite.Error(err)

	_, err = NewStochastic(14, 3, decimal.NewFromInt(20), decimal.NewFromInt(120))
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestVWAPCrossSignals() {
	s, err := NewVWAP(2)
	suite.Require().NoError(err)

	// With equal volumes the VWAP is the rolling mean of closes: the drop
	// to 9 crosses below it, the rally to 11 crosses back above.
	signals := runStream(s, candlesFromCloses(10, 10, 9, 11))

	suite.Require().Len(signals, 2)
	suite.Equal(types.SideBuy, signals[0].Side)
	suite.Equal(types.SideSell, signals[1].Side)
}

func (suite *StrategyTestSuite) TestVWAPSkipsZeroVolumeWindows() {
	s, err := NewVWAP(2)
	suite.Require().NoError(err)

	candles := candlesFromCloses(10, 10, 9, 11)
	for i := range candles {
		candles[i].Volume = decimal.Zero
	}

	suite.Empty(runStream(s, candles))
}

func (suite *StrategyTestSuite) TestVWAPRejectsTinyPeriod() {
	_, err := NewVWAP(1)
	suite.Error(err)
}

func (suite *StrategyTestSuite) TestMeanReversionZScoreCrosses() {
	s, err := NewMeanReversion(3, decimal.NewFromInt(1))
	suite.Require().NoError(err)

	// The collapse to 7 pushes the z-score below -1, the snap to 13 pushes
	// it above +1.
	signals := runStream(s, candlesFromCloses(10, 10, 10, 7, 13))

	suite.Require().Len(signals, 2)
	suite.Equal(types.SideBuy, signals[0].Side)
	suite.Equal(types.SideSell, signals[1].Side)
}

func (suite *StrategyTestSuite) TestMeanReversionFlatWindowStaysQuiet() {
	s, err := NewMeanReversion(3, decimal.NewFromInt(1))
	suite.Require().NoError(err)

	// Zero variance pins the z-score to zero.
	suite.Empty(runStream(s, candlesFromCloses(10, 10, 10, 10, 10)))
}

func (suite *StrategyTestSuite) TestMeanReversionRejectsBadParams() {
	_, err := NewMeanReversion(1, decimal.NewFromInt(2))
	suite.Error(err)

	_, err = NewMeanReversion(20, decimal.NewFromInt(-2))
	suite.Error(err)
}
