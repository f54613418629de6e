package portfolio

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantlab-trading/backtester/internal/backtest/execution"
)

type MultiAssetPortfolioTestSuite struct {
	suite.Suite
}

func TestMultiAssetPortfolioSuite(t *testing.T) {
	suite.Run(t, new(MultiAssetPortfolioTestSuite))
}

func newTestPortfolio(suite *MultiAssetPortfolioTestSuite, exec execution.ExecutionConfig, risk execution.RiskConfig) *MultiAssetPortfolio {
	p, err := NewMultiAssetPortfolio(decimal.NewFromInt(10000), exec, risk)
	suite.Require().NoError(err)

	return p
}

func (suite *MultiAssetPortfolioTestSuite) TestSizingFromInitialCapital() {
	cfg := execConfigWithSize(0.5)
	p := newTestPortfolio(suite, cfg, execution.RiskConfig{})

	// Every position is sized from initial capital, so both symbols get the
	// same 5000 allocation even though the second opens with less cash.
	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	p.ProcessSignal(buySignal("ETH-USD"), decimal.NewFromInt(50), 60, nil)

	btc := p.Position("BTC-USD").Unwrap()
	eth := p.Position("ETH-USD").Unwrap()
	suite.True(btc.Quantity.Equal(decimal.NewFromInt(50)), "btc quantity %s", btc.Quantity)
	suite.True(eth.Quantity.Equal(decimal.NewFromInt(100)), "eth quantity %s", eth.Quantity)
	suite.True(p.Capital().IsZero())

	// The third entry would need another 5000; it is silently skipped.
	p.ProcessSignal(buySignal("SOL-USD"), decimal.NewFromInt(20), 60, nil)
	suite.True(p.Position("SOL-USD").IsNone())
	suite.Equal([]string{"BTC-USD", "ETH-USD"}, p.OpenSymbols())
}

func (suite *MultiAssetPortfolioTestSuite) TestOnePositionPerSymbol() {
	cfg := execConfigWithSize(0.25)
	p := newTestPortfolio(suite, cfg, execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	first := p.Position("BTC-USD").Unwrap()

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(200), 120, nil)
	suite.Equal(first, p.Position("BTC-USD").Unwrap())
	suite.True(p.Capital().Equal(decimal.NewFromInt(7500)), "capital %s", p.Capital())
}

func (suite *MultiAssetPortfolioTestSuite) TestFeesDebitedAndAttached() {
	cfg := execConfigWithSize(0.5)
	cfg.TakerFeePct = decimal.NewFromFloat(0.01)
	cfg.MakerFeePct = decimal.NewFromFloat(0.01)
	p := newTestPortfolio(suite, cfg, execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)

	// Allocation 5000, taker fee 50, quantity 49.5. The full allocation
	// leaves cash, fee included.
	suite.True(p.Capital().Equal(decimal.NewFromInt(5000)), "capital %s", p.Capital())
	suite.True(p.Position("BTC-USD").Unwrap().Quantity.Equal(decimal.NewFromFloat(49.5)))

	trade := p.ProcessSignal(sellSignal("BTC-USD"), decimal.NewFromInt(110), 120, nil)
	suite.Require().True(trade.IsSome())

	// Exit value 5445, maker fee 54.45.
	closed := trade.Unwrap()
	suite.True(closed.EntryFee.Equal(decimal.NewFromInt(50)), "entry fee %s", closed.EntryFee)
	suite.True(closed.ExitFee.Equal(decimal.NewFromFloat(54.45)), "exit fee %s", closed.ExitFee)
	suite.True(closed.PnL().Equal(decimal.NewFromFloat(390.55)), "pnl %s", closed.PnL())
	suite.True(p.Capital().Equal(decimal.NewFromFloat(10390.55)), "capital %s", p.Capital())
}

func (suite *MultiAssetPortfolioTestSuite) TestSlippageWorsensBothLegs() {
	cfg := execConfigWithSize(1)
	cfg.SlippagePct = decimal.NewFromFloat(0.01)
	p := newTestPortfolio(suite, cfg, execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	position := p.Position("BTC-USD").Unwrap()
	suite.True(position.EntryPrice.Equal(decimal.NewFromInt(101)), "entry %s", position.EntryPrice)

	trade := p.ProcessSignal(sellSignal("BTC-USD"), decimal.NewFromInt(110), 120, nil)
	suite.Require().True(trade.IsSome())
	suite.True(trade.Unwrap().ExitPrice.Equal(decimal.NewFromFloat(108.9)), "exit %s", trade.Unwrap().ExitPrice)
}

func (suite *MultiAssetPortfolioTestSuite) TestSellWithoutPositionIgnored() {
	p := newTestPortfolio(suite, execConfigWithSize(0.5), execution.RiskConfig{})

	trade := p.ProcessSignal(sellSignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	suite.True(trade.IsNone())
	suite.True(p.Capital().Equal(decimal.NewFromInt(10000)))
	suite.Empty(p.Trades())
}

func (suite *MultiAssetPortfolioTestSuite) TestForceCloseAllDeterministicOrder() {
	p := newTestPortfolio(suite, execConfigWithSize(0.25), execution.RiskConfig{})

	p.ProcessSignal(buySignal("ETH-USD"), decimal.NewFromInt(50), 60, nil)
	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)

	closed := p.ForceCloseAll(map[string]decimal.Decimal{
		"BTC-USD": decimal.NewFromInt(110),
		"ETH-USD": decimal.NewFromInt(55),
	}, 300)

	suite.Require().Len(closed, 2)
	suite.Equal("BTC-USD", closed[0].Symbol)
	suite.Equal("ETH-USD", closed[1].Symbol)
	suite.Empty(p.OpenSymbols())

	// Both round trips gained 10%, so cash is 2500*1.1 * 2 + 5000.
	suite.True(p.Capital().Equal(decimal.NewFromInt(10500)), "capital %s", p.Capital())

	// A second call has nothing left to close.
	suite.Empty(p.ForceCloseAll(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(1)}, 360))
}

func (suite *MultiAssetPortfolioTestSuite) TestForceCloseAllSkipsUnpricedSymbols() {
	p := newTestPortfolio(suite, execConfigWithSize(0.25), execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	p.ProcessSignal(buySignal("ETH-USD"), decimal.NewFromInt(50), 60, nil)

	closed := p.ForceCloseAll(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(100)}, 300)

	suite.Len(closed, 1)
	suite.Equal([]string{"ETH-USD"}, p.OpenSymbols())
}

func (suite *MultiAssetPortfolioTestSuite) TestTotalEquity() {
	p := newTestPortfolio(suite, execConfigWithSize(0.5), execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)

	equity := p.TotalEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(120)})
	suite.True(equity.Equal(decimal.NewFromInt(11000)), "equity %s", equity)

	// Unpriced positions are excluded from the mark.
	equity = p.TotalEquity(map[string]decimal.Decimal{})
	suite.True(equity.Equal(decimal.NewFromInt(5000)), "equity %s", equity)
}

func (suite *MultiAssetPortfolioTestSuite) TestCircuitBreakerHaltsAndRecovers() {
	risk := execution.RiskConfig{
		CircuitBreakerPct: optional.Some(decimal.NewFromFloat(0.2)),
		RecoveryPct:       optional.Some(decimal.NewFromFloat(0.05)),
	}
	p := newTestPortfolio(suite, execConfigWithSize(1), risk)

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(100)})
	suite.False(p.Halted())

	// A 25% drop from the 10000 peak trips the breaker.
	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(75)})
	suite.True(p.Halted())

	// New entries are blocked while halted; exits still go through.
	p.ProcessSignal(buySignal("ETH-USD"), decimal.NewFromInt(50), 120, nil)
	suite.True(p.Position("ETH-USD").IsNone())

	// Recovery is measured from the halt equity: 7500 * 1.05 = 7875.
	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(78)})
	suite.True(p.Halted())

	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(79)})
	suite.False(p.Halted())
}

func (suite *MultiAssetPortfolioTestSuite) TestCircuitBreakerWithoutRecoveryStaysHalted() {
	risk := execution.RiskConfig{
		CircuitBreakerPct: optional.Some(decimal.NewFromFloat(0.1)),
	}
	p := newTestPortfolio(suite, execConfigWithSize(1), risk)

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 60, nil)
	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(100)})
	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(80)})
	suite.True(p.Halted())

	p.UpdateEquity(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(200)})
	suite.True(p.Halted())
}

func (suite *MultiAssetPortfolioTestSuite) TestInvalidExecutionConfigRejected() {
	cfg := execConfigWithSize(0.5)
	cfg.TakerFeePct = decimal.NewFromInt(2)

	_, err := NewMultiAssetPortfolio(decimal.NewFromInt(10000), cfg, execution.RiskConfig{})
	suite.Error(err)
}

func (suite *MultiAssetPortfolioTestSuite) TestCapitalConservationWithCosts() {
	cfg := execConfigWithSize(0.5)
	cfg.TakerFeePct = decimal.NewFromFloat(0.001)
	cfg.MakerFeePct = decimal.NewFromFloat(0.001)
	cfg.SlippagePct = decimal.NewFromFloat(0.002)
	p := newTestPortfolio(suite, cfg, execution.RiskConfig{})

	p.ProcessSignal(buySignal("BTC-USD"), decimal.NewFromInt(100), 0, nil)
	p.ProcessSignal(sellSignal("BTC-USD"), decimal.NewFromInt(107), 60, nil)
	p.ProcessSignal(buySignal("ETH-USD"), decimal.NewFromInt(50), 120, nil)
	p.ProcessSignal(sellSignal("ETH-USD"), decimal.NewFromInt(48), 180, nil)

	totalPnL := decimal.Zero
	for _, trade := range p.Trades() {
		totalPnL = totalPnL.Add(trade.PnL())
	}

	suite.True(p.Capital().Equal(decimal.NewFromInt(10000).Add(totalPnL)), "capital %s, pnl %s", p.Capital(), totalPnL)
}

// execConfigWithSize returns the zero-cost config with the given position
// size fraction, the shape most tests want as a starting point.
func execConfigWithSize(positionSizePct float64) execution.ExecutionConfig {
	cfg := execution.DefaultExecutionConfig()
	cfg.PositionSizePct = decimal.NewFromFloat(positionSizePct)

	return cfg
}
