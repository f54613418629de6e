package execution

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/pkg/errors"
)

// ExecutionConfig holds the cost and sizing parameters applied when a
// portfolio opens or closes a position. All percentage fields are decimal
// fractions (0.01 means 1%).
type ExecutionConfig struct {
	// PositionSizePct caps the capital fraction committed to one position.
	PositionSizePct decimal.Decimal `yaml:"position_size_pct"`
	// TakerFeePct is charged on the allocation when opening.
	TakerFeePct decimal.Decimal `yaml:"taker_fee_pct"`
	// MakerFeePct is charged on the exit notional when closing.
	MakerFeePct decimal.Decimal `yaml:"maker_fee_pct"`
	// SlippagePct worsens the fill price on both legs.
	SlippagePct decimal.Decimal `yaml:"slippage_pct"`
	// VolatilitySizing scales the allocation by ATR when enough history exists.
	VolatilitySizing bool `yaml:"volatility_sizing"`
	// ATRPeriod is the lookback used for volatility sizing.
	ATRPeriod int `yaml:"atr_period"`
	// TargetRiskPct is the capital fraction one ATR move should risk.
	TargetRiskPct decimal.Decimal `yaml:"target_risk_pct"`
}

// DefaultExecutionConfig returns the zero-cost, full-deployment configuration.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		PositionSizePct:  decimal.NewFromInt(1),
		TakerFeePct:      decimal.Zero,
		MakerFeePct:      decimal.Zero,
		SlippagePct:      decimal.Zero,
		VolatilitySizing: false,
		ATRPeriod:        14,
		TargetRiskPct:    decimal.NewFromFloat(0.01),
	}
}

// Validate checks every percentage is within [0, 1] and the ATR period is
// positive. Invalid values are rejected, never clamped.
func (c ExecutionConfig) Validate() error {
	fields := map[string]decimal.Decimal{
		"position_size_pct": c.PositionSizePct,
		"taker_fee_pct":     c.TakerFeePct,
		"maker_fee_pct":     c.MakerFeePct,
		"slippage_pct":      c.SlippagePct,
		"target_risk_pct":   c.TargetRiskPct,
	}

	for name, value := range fields {
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(1)) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s must be between 0 and 1, got %s", name, value)
		}
	}

	if c.ATRPeriod <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "atr_period must be positive, got %d", c.ATRPeriod)
	}

	return nil
}

// RiskConfig holds optional risk-management thresholds. A None field means
// the corresponding trigger never fires.
type RiskConfig struct {
	// StopLossPct closes a position after an adverse move of this fraction.
	StopLossPct optional.Option[decimal.Decimal] `yaml:"stop_loss_pct"`
	// TakeProfitPct closes a position after a favorable move of this fraction.
	TakeProfitPct optional.Option[decimal.Decimal] `yaml:"take_profit_pct"`
	// CircuitBreakerPct halts new entries when portfolio drawdown from its
	// peak reaches this fraction.
	CircuitBreakerPct optional.Option[decimal.Decimal] `yaml:"circuit_breaker_pct"`
	// RecoveryPct resumes trading once equity recovers this fraction above
	// the level where the halt triggered.
	RecoveryPct optional.Option[decimal.Decimal] `yaml:"recovery_pct"`
}
