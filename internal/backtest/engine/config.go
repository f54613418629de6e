package engine

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/strategy"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// RunConfig is the declarative description of a backtest run. Symbol drives
// the single-asset engine; Symbols drives the multi-asset engine. Start and
// end times are Unix seconds; zero means unbounded.
type RunConfig struct {
	Symbol         string                    `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Symbols        []string                  `yaml:"symbols,omitempty" json:"symbols,omitempty"`
	Interval       types.Interval            `yaml:"interval" json:"interval" validate:"required"`
	StartTime      int64                     `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime        int64                     `yaml:"end_time,omitempty" json:"end_time,omitempty"`
	InitialCapital decimal.Decimal           `yaml:"initial_capital" json:"initial_capital" validate:"required"`
	Strategy       strategy.Config           `yaml:"strategy" json:"strategy" validate:"required"`
	Execution      execution.ExecutionConfig `yaml:"execution" json:"execution"`
	Risk           RiskSection               `yaml:"risk,omitempty" json:"risk,omitempty"`
}

// RiskSection is the YAML-facing shape of the risk thresholds. Nil fields
// mean the corresponding trigger is disabled.
type RiskSection struct {
	StopLossPct       *decimal.Decimal `yaml:"stop_loss_pct,omitempty" json:"stop_loss_pct,omitempty"`
	TakeProfitPct     *decimal.Decimal `yaml:"take_profit_pct,omitempty" json:"take_profit_pct,omitempty"`
	CircuitBreakerPct *decimal.Decimal `yaml:"circuit_breaker_pct,omitempty" json:"circuit_breaker_pct,omitempty"`
	RecoveryPct       *decimal.Decimal `yaml:"recovery_pct,omitempty" json:"recovery_pct,omitempty"`
}

// Enabled reports whether any risk trigger is configured.
func (r RiskSection) Enabled() bool {
	return r.StopLossPct != nil || r.TakeProfitPct != nil || r.CircuitBreakerPct != nil || r.RecoveryPct != nil
}

// RiskConfig converts the section into the execution layer representation.
func (r RiskSection) RiskConfig() execution.RiskConfig {
	return execution.RiskConfig{
		StopLossPct:       optional.FromNillable(r.StopLossPct),
		TakeProfitPct:     optional.FromNillable(r.TakeProfitPct),
		CircuitBreakerPct: optional.FromNillable(r.CircuitBreakerPct),
		RecoveryPct:       optional.FromNillable(r.RecoveryPct),
	}
}

var validate = validator.New()

// ParseRunConfig parses and validates a YAML run configuration. The
// execution section defaults to the zero-cost model when omitted.
func ParseRunConfig(data []byte) (RunConfig, error) {
	cfg := RunConfig{
		Execution: execution.DefaultExecutionConfig(),
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to parse run config")
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	return cfg, nil
}

// Validate checks structural constraints and the nested execution config.
func (c RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "invalid run config")
	}

	if c.Symbol == "" && len(c.Symbols) == 0 {
		return errors.New(errors.ErrCodeBacktestConfigError, "run config needs a symbol or a symbols list")
	}

	if _, err := types.ParseInterval(string(c.Interval)); err != nil {
		return err
	}

	if !c.InitialCapital.IsPositive() {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "initial capital must be positive, got %s", c.InitialCapital)
	}

	if c.EndTime != 0 && c.StartTime > c.EndTime {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "start time %d is after end time %d", c.StartTime, c.EndTime)
	}

	return c.Execution.Validate()
}

// GenerateSchema returns the JSON schema describing RunConfig, used by
// editors for config completion.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	return reflector.Reflect(&RunConfig{})
}

// GenerateSchemaJSON renders the RunConfig schema as indented JSON.
func GenerateSchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to marshal run config schema")
	}

	return string(data), nil
}
