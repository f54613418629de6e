package portfolio

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// circuitBreaker halts new entries after a drawdown from peak equity and
// resumes them once equity recovers above the halt level. With no threshold
// configured it never trips.
type circuitBreaker struct {
	threshold  optional.Option[decimal.Decimal]
	recovery   optional.Option[decimal.Decimal]
	peakEquity decimal.Decimal
	haltEquity decimal.Decimal
	halted     bool
}

func newCircuitBreaker(threshold, recovery optional.Option[decimal.Decimal], initialEquity decimal.Decimal) circuitBreaker {
	return circuitBreaker{
		threshold:  threshold,
		recovery:   recovery,
		peakEquity: initialEquity,
	}
}

func (b *circuitBreaker) update(equity decimal.Decimal) {
	if b.threshold.IsNone() {
		return
	}

	if b.halted {
		// Without a recovery fraction the halt is permanent for the run.
		if b.recovery.IsNone() {
			return
		}

		resumeLevel := b.haltEquity.Mul(one.Add(b.recovery.Unwrap()))
		if equity.GreaterThanOrEqual(resumeLevel) {
			b.halted = false
			b.peakEquity = equity
		}

		return
	}

	if equity.GreaterThan(b.peakEquity) {
		b.peakEquity = equity
		return
	}

	if !b.peakEquity.IsPositive() {
		return
	}

	drawdown := b.peakEquity.Sub(equity).Div(b.peakEquity)
	if drawdown.GreaterThanOrEqual(b.threshold.Unwrap()) {
		b.halted = true
		b.haltEquity = equity
	}
}
