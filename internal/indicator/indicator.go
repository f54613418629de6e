// Package indicator provides pure technical indicator functions computed
// over candle slices. All arithmetic is decimal so repeated evaluation over
// long histories stays exact; the only inexact step is the square root used
// by volatility measures. Callers with insufficient history receive an
// *errors.InsufficientDataError rather than a partial value.
package indicator

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// SMA computes the simple moving average of close prices over the last
// period candles.
func SMA(candles []types.Candle, period int) (decimal.Decimal, error) {
	if len(candles) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(candles), "",
			"need at least %d candles for SMA, got %d", period, len(candles))
	}

	sum := decimal.Zero
	for _, c := range candles[len(candles)-period:] {
		sum = sum.Add(c.Close)
	}

	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// EMAFromValues computes the exponential moving average over raw decimal
// values. The EMA is seeded with the SMA of the first period values, then
// smoothed with k = 2/(period+1).
func EMAFromValues(values []decimal.Decimal, period int) (decimal.Decimal, error) {
	if len(values) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(values), "",
			"need at least %d values for EMA, got %d", period, len(values))
	}

	seed := decimal.Zero
	for _, v := range values[:period] {
		seed = seed.Add(v)
	}

	result := seed.Div(decimal.NewFromInt(int64(period)))
	multiplier := two.Div(decimal.NewFromInt(int64(period)).Add(one))

	for _, v := range values[period:] {
		result = v.Sub(result).Mul(multiplier).Add(result)
	}

	return result, nil
}

// EMASeries returns the running EMA for every index once the seed window is
// full: element i of the result is the EMA over values[:period+i]. The
// result has len(values)-period+1 elements.
func EMASeries(values []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(values) < period {
		return nil, errors.NewInsufficientDataErrorf(period, len(values), "",
			"need at least %d values for EMA series, got %d", period, len(values))
	}

	seed := decimal.Zero
	for _, v := range values[:period] {
		seed = seed.Add(v)
	}

	series := make([]decimal.Decimal, 0, len(values)-period+1)
	current := seed.Div(decimal.NewFromInt(int64(period)))
	series = append(series, current)

	multiplier := two.Div(decimal.NewFromInt(int64(period)).Add(one))
	for _, v := range values[period:] {
		current = v.Sub(current).Mul(multiplier).Add(current)
		series = append(series, current)
	}

	return series, nil
}

// EMA computes the exponential moving average of close prices.
func EMA(candles []types.Candle, period int) (decimal.Decimal, error) {
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return EMAFromValues(closes, period)
}

// RollingStd computes the population standard deviation of close prices
// over the last period candles. Population (divide by N) keeps it
// consistent with Bollinger band and z-score style consumers.
func RollingStd(candles []types.Candle, period int) (decimal.Decimal, error) {
	if len(candles) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(candles), "",
			"need at least %d candles for rolling std, got %d", period, len(candles))
	}

	window := candles[len(candles)-period:]
	n := decimal.NewFromInt(int64(period))

	mean := decimal.Zero
	for _, c := range window {
		mean = mean.Add(c.Close)
	}

	mean = mean.Div(n)

	variance := decimal.Zero

	for _, c := range window {
		diff := c.Close.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}

	variance = variance.Div(n)

	return sqrt(variance), nil
}

// ATR computes the Average True Range over the last period candles.
// True range needs the previous close, so period+1 candles are required.
func ATR(candles []types.Candle, period int) (decimal.Decimal, error) {
	needed := period + 1
	if len(candles) < needed {
		return decimal.Zero, errors.NewInsufficientDataErrorf(needed, len(candles), "",
			"need at least %d candles for ATR(%d), got %d", needed, period, len(candles))
	}

	recent := candles[len(candles)-needed:]
	sum := decimal.Zero

	for i := 1; i < len(recent); i++ {
		sum = sum.Add(trueRange(recent[i], recent[i-1].Close))
	}

	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// RSI computes the Relative Strength Index using Wilder's smoothing over
// the whole candle series. Requires period+1 candles.
func RSI(candles []types.Candle, period int) (decimal.Decimal, error) {
	needed := period + 1
	if len(candles) < needed {
		return decimal.Zero, errors.NewInsufficientDataErrorf(needed, len(candles), "",
			"need at least %d candles for RSI(%d), got %d", needed, period, len(candles))
	}

	deltas := make([]decimal.Decimal, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		deltas = append(deltas, candles[i].Close.Sub(candles[i-1].Close))
	}

	n := decimal.NewFromInt(int64(period))
	avgGain := decimal.Zero
	avgLoss := decimal.Zero

	for _, delta := range deltas[:period] {
		avgGain = avgGain.Add(decimal.Max(delta, decimal.Zero))
		avgLoss = avgLoss.Add(decimal.Max(delta.Neg(), decimal.Zero))
	}

	avgGain = avgGain.Div(n)
	avgLoss = avgLoss.Div(n)

	for _, delta := range deltas[period:] {
		gain := decimal.Max(delta, decimal.Zero)
		loss := decimal.Max(delta.Neg(), decimal.Zero)
		avgGain = avgGain.Mul(n.Sub(one)).Add(gain).Div(n)
		avgLoss = avgLoss.Mul(n.Sub(one)).Add(loss).Div(n)
	}

	return RSIFromAverages(avgGain, avgLoss), nil
}

// RSIFromAverages converts Wilder average gain/loss into an RSI value.
// A zero average loss pins the RSI at 100.
func RSIFromAverages(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return hundred
	}

	rs := avgGain.Div(avgLoss)

	return hundred.Sub(hundred.Div(one.Add(rs)))
}

// Correlation computes the Pearson correlation coefficient of close prices
// between two candle series over the last period candles of each. A series
// with zero variance yields zero.
func Correlation(candlesA, candlesB []types.Candle, period int) (decimal.Decimal, error) {
	if len(candlesA) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(candlesA), "",
			"need at least %d candles for correlation, series A has %d", period, len(candlesA))
	}

	if len(candlesB) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(candlesB), "",
			"need at least %d candles for correlation, series B has %d", period, len(candlesB))
	}

	windowA := candlesA[len(candlesA)-period:]
	windowB := candlesB[len(candlesB)-period:]
	n := decimal.NewFromInt(int64(period))

	meanA := decimal.Zero
	meanB := decimal.Zero

	for i := 0; i < period; i++ {
		meanA = meanA.Add(windowA[i].Close)
		meanB = meanB.Add(windowB[i].Close)
	}

	meanA = meanA.Div(n)
	meanB = meanB.Div(n)

	cov := decimal.Zero
	varA := decimal.Zero
	varB := decimal.Zero

	for i := 0; i < period; i++ {
		diffA := windowA[i].Close.Sub(meanA)
		diffB := windowB[i].Close.Sub(meanB)
		cov = cov.Add(diffA.Mul(diffB))
		varA = varA.Add(diffA.Mul(diffA))
		varB = varB.Add(diffB.Mul(diffB))
	}

	if varA.IsZero() || varB.IsZero() {
		return decimal.Zero, nil
	}

	cov = cov.Div(n)
	varA = varA.Div(n)
	varB = varB.Div(n)

	return cov.Div(sqrt(varA).Mul(sqrt(varB))), nil
}

// ADX computes the Average Directional Index, a 0..100 trend strength
// measure built from Wilder-smoothed directional movement and true range.
// Requires 2*period+1 candles: period+1 for the initial DI values and
// period more for the ADX smoothing.
func ADX(candles []types.Candle, period int) (decimal.Decimal, error) {
	needed := 2*period + 1
	if len(candles) < needed {
		return decimal.Zero, errors.NewInsufficientDataErrorf(needed, len(candles), "",
			"need at least %d candles for ADX(%d), got %d", needed, period, len(candles))
	}

	n := decimal.NewFromInt(int64(period))

	trList := make([]decimal.Decimal, 0, len(candles)-1)
	plusDMList := make([]decimal.Decimal, 0, len(candles)-1)
	minusDMList := make([]decimal.Decimal, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		curr := candles[i]
		prev := candles[i-1]

		trList = append(trList, trueRange(curr, prev.Close))

		upMove := curr.High.Sub(prev.High)
		downMove := prev.Low.Sub(curr.Low)

		plusDM := decimal.Zero
		if upMove.GreaterThan(downMove) && upMove.IsPositive() {
			plusDM = upMove
		}

		minusDM := decimal.Zero
		if downMove.GreaterThan(upMove) && downMove.IsPositive() {
			minusDM = downMove
		}

		plusDMList = append(plusDMList, plusDM)
		minusDMList = append(minusDMList, minusDM)
	}

	smoothedTR := sumDecimals(trList[:period])
	smoothedPlusDM := sumDecimals(plusDMList[:period])
	smoothedMinusDM := sumDecimals(minusDMList[:period])

	dxValues := []decimal.Decimal{directionalIndex(smoothedTR, smoothedPlusDM, smoothedMinusDM)}

	for i := period; i < len(trList); i++ {
		smoothedTR = smoothedTR.Sub(smoothedTR.Div(n)).Add(trList[i])
		smoothedPlusDM = smoothedPlusDM.Sub(smoothedPlusDM.Div(n)).Add(plusDMList[i])
		smoothedMinusDM = smoothedMinusDM.Sub(smoothedMinusDM.Div(n)).Add(minusDMList[i])
		dxValues = append(dxValues, directionalIndex(smoothedTR, smoothedPlusDM, smoothedMinusDM))
	}

	if len(dxValues) < period {
		return sumDecimals(dxValues).Div(decimal.NewFromInt(int64(len(dxValues)))), nil
	}

	adx := sumDecimals(dxValues[:period]).Div(n)
	for _, dx := range dxValues[period:] {
		adx = adx.Mul(n.Sub(one)).Add(dx).Div(n)
	}

	return adx, nil
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(c types.Candle, prevClose decimal.Decimal) decimal.Decimal {
	return decimal.Max(
		c.High.Sub(c.Low),
		c.High.Sub(prevClose).Abs(),
		c.Low.Sub(prevClose).Abs(),
	)
}

// directionalIndex computes a single DX value from smoothed TR and DM sums.
func directionalIndex(smoothedTR, smoothedPlusDM, smoothedMinusDM decimal.Decimal) decimal.Decimal {
	if smoothedTR.IsZero() {
		return decimal.Zero
	}

	plusDI := smoothedPlusDM.Div(smoothedTR).Mul(hundred)
	minusDI := smoothedMinusDM.Div(smoothedTR).Mul(hundred)

	diSum := plusDI.Add(minusDI)
	if diSum.IsZero() {
		return decimal.Zero
	}

	return plusDI.Sub(minusDI).Abs().Div(diSum).Mul(hundred)
}

func sumDecimals(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}

	return sum
}

// sqrt routes through float64; decimal has no exact square root and the
// consumers (volatility, correlation) tolerate float precision here.
func sqrt(d decimal.Decimal) decimal.Decimal {
	f, _ := d.Float64()
	if f <= 0 {
		return decimal.Zero
	}

	return decimal.NewFromFloat(math.Sqrt(f))
}
