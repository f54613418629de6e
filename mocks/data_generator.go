package mocks

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
)

// DataGenerator produces synthetic candle series for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator. Use a fixed seed for reproducible
// series in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// Symbol of the generated series.
	Symbol string
	// StartTime is the Unix second of the first candle.
	StartTime int64
	// Interval is the candle bucket size.
	Interval types.Interval
	// Count is the number of candles to generate.
	Count int
	// InitialPrice is the starting price.
	InitialPrice float64
	// Volatility controls per-bar price movement (0.002 = 0.2% per bar).
	Volatility float64
	// Trend is the total drift over the series (-0.01 to 0.01).
	Trend float64
	// VolumeBase is the average volume per bar.
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0).
	VolumeVariance float64
}

// DefaultGeneratorConfig returns a neutral 1-minute series configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST-USD",
		StartTime:      1704103800,
		Interval:       types.Interval1m,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a candle series following geometric Brownian motion, so
// the prices look like a plausible market rather than a straight line.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime
	step := config.Interval.Seconds()

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed return.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension

		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			Symbol:    config.Symbol,
			Timestamp: currentTime,
			Open:      decimal.NewFromFloat(open).Round(4),
			High:      decimal.NewFromFloat(high).Round(4),
			Low:       decimal.NewFromFloat(low).Round(4),
			Close:     decimal.NewFromFloat(closePrice).Round(4),
			Volume:    decimal.NewFromFloat(volume).Round(2),
			Interval:  config.Interval,
		}

		currentPrice = closePrice
		currentTime += step
	}

	return candles
}

// GenerateMultiSymbol generates one series per symbol, varying the initial
// price and volatility a little so the symbols do not move in lockstep.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.Candle {
	var all []types.Candle

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		all = append(all, g.Generate(config)...)
	}

	return all
}
