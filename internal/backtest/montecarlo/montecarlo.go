// Package montecarlo estimates how sensitive a backtest's metrics are to
// trade ordering. Each shuffle permutes the trade ledger, rebuilds the
// equity path, and recomputes the order-dependent metrics; the per-metric
// distributions across shuffles show how much of the original result is
// path luck.
package montecarlo

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/moznion/go-optional"

	"github.com/quantlab-trading/backtester/internal/backtest/metrics"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// DefaultNumShuffles is used when the config leaves NumShuffles at zero.
const DefaultNumShuffles = 1000

// trackedMetrics are recomputed per shuffle. Total return is order
// invariant but kept for symmetry with the other two.
var trackedMetrics = []string{"total_return", "max_drawdown", "sharpe_ratio"}

// Config controls a simulation run.
type Config struct {
	// NumShuffles is the number of random permutations; zero means the
	// default of 1000.
	NumShuffles int
	// Seed makes the run reproducible. None draws from global randomness.
	Seed optional.Option[int64]
	// Workers caps the parallel shuffle workers; zero means GOMAXPROCS.
	Workers int
	// OnProgress, when set, is called after each completed shuffle.
	OnProgress optional.Option[func(completed, total int)]
}

// Distribution summarizes one metric across all shuffles.
type Distribution struct {
	MetricName string  `yaml:"metric_name"`
	Mean       float64 `yaml:"mean"`
	Std        float64 `yaml:"std"`
	P5         float64 `yaml:"p5"`
	P25        float64 `yaml:"p25"`
	P50        float64 `yaml:"p50"`
	P75        float64 `yaml:"p75"`
	P95        float64 `yaml:"p95"`
}

// Result is the immutable outcome of a simulation.
type Result struct {
	NumShuffles   int                  `yaml:"num_shuffles"`
	Original      types.BacktestResult `yaml:"original"`
	Distributions []Distribution       `yaml:"distributions"`
}

// Run shuffles the result's trade ledger and summarizes the metric
// distributions. At least two trades are required; with fewer there is
// nothing to permute.
func Run(result types.BacktestResult, cfg Config) (Result, error) {
	if len(result.Trades) < 2 {
		return Result{}, errors.Newf(errors.ErrCodeInsufficientTrades,
			"monte carlo needs at least 2 trades, got %d", len(result.Trades))
	}

	numShuffles := cfg.NumShuffles
	if numShuffles <= 0 {
		numShuffles = DefaultNumShuffles
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	baseSeed := cfg.Seed.TakeOr(rand.Int63())

	// Each shuffle writes into its own slot, so worker scheduling cannot
	// change the aggregate.
	samples := make([]map[string]float64, numShuffles)

	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
	)

	completed := 0
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				// An independent generator per shuffle keeps the output
				// deterministic under any worker count.
				rng := rand.New(rand.NewSource(baseSeed + int64(i)))
				samples[i] = shuffleOnce(result, rng)

				if cfg.OnProgress.IsSome() {
					progressMu.Lock()
					completed++
					cfg.OnProgress.Unwrap()(completed, numShuffles)
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := 0; i < numShuffles; i++ {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	distributions := make([]Distribution, 0, len(trackedMetrics))
	for _, name := range trackedMetrics {
		values := make([]float64, numShuffles)
		for i, sample := range samples {
			values[i] = sample[name]
		}

		distributions = append(distributions, summarize(name, values))
	}

	return Result{
		NumShuffles:   numShuffles,
		Original:      result,
		Distributions: distributions,
	}, nil
}

// shuffleOnce permutes the ledger and recomputes the tracked metrics over
// the shuffled order. The final capital is rebuilt from the shuffled trade
// PnLs rather than taken from the original result, so every metric reflects
// the same replayed ledger.
func shuffleOnce(result types.BacktestResult, rng *rand.Rand) map[string]float64 {
	shuffled := make([]types.Trade, len(result.Trades))
	copy(shuffled, result.Trades)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	final := result.InitialCapital
	for _, trade := range shuffled {
		final = final.Add(trade.PnL())
	}

	return map[string]float64{
		"total_return": metrics.TotalReturn(result.InitialCapital, final),
		"max_drawdown": metrics.MaxDrawdown(result.InitialCapital, shuffled),
		"sharpe_ratio": metrics.SharpeRatio(shuffled),
	}
}

// summarize computes mean, population standard deviation, and nearest-rank
// percentiles over the sample.
func summarize(name string, values []float64) Distribution {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}

	variance /= float64(len(values))

	return Distribution{
		MetricName: name,
		Mean:       mean,
		Std:        math.Sqrt(variance),
		P5:         percentile(sorted, 5),
		P25:        percentile(sorted, 25),
		P50:        percentile(sorted, 50),
		P75:        percentile(sorted, 75),
		P95:        percentile(sorted, 95),
	}
}

// percentile selects by nearest rank: index = clamp(0, n-1, floor(n*pct/100))
// on the ascending-sorted sample.
func percentile(sorted []float64, pct int) float64 {
	index := len(sorted) * pct / 100
	if index > len(sorted)-1 {
		index = len(sorted) - 1
	}

	if index < 0 {
		index = 0
	}

	return sorted[index]
}
