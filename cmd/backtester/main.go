package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/quantlab-trading/backtester/internal/backtest/compare"
	"github.com/quantlab-trading/backtester/internal/backtest/engine"
	"github.com/quantlab-trading/backtester/internal/backtest/execution"
	"github.com/quantlab-trading/backtester/internal/backtest/montecarlo"
	"github.com/quantlab-trading/backtester/internal/backtest/walkforward"
	"github.com/quantlab-trading/backtester/internal/logger"
	"github.com/quantlab-trading/backtester/internal/strategy"
	"github.com/quantlab-trading/backtester/internal/types"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the YAML configuration file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Path of the YAML report to write; prints to stdout when omitted",
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   fmt.Sprintf("Candle provider (%s, %s, %s, %s)", providerCSV, providerDuckDB, providerBinance, providerPolygon),
			Value:   providerCSV,
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Path to the candle data file for file-backed providers",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log at debug level",
		},
	}
}

// newLogger builds the run logger, honoring the --verbose flag.
func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("verbose") {
		return logger.NewLogger(logger.WithLevel(zapcore.DebugLevel))
	}

	return logger.NewLogger()
}

// progressCallback renders a progress bar sized lazily from the first
// callback, since the engine only learns the candle count after fetching.
func progressCallback(description string) engine.OnProgress {
	var bar *progressbar.ProgressBar

	return func(current, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(description)
		}

		_ = bar.Set(current)
	}
}

// emitYAML writes v to the --output path, or to stdout when none is given.
func emitYAML(cmd *cli.Command, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if out := cmd.String("output"); out != "" {
		return os.WriteFile(out, data, 0644)
	}

	fmt.Print(string(data))

	return nil
}

func readConfigInto(cmd *cli.Command, v any) error {
	data, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

// runBacktest executes the configured run on the single or multi asset
// engine, picking the engine by whether the config lists symbols.
func runBacktest(ctx context.Context, cmd *cli.Command, cfg engine.RunConfig, withProgress bool) (types.BacktestResult, error) {
	l, err := newLogger(cmd)
	if err != nil {
		return types.BacktestResult{}, err
	}
	defer func() { _ = l.Sync() }()

	p, closeProvider, err := buildProvider(cmd.String("provider"), cmd.String("data"))
	if err != nil {
		return types.BacktestResult{}, err
	}
	defer closeProvider()

	s, err := strategy.New(cfg.Strategy)
	if err != nil {
		return types.BacktestResult{}, err
	}

	if len(cfg.Symbols) > 0 {
		e := engine.NewMultiAssetEngine(p, s, cfg.Symbols, cfg.InitialCapital, cfg.Execution, cfg.Risk.RiskConfig(), l)
		if withProgress {
			e.SetOnProgress(progressCallback(fmt.Sprintf("Backtesting %s", s.Name())))
		}

		return e.Run(ctx, cfg.Interval, cfg.StartTime, cfg.EndTime)
	}

	risk := optional.None[execution.RiskConfig]()
	if cfg.Risk.Enabled() {
		risk = optional.Some(cfg.Risk.RiskConfig())
	}

	e := engine.NewEngine(p, s, cfg.InitialCapital, risk, l)
	if withProgress {
		e.SetOnProgress(progressCallback(fmt.Sprintf("Backtesting %s", s.Name())))
	}

	return e.Run(ctx, cfg.Symbol, cfg.Interval, cfg.StartTime, cfg.EndTime)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := engine.ParseRunConfig(data)
	if err != nil {
		return err
	}

	result, err := runBacktest(ctx, cmd, cfg, true)
	if err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" {
		return types.WriteBacktestResults(out, []types.BacktestResult{result})
	}

	return emitYAML(cmd, result)
}

func compareAction(ctx context.Context, cmd *cli.Command) error {
	var cfg compare.Config
	if err := readConfigInto(cmd, &cfg); err != nil {
		return err
	}

	l, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	p, closeProvider, err := buildProvider(cmd.String("provider"), cmd.String("data"))
	if err != nil {
		return err
	}
	defer closeProvider()

	rows, err := compare.Run(ctx, p, cfg, l)
	if err != nil {
		return err
	}

	return emitYAML(cmd, rows)
}

func monteCarloAction(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	runCfg, err := engine.ParseRunConfig(data)
	if err != nil {
		return err
	}

	result, err := runBacktest(ctx, cmd, runCfg, false)
	if err != nil {
		return err
	}

	mcCfg := montecarlo.Config{
		NumShuffles: int(cmd.Int("shuffles")),
		Workers:     int(cmd.Int("workers")),
		OnProgress:  optional.Some[func(completed, total int)](progressCallback("Shuffling trades")),
	}

	if cmd.IsSet("seed") {
		mcCfg.Seed = optional.Some(int64(cmd.Int("seed")))
	}

	mcResult, err := montecarlo.Run(result, mcCfg)
	if err != nil {
		return err
	}

	return emitYAML(cmd, mcResult)
}

func walkForwardAction(ctx context.Context, cmd *cli.Command) error {
	var cfg walkforward.Config
	if err := readConfigInto(cmd, &cfg); err != nil {
		return err
	}

	l, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	p, closeProvider, err := buildProvider(cmd.String("provider"), cmd.String("data"))
	if err != nil {
		return err
	}
	defer closeProvider()

	cfg.OnProgress = optional.Some[func(completed, total int)](progressCallback("Walking forward"))

	result, err := walkforward.Run(ctx, p, cfg, l)
	if err != nil {
		return err
	}

	return emitYAML(cmd, result)
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema, err := engine.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	// API keys may live in a local .env file; missing files are fine.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "backtester",
		Usage: "Candle-driven strategy backtesting",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run a single backtest from a YAML config",
				Flags:  configFlags(),
				Action: runAction,
			},
			{
				Name:   "compare",
				Usage:  "Rank several strategies over the same data",
				Flags:  configFlags(),
				Action: compareAction,
			},
			{
				Name:  "monte-carlo",
				Usage: "Shuffle a backtest's trades to estimate metric stability",
				Flags: append(configFlags(),
					&cli.IntFlag{
						Name:  "shuffles",
						Usage: "Number of random permutations",
						Value: montecarlo.DefaultNumShuffles,
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Seed for reproducible shuffles; random when omitted",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Parallel shuffle workers; defaults to GOMAXPROCS",
					},
				),
				Action: monteCarloAction,
			},
			{
				Name:   "walk-forward",
				Usage:  "Rolling out-of-sample strategy validation",
				Flags:  configFlags(),
				Action: walkForwardAction,
			},
			{
				Name:   "download",
				Usage:  "Download candles from a remote provider into a local file",
				Flags:  downloadFlags(),
				Action: downloadAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
