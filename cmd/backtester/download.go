package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/quantlab-trading/backtester/internal/logger"
	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/provider"
)

const (
	formatDuckDB = "duckdb"
	formatCSV    = "csv"
)

func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Symbol to download",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Candle interval (1m, 5m, 15m, 1h, 4h, 1d, 1w)",
			Value:   string(types.Interval1h),
		},
		&cli.TimestampFlag{
			Name:     "start",
			Usage:    "Start date in `YYYY-MM-DD` format",
			Required: true,
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02"},
			},
		},
		&cli.TimestampFlag{
			Name:  "end",
			Usage: "End date in `YYYY-MM-DD` format; defaults to today",
			Value: time.Now(),
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02"},
			},
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   fmt.Sprintf("Source provider (%s, %s)", providerBinance, providerPolygon),
			Value:   providerBinance,
		},
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path of the output file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   fmt.Sprintf("Output format (%s, %s)", formatDuckDB, formatCSV),
			Value:   formatDuckDB,
		},
	}
}

// downloadAction fetches candles from a remote provider and stores them in a
// local file the backtest providers can read.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	source := cmd.String("provider")
	if source != providerBinance && source != providerPolygon {
		return fmt.Errorf("download needs a remote provider, got %q", source)
	}

	l, err := logger.NewLogger(logger.WithConsoleOutput())
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	interval, err := types.ParseInterval(cmd.String("interval"))
	if err != nil {
		return err
	}

	p, closeProvider, err := buildProvider(source, "")
	if err != nil {
		return err
	}
	defer closeProvider()

	symbol := cmd.String("symbol")
	start := cmd.Timestamp("start").Unix()
	end := cmd.Timestamp("end").Unix()

	l.Info("downloading candles",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.String("source", source),
	)

	candles, err := p.GetCandles(ctx, symbol, interval, start, end)
	if err != nil {
		return err
	}

	if err := writeDownload(ctx, cmd.String("format"), cmd.String("data"), candles); err != nil {
		return err
	}

	l.Info("download complete",
		zap.Int("candles", len(candles)),
		zap.String("path", cmd.String("data")),
	)

	return nil
}

func writeDownload(ctx context.Context, format, path string, candles []types.Candle) error {
	switch format {
	case formatDuckDB:
		db, err := provider.NewDuckDBProvider(path)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(); err != nil {
			return err
		}

		return db.WriteCandles(ctx, candles)

	case formatCSV:
		return provider.WriteCandlesCSV(path, candles)
	}

	return fmt.Errorf("unknown output format %q, expected %s or %s", format, formatDuckDB, formatCSV)
}
