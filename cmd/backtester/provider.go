package main

import (
	"fmt"
	"os"

	"github.com/quantlab-trading/backtester/pkg/provider"
)

const (
	providerCSV     = "csv"
	providerDuckDB  = "duckdb"
	providerBinance = "binance"
	providerPolygon = "polygon"
)

// buildProvider constructs the candle provider selected by the --provider
// flag. The returned close function releases provider resources and is safe
// to call unconditionally.
func buildProvider(name, dataPath string) (provider.CandleProvider, func(), error) {
	noop := func() {}

	switch name {
	case providerCSV:
		if dataPath == "" {
			return nil, noop, fmt.Errorf("the %s provider needs --data pointing at a candle file", providerCSV)
		}

		return provider.NewCSVProvider(dataPath), noop, nil

	case providerDuckDB:
		if dataPath == "" {
			return nil, noop, fmt.Errorf("the %s provider needs --data pointing at a database file", providerDuckDB)
		}

		p, err := provider.NewDuckDBProvider(dataPath)
		if err != nil {
			return nil, noop, err
		}

		return p, func() { _ = p.Close() }, nil

	case providerBinance:
		return provider.NewBinanceProvider(), noop, nil

	case providerPolygon:
		p, err := provider.NewPolygonProvider(os.Getenv("POLYGON_API_KEY"))
		if err != nil {
			return nil, noop, err
		}

		return p, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown provider %q, expected one of %s, %s, %s, %s",
		name, providerCSV, providerDuckDB, providerBinance, providerPolygon)
}
