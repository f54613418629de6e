package provider

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/quantlab-trading/backtester/internal/types"
	"github.com/quantlab-trading/backtester/pkg/errors"
)

// DuckDBProvider reads candles from a DuckDB database with a candles table
// of (symbol, timestamp, open, high, low, close, volume, interval). DuckDB
// also reads Parquet and CSV transparently, which makes it the workhorse for
// large local datasets.
type DuckDBProvider struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

// NewDuckDBProvider opens the database at path. An empty path opens an
// in-memory database.
func NewDuckDBProvider(path string) (*DuckDBProvider, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open DuckDB at %q", path)
	}

	return &DuckDBProvider{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close releases the underlying database handle.
func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}

// InitializeSchema creates the candles table when it does not exist yet.
func (p *DuckDBProvider) InitializeSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol VARCHAR NOT NULL,
			timestamp BIGINT NOT NULL,
			open DOUBLE NOT NULL,
			high DOUBLE NOT NULL,
			low DOUBLE NOT NULL,
			close DOUBLE NOT NULL,
			volume DOUBLE NOT NULL,
			interval VARCHAR NOT NULL
		);
	`)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create candles table")
	}

	return nil
}

// WriteCandles appends candles to the table.
func (p *DuckDBProvider) WriteCandles(ctx context.Context, candles []types.Candle) error {
	builder := p.sq.Insert("candles").
		Columns("symbol", "timestamp", "open", "high", "low", "close", "volume", "interval")

	for _, c := range candles {
		builder = builder.Values(
			c.Symbol,
			c.Timestamp,
			c.Open.InexactFloat64(),
			c.High.InexactFloat64(),
			c.Low.InexactFloat64(),
			c.Close.InexactFloat64(),
			c.Volume.InexactFloat64(),
			string(c.Interval),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to build insert query")
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert candles")
	}

	return nil
}

func (p *DuckDBProvider) GetCandles(ctx context.Context, symbol string, interval types.Interval, startTime, endTime int64) ([]types.Candle, error) {
	conditions := squirrel.And{}

	if symbol != "" {
		conditions = append(conditions, squirrel.Eq{"symbol": symbol})
	}

	if interval != "" {
		conditions = append(conditions, squirrel.Eq{"interval": string(interval)})
	}

	if startTime != 0 {
		conditions = append(conditions, squirrel.GtOrEq{"timestamp": startTime})
	}

	if endTime != 0 {
		conditions = append(conditions, squirrel.LtOrEq{"timestamp": endTime})
	}

	builder := p.sq.
		Select("symbol", "timestamp", "open", "high", "low", "close", "volume", "interval").
		From("candles").
		OrderBy("timestamp ASC")

	if len(conditions) > 0 {
		builder = builder.Where(conditions)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to build candle query")
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query candles")
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var (
			candle                         types.Candle
			open, high, low, close, volume float64
			intervalStr                    string
		)

		if err := rows.Scan(&candle.Symbol, &candle.Timestamp, &open, &high, &low, &close, &volume, &intervalStr); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to scan candle row")
		}

		candle.Open = decimal.NewFromFloat(open)
		candle.High = decimal.NewFromFloat(high)
		candle.Low = decimal.NewFromFloat(low)
		candle.Close = decimal.NewFromFloat(close)
		candle.Volume = decimal.NewFromFloat(volume)
		candle.Interval = types.Interval(intervalStr)

		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to iterate candle rows")
	}

	return candles, nil
}
