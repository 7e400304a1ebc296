package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource opens an in-memory DuckDB database. Market data is attached with Initialize.
func NewDataSource(logger *logger.Logger) (CandleSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements CandleSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	reader, err := readerFor(path)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to drop existing view", err)
	}

	// squirrel has no CREATE VIEW; the path is quoted as a SQL literal
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM %s('%s');
	`, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, fmt.Sprintf("failed to read %s", path), err)
	}

	return nil
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "read_parquet", nil
	case ".csv":
		return "read_csv_auto", nil
	default:
		return "", errors.NewData(errors.ErrCodeDataSourceFailed, -1, "path",
			fmt.Sprintf("unsupported market data file %s, expected .parquet or .csv", path))
	}
}

// Symbols implements CandleSource.
func (d *DuckDBDataSource) Symbols(ctx context.Context) ([]string, error) {
	query, args, err := d.sq.Select("DISTINCT symbol").From("market_data").OrderBy("symbol").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return symbols, nil
}

// Count implements CandleSource.
func (d *DuckDBDataSource) Count(ctx context.Context, symbol string, start, end optional.Option[time.Time]) (int, error) {
	query, args, err := d.sq.Select("COUNT(*)").From("market_data").Where(bounds(symbol, start, end)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to count market data", err)
	}

	return count, nil
}

// Load implements CandleSource.
func (d *DuckDBDataSource) Load(ctx context.Context, params LoadParams) (*types.Series, error) {
	timeframe := params.Timeframe.Duration()
	if timeframe <= 0 {
		return nil, errors.NewConfig(errors.ErrCodeInvalidTimeframe, "timeframe",
			fmt.Sprintf("unsupported timeframe %q", params.Timeframe))
	}

	count, err := d.Count(ctx, params.Symbol, params.Start, params.End)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, errors.NewData(errors.ErrCodeNoDataFound, -1, "symbol",
			fmt.Sprintf("no market data for %s", params.Symbol))
	}

	query, args, err := d.buildLoadQuery(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	d.logger.Debug("Loading candles",
		zap.String("symbol", params.Symbol),
		zap.String("timeframe", string(params.Timeframe)),
		zap.Bool("resample", params.Resample),
		zap.Int("rows", count),
	)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to query market data", err)
	}
	defer rows.Close()

	candles := make([]types.Candle, 0, count)

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		c.Time = c.Time.UTC()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return types.NewSeries(params.Symbol, timeframe, candles)
}

func (d *DuckDBDataSource) buildLoadQuery(params LoadParams) (string, []any, error) {
	where := bounds(params.Symbol, params.Start, params.End)

	if !params.Resample {
		return d.sq.
			Select("time", "CAST(open AS DOUBLE)", "CAST(high AS DOUBLE)", "CAST(low AS DOUBLE)",
				"CAST(close AS DOUBLE)", "CAST(volume AS DOUBLE)").
			From("market_data").
			Where(where).
			OrderBy("time ASC").
			ToSql()
	}

	bucket := fmt.Sprintf("time_bucket(INTERVAL '%d seconds', time)", int64(params.Timeframe.Duration()/time.Second))

	return d.sq.
		Select(
			bucket+" AS bucket_time",
			"CAST(arg_min(open, time) AS DOUBLE)",
			"CAST(MAX(high) AS DOUBLE)",
			"CAST(MIN(low) AS DOUBLE)",
			"CAST(arg_max(close, time) AS DOUBLE)",
			"CAST(SUM(volume) AS DOUBLE)",
		).
		From("market_data").
		Where(where).
		GroupBy("bucket_time").
		OrderBy("bucket_time ASC").
		ToSql()
}

func bounds(symbol string, start, end optional.Option[time.Time]) squirrel.And {
	conditions := squirrel.And{squirrel.Eq{"symbol": symbol}}

	if start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return conditions
}

// Close implements CandleSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
