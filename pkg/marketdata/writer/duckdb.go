package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// DuckDBWriter buffers candles in an in-memory DuckDB table and exports them on Finalize.
// The export format follows the extension of the output path: .parquet or .csv.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	format     string
}

// NewDuckDBWriter creates a new DuckDBWriter writing to outputPath.
func NewDuckDBWriter(outputPath string) CandleWriter {
	return &DuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize implements CandleWriter.
func (w *DuckDBWriter) Initialize() (err error) {
	switch strings.ToLower(filepath.Ext(w.outputPath)) {
	case ".parquet":
		w.format = "PARQUET"
	case ".csv":
		w.format = "CSV, HEADER"
	default:
		return errors.NewConfig(errors.ErrCodeInvalidConfiguration, "output",
			fmt.Sprintf("unsupported output extension %q, expected .parquet or .csv", filepath.Ext(w.outputPath)))
	}

	w.db, err = sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to open DuckDB connection", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			id TEXT,
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		_ = w.db.Close()
		w.db = nil

		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to create table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		_ = w.db.Close()
		w.db = nil

		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO market_data (id, time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = w.tx.Rollback()
		_ = w.db.Close()
		w.tx = nil
		w.db = nil

		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to prepare statement", err)
	}

	return nil
}

// Write implements CandleWriter.
func (w *DuckDBWriter) Write(symbol string, candle types.Candle) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeDataSourceFailed, "writer not initialized or statement is nil")
	}

	_, err := w.stmt.Exec(
		uuid.New().String(),
		candle.Time,
		symbol,
		candle.Open,
		candle.High,
		candle.Low,
		candle.Close,
		candle.Volume,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to insert candle", err)
	}

	return nil
}

// WriteSeries implements CandleWriter.
func (w *DuckDBWriter) WriteSeries(series *types.Series) error {
	for i := 0; i < series.Len(); i++ {
		if err := w.Write(series.Symbol(), series.At(i)); err != nil {
			return err
		}
	}

	return nil
}

// Finalize commits the transaction and exports the table to the output file.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeDataSourceFailed, "writer not initialized or transaction is nil")
	}

	if err = w.stmt.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to close statement", err)
	}

	w.stmt = nil

	if err = w.tx.Commit(); err != nil {
		_ = w.tx.Rollback()
		w.tx = nil

		return "", errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to commit transaction", err)
	}

	w.tx = nil

	// COPY takes no parameters; the path is quoted as a SQL literal
	query := fmt.Sprintf(`COPY (SELECT * FROM market_data ORDER BY symbol, time) TO '%s' (FORMAT %s)`,
		strings.ReplaceAll(w.outputPath, "'", "''"), w.format)
	if _, err = w.db.Exec(query); err != nil {
		return "", errors.Wrap(errors.ErrCodeDataSourceFailed, "failed to export market data", err)
	}

	return w.outputPath, nil
}

// Close releases the statement, transaction and database. It may be called more than once.
func (w *DuckDBWriter) Close() error {
	var closeErrors []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close statement: %w", err))
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to rollback transaction: %w", err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close db connection: %w", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return errors.Wrap(errors.ErrCodeDataSourceFailed, "errors occurred during close", closeErrors[0])
	}

	return nil
}

// GetOutputPath implements CandleWriter.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}
