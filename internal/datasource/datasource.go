package datasource

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-signal/pkg/marketdata"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// LoadParams selects the candles of one instrument.
type LoadParams struct {
	Symbol string
	// Timeframe is the spacing of the returned series. When Resample is set, finer rows
	// are aggregated into buckets of this size.
	Timeframe marketdata.Timespan
	Resample  bool
	Start     optional.Option[time.Time]
	End       optional.Option[time.Time]
}

// CandleSource reads historical candles. It is read-only.
type CandleSource interface {
	// Initialize registers the parquet or csv file(s) at path. Glob patterns are accepted.
	Initialize(path string) error
	// Symbols lists the instruments present in the data.
	Symbols(ctx context.Context) ([]string, error)
	// Count returns the number of raw rows of symbol between the optional bounds.
	Count(ctx context.Context, symbol string, start, end optional.Option[time.Time]) (int, error)
	// Load returns the candles selected by params as a validated series.
	Load(ctx context.Context, params LoadParams) (*types.Series, error)
	// Close releases the underlying database.
	Close() error
}
