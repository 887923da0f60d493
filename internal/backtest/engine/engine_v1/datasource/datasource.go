package datasource

import (
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataSource reads price history for the engine. Time bounds are inclusive.
type DataSource interface {
	// Initialize initializes the data source with the given data path in parquet format.
	// Globs are accepted, e.g. "data/*.parquet".
	Initialize(path string) error
	// ReadAll yields every point in (time, symbol) order. Iteration stops at the first error.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.MarketDataPoint, error]
	// Count returns the number of rows in the data source
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Symbols returns the distinct symbols, sorted.
	Symbols() ([]string, error)
	// Close closes the data source and releases any resources
	Close() error
}
