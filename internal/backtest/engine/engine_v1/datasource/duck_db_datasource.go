package datasource

import (
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	rawView    = "raw_market_data"
	marketView = "market_data"
)

// timeColumns are tried in order when looking for the bar time.
var timeColumns = []string{"time", "timestamp", "date"}

// symbolColumns are tried in order when looking for the ticker.
var symbolColumns = []string{"symbol", "ticker"}

var requiredColumns = []string{"open", "high", "low", "close", "volume"}

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// An empty path keeps the database in memory.
// This is distinct from Initialize() which loads market data into the database.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to connect to duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource.
//
// The parquet columns are normalized into the market_data view:
// time comes from time, timestamp or date; adj_close falls back to close;
// when there is no symbol or ticker column the symbol is taken from the
// file name, so price_aapl.parquet yields AAPL.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	for _, view := range []string{marketView, rawView} {
		if _, err := d.db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s;", view)); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
		}
	}

	// Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW %s AS
		SELECT * FROM read_parquet('%s', filename = true);
	`, rawView, escapeLiteral(path))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read parquet %s", path)
	}

	columns, err := d.columns(rawView)
	if err != nil {
		return err
	}

	projection, err := buildProjection(columns)
	if err != nil {
		return err
	}

	query = fmt.Sprintf("CREATE VIEW %s AS SELECT %s FROM %s;", marketView, projection, rawView)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create market data view", err)
	}

	d.logger.Debug("Market data view created",
		zap.String("path", path),
		zap.Strings("columns", columnNames(columns)),
	)

	return nil
}

// columns returns the lower-cased column names of a view mapped to their original spelling.
func (d *DuckDBDataSource) columns(view string) (map[string]string, error) {
	query, args, err := d.sq.
		Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": view}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build column query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to describe market data", err)
	}
	defer rows.Close()

	columns := make(map[string]string)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns[strings.ToLower(name)] = name
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating columns", err)
	}

	return columns, nil
}

func buildProjection(columns map[string]string) (string, error) {
	timeColumn, ok := firstPresent(columns, timeColumns)
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidMarketData, "market data has no time column, expected one of %v", timeColumns)
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return "", errors.Newf(errors.ErrCodeInvalidMarketData, "market data has no %s column", required)
		}
	}

	symbol := `upper(regexp_extract(filename, '(?:price_)?([^/\\]+)\.parquet$', 1))`
	if symbolColumn, ok := firstPresent(columns, symbolColumns); ok {
		symbol = quoteIdent(symbolColumn)
	}

	adjClose := fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdent(columns["close"]))
	if name, ok := columns["adj_close"]; ok {
		adjClose = fmt.Sprintf("CAST(COALESCE(%s, %s) AS DOUBLE)", quoteIdent(name), quoteIdent(columns["close"]))
	}

	parts := []string{
		fmt.Sprintf("CAST(%s AS TIMESTAMP) AS time", quoteIdent(timeColumn)),
		fmt.Sprintf("CAST(%s AS VARCHAR) AS symbol", symbol),
	}

	for _, name := range []string{"open", "high", "low", "close"} {
		parts = append(parts, fmt.Sprintf("CAST(%s AS DOUBLE) AS %s", quoteIdent(columns[name]), name))
	}

	parts = append(parts,
		adjClose+" AS adj_close",
		fmt.Sprintf("CAST(%s AS DOUBLE) AS volume", quoteIdent(columns["volume"])),
	)

	return strings.Join(parts, ", "), nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := withTimeRange(d.sq.Select("COUNT(*)").From(marketView), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count market data", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.MarketDataPoint, error] {
	return func(yield func(types.MarketDataPoint, error) bool) {
		d.logger.Debug("Reading all data from DuckDB")

		query, args, err := withTimeRange(
			d.sq.Select("time", "symbol", "open", "high", "low", "close", "adj_close", "volume").From(marketView),
			start, end,
		).OrderBy("time ASC", "symbol ASC").ToSql()
		if err != nil {
			yield(types.MarketDataPoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build read query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.MarketDataPoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				timestamp                                time.Time
				symbol                                   string
				open, high, low, close, adjClose, volume float64
			)

			if err := rows.Scan(&timestamp, &symbol, &open, &high, &low, &close, &adjClose, &volume); err != nil {
				yield(types.MarketDataPoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err))

				return
			}

			point, err := types.NewOHLCVPoint(timestamp, symbol, open, high, low, close, adjClose, volume)
			if err != nil {
				yield(types.MarketDataPoint{}, err)

				return
			}

			if !yield(point, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketDataPoint{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err))
		}
	}
}

// Symbols implements DataSource.
func (d *DuckDBDataSource) Symbols() ([]string, error) {
	query, args, err := d.sq.Select("DISTINCT symbol").From(marketView).OrderBy("symbol").ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	return symbols, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

func withTimeRange(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return builder
}

func firstPresent(columns map[string]string, candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if name, ok := columns[candidate]; ok {
			return name, true
		}
	}

	return "", false
}

func columnNames(columns map[string]string) []string {
	names := make([]string, 0, len(columns))
	for _, name := range columns {
		names = append(names, name)
	}

	return names
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
