package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	// OrdersFileName is the parquet export of the filled order log.
	OrdersFileName = "orders.parquet"
	// PositionsFileName is the parquet export of the final positions.
	PositionsFileName = "positions.parquet"
)

// BacktestState holds the results of a run in an in-memory DuckDB database:
// the filled order log, the final positions and the final cash of every strategy.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open state database", err)
	}

	state := &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := state.Initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return state, nil
}

// Initialize creates the orders, positions and portfolios tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS order_seq;
		CREATE TABLE IF NOT EXISTS orders (
			seq INTEGER PRIMARY KEY DEFAULT nextval('order_seq'),
			order_id TEXT,
			strategy TEXT,
			timestamp TIMESTAMP,
			symbol TEXT,
			action TEXT,
			quantity DOUBLE,
			price DOUBLE,
			status TEXT
		);
		CREATE TABLE IF NOT EXISTS positions (
			strategy TEXT,
			symbol TEXT,
			quantity DOUBLE,
			avg_price DOUBLE
		);
		CREATE TABLE IF NOT EXISTS portfolios (
			strategy TEXT PRIMARY KEY,
			capital DOUBLE,
			earnings DOUBLE
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create state tables", err)
	}

	return nil
}

// RecordOrders appends orders to the order log in one transaction.
func (b *BacktestState) RecordOrders(orders []types.Order) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, order := range orders {
		_, err := b.sq.
			Insert("orders").
			Columns("order_id", "strategy", "timestamp", "symbol", "action", "quantity", "price", "status").
			Values(order.ID, order.Strategy, order.Timestamp, order.Symbol, string(order.Action), order.Quantity, order.Price, string(order.Status)).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert order %s", order.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit orders", err)
	}

	return nil
}

// RecordPortfolio stores the final state of a strategy's portfolio.
func (b *BacktestState) RecordPortfolio(strategy string, snapshot types.PortfolioSnapshot) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	_, err = b.sq.
		Insert("portfolios").
		Columns("strategy", "capital", "earnings").
		Values(strategy, snapshot.Capital, snapshot.Earnings).
		RunWith(tx).
		Exec()
	if err != nil {
		tx.Rollback()

		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert portfolio of %s", strategy)
	}

	for _, position := range snapshot.Positions {
		_, err := b.sq.
			Insert("positions").
			Columns("strategy", "symbol", "quantity", "avg_price").
			Values(strategy, position.Symbol, position.Quantity, position.AvgPrice).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert %s position of %s", position.Symbol, strategy)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit portfolio", err)
	}

	return nil
}

// GetOrders returns a strategy's orders in the order they were recorded.
func (b *BacktestState) GetOrders(strategy string) ([]types.Order, error) {
	rows, err := b.sq.
		Select("order_id", "strategy", "timestamp", "symbol", "action", "quantity", "price", "status").
		From("orders").
		Where(squirrel.Eq{"strategy": strategy}).
		OrderBy("seq ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var orders []types.Order

	for rows.Next() {
		var (
			order  types.Order
			action string
			status string
		)

		err := rows.Scan(&order.ID, &order.Strategy, &order.Timestamp, &order.Symbol, &action, &order.Quantity, &order.Price, &status)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order", err)
		}

		if order.Action, err = types.ParseAction(action); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "stored order %s is corrupt", order.ID)
		}

		if order.Status, err = types.ParseOrderStatus(status); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "stored order %s is corrupt", order.ID)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating orders", err)
	}

	return orders, nil
}

// GetOrderCounts counts a strategy's FILLED orders by action. Dropped is left at 0.
func (b *BacktestState) GetOrderCounts(strategy string) (types.OrderCounts, error) {
	rows, err := b.sq.
		Select("action", "status", "COUNT(*)").
		From("orders").
		Where(squirrel.Eq{"strategy": strategy}).
		GroupBy("action", "status").
		RunWith(b.db).
		Query()
	if err != nil {
		return types.OrderCounts{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count orders", err)
	}
	defer rows.Close()

	var counts types.OrderCounts

	for rows.Next() {
		var (
			rawAction string
			rawStatus string
			count     int
		)

		if err := rows.Scan(&rawAction, &rawStatus, &count); err != nil {
			return types.OrderCounts{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order count", err)
		}

		action, err := types.ParseAction(rawAction)
		if err != nil {
			return types.OrderCounts{}, errors.Wrap(errors.ErrCodeQueryFailed, "stored order action is corrupt", err)
		}

		status, err := types.ParseOrderStatus(rawStatus)
		if err != nil {
			return types.OrderCounts{}, errors.Wrap(errors.ErrCodeQueryFailed, "stored order status is corrupt", err)
		}

		if status != types.OrderStatusFilled {
			continue
		}

		switch action {
		case types.ActionBuy:
			counts.Buys += count
		case types.ActionSell:
			counts.Sells += count
		}

		counts.Total += count
	}

	if err := rows.Err(); err != nil {
		return types.OrderCounts{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating order counts", err)
	}

	return counts, nil
}

// GetPortfolio reads back a strategy's final portfolio. ok is false when none was recorded.
func (b *BacktestState) GetPortfolio(strategy string) (snapshot types.PortfolioSnapshot, ok bool, err error) {
	err = b.sq.
		Select("capital", "earnings").
		From("portfolios").
		Where(squirrel.Eq{"strategy": strategy}).
		RunWith(b.db).
		QueryRow().
		Scan(&snapshot.Capital, &snapshot.Earnings)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PortfolioSnapshot{}, false, nil
	}

	if err != nil {
		return types.PortfolioSnapshot{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query portfolio", err)
	}

	rows, err := b.sq.
		Select("symbol", "quantity", "avg_price").
		From("positions").
		Where(squirrel.Eq{"strategy": strategy}).
		OrderBy("symbol ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return types.PortfolioSnapshot{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query positions", err)
	}
	defer rows.Close()

	snapshot.Positions = []types.PositionSnapshot{}

	for rows.Next() {
		var position types.PositionSnapshot
		if err := rows.Scan(&position.Symbol, &position.Quantity, &position.AvgPrice); err != nil {
			return types.PortfolioSnapshot{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan position", err)
		}

		snapshot.Positions = append(snapshot.Positions, position)
	}

	if err := rows.Err(); err != nil {
		return types.PortfolioSnapshot{}, false, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating positions", err)
	}

	return snapshot, true, nil
}

// Write exports the order log and the positions joined with their portfolio cash.
func (b *BacktestState) Write(folder string) (ordersPath string, positionsPath string, err error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create directory", err)
	}

	ordersPath = filepath.Join(folder, OrdersFileName)
	positionsPath = filepath.Join(folder, PositionsFileName)

	// Squirrel doesn't support COPY
	_, err = b.db.Exec(fmt.Sprintf(`COPY (SELECT * EXCLUDE (seq) FROM orders ORDER BY seq) TO '%s' (FORMAT PARQUET)`, ordersPath))
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export orders to parquet", err)
	}

	_, err = b.db.Exec(fmt.Sprintf(`
		COPY (
			SELECT p.strategy, p.symbol, p.quantity, p.avg_price, f.capital, f.earnings
			FROM positions p JOIN portfolios f ON p.strategy = f.strategy
			ORDER BY p.strategy, p.symbol
		) TO '%s' (FORMAT PARQUET)`, positionsPath))
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export positions to parquet", err)
	}

	b.logger.Debug("Exported state to parquet",
		zap.String("orders", ordersPath),
		zap.String("positions", positionsPath),
	)

	return ordersPath, positionsPath, nil
}

// Cleanup drops all tables and recreates them empty.
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS orders;
		DROP TABLE IF EXISTS positions;
		DROP TABLE IF EXISTS portfolios;
		DROP SEQUENCE IF EXISTS order_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to cleanup state tables", err)
	}

	return b.Initialize()
}

func (b *BacktestState) Close() error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Close()
}
