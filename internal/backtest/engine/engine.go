package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called once before the first strategy pass.
type OnBacktestStartCallback func(totalStrategies int, totalDataPoints int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnStrategyStartCallback is called when a strategy pass begins.
type OnStrategyStartCallback func(strategyIndex int, strategyName string, totalStrategies int) error

// OnStrategyEndCallback is called when a strategy pass ends without error.
type OnStrategyEndCallback func(strategyIndex int, strategyName string)

// OnProcessDataCallback is called for each (strategy, data point) pair processed.
// total is the number of strategies times the number of data points.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
// Invocations are serialized even when strategy passes run in parallel.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnStrategyStart *OnStrategyStartCallback
	OnStrategyEnd   *OnStrategyEndCallback
	OnProcessData   *OnProcessDataCallback
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// LoadStrategy registers a strategy under name and gives it a fresh portfolio.
	// Strategies run in the order they are loaded. Names must be unique.
	LoadStrategy(name string, strategy strategy.Strategy) error
	// SetMarketData replaces the market data. Points are put into
	// (timestamp, symbol) order; equal keys keep their input order.
	SetMarketData(points []types.MarketDataPoint) error
	// Run feeds every data point to every strategy and executes the resulting signals.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases of the backtest.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// ExecuteOrder applies an order to a portfolio and appends it to the order log.
	// A rejected order leaves the portfolio untouched and returns an *errors.ExecutionError.
	ExecuteOrder(order *types.Order, portfolio *types.Portfolio) error
	// Orders returns the filled order log in execution order.
	Orders() []types.Order
	// StrategyOrders returns the filled orders of one strategy.
	StrategyOrders(name string) []types.Order
	// OrdersAt returns the filled orders whose timestamp equals ts.
	OrdersAt(ts time.Time) []types.Order
	// Portfolio returns a snapshot of a strategy's portfolio.
	Portfolio(name string) (types.PortfolioSnapshot, bool)
	// Portfolios returns snapshots of every portfolio keyed by strategy name.
	Portfolios() map[string]types.PortfolioSnapshot
	// Diagnostics returns the dropped signals of the last run.
	Diagnostics() []log.LogEntry
	// WriteResults writes statistics and parquet exports of the last run into folder.
	WriteResults(folder string) error
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
