package engine

import (
	"context"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StatsFileName is the YAML file WriteResults puts next to the parquet exports.
const StatsFileName = "stats.yaml"

type BacktestEngineV1 struct {
	config     BacktestEngineV1Config
	log        *logger.Logger
	feed       *Feed
	strategies []strategy.Named
	portfolios map[string]*types.Portfolio

	// mu guards the run results below.
	mu          sync.Mutex
	orders      []types.Order
	diagnostics []log.LogEntry
	ticks       []types.MarketDataPoint
	runID       string
	runAt       time.Time
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

// NewBacktestEngineV1 creates an engine with no strategies and no market data.
// A nil logger discards all output.
func NewBacktestEngineV1(config BacktestEngineV1Config, log *logger.Logger) (*BacktestEngineV1, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestEngineV1{
		config:     config,
		log:        log,
		portfolios: make(map[string]*types.Portfolio),
	}, nil
}

// NewBacktestEngineV1WithData creates an engine over feed with strategies loaded in the given order.
func NewBacktestEngineV1WithData(config BacktestEngineV1Config, feed *Feed, strategies []strategy.Named, log *logger.Logger) (*BacktestEngineV1, error) {
	b, err := NewBacktestEngineV1(config, log)
	if err != nil {
		return nil, err
	}

	b.SetFeed(feed)

	for _, named := range strategies {
		if err := b.LoadStrategy(named.Name, named.Strategy); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// LoadStrategy implements engine.Engine.
//
// Strategies keep per-symbol state, so every name needs its own instance.
// With Parallel set, loading an instance that is already loaded is rejected.
func (b *BacktestEngineV1) LoadStrategy(name string, s strategy.Strategy) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name must not be empty")
	}

	if s == nil {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %s is nil", name)
	}

	if _, exists := b.portfolios[name]; exists {
		return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy %s is already loaded", name)
	}

	if b.config.Parallel {
		for _, loaded := range b.strategies {
			if sameInstance(loaded.Strategy, s) {
				return errors.Newf(errors.ErrCodeDuplicateStrategy,
					"strategy %s reuses the instance loaded as %s, parallel passes need one instance per name", name, loaded.Name)
			}
		}
	}

	b.strategies = append(b.strategies, strategy.Named{Name: name, Strategy: s})
	b.portfolios[name] = types.NewPortfolio(b.config.InitialCapital)

	b.log.Debug("Strategy loaded",
		zap.String("strategy", name),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// sameInstance reports whether a and b hold the same pointer. Values of
// other kinds never alias, so they are never the same instance.
func sameInstance(a, b strategy.Strategy) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return false
	}

	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}

// SetMarketData implements engine.Engine.
func (b *BacktestEngineV1) SetMarketData(points []types.MarketDataPoint) error {
	b.SetFeed(NewFeed(points))

	return nil
}

// SetFeed replaces the market data with an already ordered feed.
func (b *BacktestEngineV1) SetFeed(feed *Feed) {
	b.feed = feed

	if feed != nil {
		b.log.Debug("Market data set",
			zap.Int("points", feed.Len()),
			zap.Strings("symbols", feed.Symbols()),
		)
	}
}

// strategyPass is one strategy's walk over the ticks. Passes share nothing,
// so they can run concurrently and be merged afterwards.
type strategyPass struct {
	index       int
	name        string
	strategy    strategy.Strategy
	portfolio   *types.Portfolio
	orders      []types.Order
	diagnostics []log.LogEntry
}

// Run implements engine.Engine.
//
// Every strategy sees every tick in feed order. Strategies are processed in
// load order, and the order log is the concatenation of their orders in that
// order, whether or not Parallel is set. Signals that fail order validation
// or execution are logged, recorded in Diagnostics and skipped. Any other
// error, including a strategy error, aborts the run.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err = b.preRunCheck(); err != nil {
		return err
	}

	ticks := b.feed.Between(b.config.StartTime, b.config.EndTime)
	if len(ticks) == 0 {
		b.log.Error("No market data inside the configured time range")

		return errors.New(errors.ErrCodeBacktestNoData, "no market data inside the configured time range")
	}

	b.resetRun(ticks)

	progress := newRunProgress(callbacks, len(b.strategies)*len(ticks))
	if err = progress.backtestStart(len(b.strategies), len(ticks)); err != nil {
		return err
	}

	passes := make([]*strategyPass, len(b.strategies))
	for i, named := range b.strategies {
		passes[i] = &strategyPass{
			index:     i,
			name:      named.Name,
			strategy:  named.Strategy,
			portfolio: b.portfolios[named.Name],
		}
	}

	b.log.Info("Backtest started",
		zap.String("run_id", b.runID),
		zap.Int("strategies", len(passes)),
		zap.Int("ticks", len(ticks)),
		zap.Bool("parallel", b.config.Parallel),
	)

	if b.config.Parallel && len(passes) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, pass := range passes {
			g.Go(func() error {
				return b.runPass(gctx, pass, ticks, progress)
			})
		}

		err = g.Wait()
	} else {
		for _, pass := range passes {
			if err = b.runPass(ctx, pass, ticks, progress); err != nil {
				break
			}
		}
	}

	b.merge(passes)

	if err != nil {
		b.log.Error("Backtest aborted", zap.String("run_id", b.runID), zap.Error(err))

		return err
	}

	b.log.Info("Backtest finished",
		zap.String("run_id", b.runID),
		zap.Int("orders", len(b.orders)),
		zap.Int("dropped", len(b.diagnostics)),
	)

	return nil
}

func (b *BacktestEngineV1) runPass(ctx context.Context, pass *strategyPass, ticks []types.MarketDataPoint, progress *runProgress) error {
	if err := progress.strategyStart(pass.index, pass.name, len(b.strategies)); err != nil {
		return err
	}

	b.log.Info("Running strategy",
		zap.String("strategy", pass.name),
		zap.Int("index", pass.index),
	)

	for _, tick := range ticks {
		if err := ctx.Err(); err != nil {
			return err
		}

		signals, err := pass.strategy.GenerateSignals(tick)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed on %s", pass.name, tick)
		}

		for _, signal := range signals {
			if err := b.handleSignal(pass, signal); err != nil {
				return err
			}
		}

		if err := progress.processed(); err != nil {
			return err
		}
	}

	progress.strategyEnd(pass.index, pass.name)

	b.log.Info("Strategy finished",
		zap.String("strategy", pass.name),
		zap.Int("orders", len(pass.orders)),
		zap.Int("dropped", len(pass.diagnostics)),
		zap.Float64("capital", pass.portfolio.Capital()),
		zap.Float64("earnings", pass.portfolio.Earnings()),
	)

	return nil
}

func (b *BacktestEngineV1) handleSignal(pass *strategyPass, signal types.Signal) error {
	if !signal.IsActionable() {
		b.log.Debug("Hold signal ignored",
			zap.String("strategy", pass.name),
			zap.String("symbol", signal.Symbol),
			zap.Time("timestamp", signal.Timestamp),
		)

		return nil
	}

	order, err := types.NewOrderFromSignal(signal, pass.name)
	if err != nil {
		if errors.IsOrderError(err) {
			b.drop(pass, signal, types.DropStageOrder, err)

			return nil
		}

		return err
	}

	if err := fill(order, pass.portfolio); err != nil {
		if errors.IsExecutionError(err) {
			b.drop(pass, signal, types.DropStageExecution, err)

			return nil
		}

		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to execute %s order for %s", order.Action, order.Symbol)
	}

	order.AssignID(len(pass.orders) + 1)
	pass.orders = append(pass.orders, *order)

	return nil
}

func (b *BacktestEngineV1) drop(pass *strategyPass, signal types.Signal, stage types.DropStage, err error) {
	code := errors.GetCode(err)
	if stage == types.DropStageExecution {
		code = errors.GetExecutionCode(err)
	}

	b.log.Warn("Signal dropped",
		zap.String("strategy", pass.name),
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
		zap.String("stage", string(stage)),
		zap.Int("code", int(code)),
		zap.Error(err),
	)

	fields := map[string]string{
		"code":     strconv.Itoa(int(code)),
		"action":   string(signal.Action),
		"quantity": strconv.FormatFloat(signal.Quantity, 'f', -1, 64),
		"price":    strconv.FormatFloat(signal.Price, 'f', -1, 64),
	}
	if signal.Reason != "" {
		fields["reason"] = signal.Reason
	}

	pass.diagnostics = append(pass.diagnostics, log.LogEntry{
		Timestamp: signal.Timestamp,
		Strategy:  pass.name,
		Symbol:    signal.Symbol,
		Level:     types.LogLevelWarn,
		Stage:     stage,
		Message:   err.Error(),
		Fields:    fields,
	})
}

func (b *BacktestEngineV1) resetRun(ticks []types.MarketDataPoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = nil
	b.diagnostics = nil
	b.ticks = ticks
	b.runID = uuid.New().String()
	b.runAt = time.Now()
}

func (b *BacktestEngineV1) merge(passes []*strategyPass) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, pass := range passes {
		b.orders = append(b.orders, pass.orders...)
		b.diagnostics = append(b.diagnostics, pass.diagnostics...)
	}
}

// ExecuteOrder implements engine.Engine.
//
// On success the order is marked FILLED and appended to the order log. An
// order without an ID gets the next ID in its strategy's sequence.
func (b *BacktestEngineV1) ExecuteOrder(order *types.Order, portfolio *types.Portfolio) error {
	if order == nil || portfolio == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "order and portfolio must not be nil")
	}

	if err := fill(order, portfolio); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if order.ID == "" {
		seq := 1

		for _, logged := range b.orders {
			if logged.Strategy == order.Strategy {
				seq++
			}
		}

		order.AssignID(seq)
	}

	b.orders = append(b.orders, *order)

	return nil
}

// Orders implements engine.Engine.
func (b *BacktestEngineV1) Orders() []types.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	orders := make([]types.Order, len(b.orders))
	copy(orders, b.orders)

	return orders
}

// StrategyOrders implements engine.Engine.
func (b *BacktestEngineV1) StrategyOrders(name string) []types.Order {
	return b.filterOrders(func(o types.Order) bool { return o.Strategy == name })
}

// OrdersAt implements engine.Engine.
func (b *BacktestEngineV1) OrdersAt(ts time.Time) []types.Order {
	return b.filterOrders(func(o types.Order) bool { return o.Timestamp.Equal(ts) })
}

func (b *BacktestEngineV1) filterOrders(keep func(types.Order) bool) []types.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var orders []types.Order

	for _, order := range b.orders {
		if keep(order) {
			orders = append(orders, order)
		}
	}

	return orders
}

// Portfolio implements engine.Engine.
func (b *BacktestEngineV1) Portfolio(name string) (types.PortfolioSnapshot, bool) {
	portfolio, ok := b.portfolios[name]
	if !ok {
		return types.PortfolioSnapshot{}, false
	}

	return portfolio.Snapshot(), true
}

// Portfolios implements engine.Engine.
func (b *BacktestEngineV1) Portfolios() map[string]types.PortfolioSnapshot {
	snapshots := make(map[string]types.PortfolioSnapshot, len(b.portfolios))
	for name, portfolio := range b.portfolios {
		snapshots[name] = portfolio.Snapshot()
	}

	return snapshots
}

// Diagnostics implements engine.Engine.
func (b *BacktestEngineV1) Diagnostics() []log.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]log.LogEntry, len(b.diagnostics))
	copy(entries, b.diagnostics)

	return entries
}

// Performance rebuilds a strategy's equity curve over the last run's ticks.
func (b *BacktestEngineV1) Performance(name string) (Performance, error) {
	if _, ok := b.portfolios[name]; !ok {
		return Performance{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %s", name)
	}

	b.mu.Lock()
	ticks := b.ticks
	b.mu.Unlock()

	equity, err := BuildPortfolioTimeseries(b.config.InitialCapital, ticks, b.StrategyOrders(name))
	if err != nil {
		return Performance{}, err
	}

	return ComputePerformance(b.config.InitialCapital, equity), nil
}

// WriteResults implements engine.Engine.
//
// It writes stats.yaml with one entry per strategy in load order, plus
// orders.parquet, positions.parquet and diagnostics.parquet.
func (b *BacktestEngineV1) WriteResults(folder string) error {
	b.mu.Lock()
	ran := b.runID != ""
	b.mu.Unlock()

	if !ran {
		return errors.New(errors.ErrCodeBacktestNoData, "no results to write, run the backtest first")
	}

	state, err := NewBacktestState(b.log)
	if err != nil {
		return err
	}
	defer state.Close()

	diagnostics, err := NewBacktestLog(b.log)
	if err != nil {
		return err
	}
	defer diagnostics.Close()

	if err := state.RecordOrders(b.Orders()); err != nil {
		return err
	}

	for _, named := range b.strategies {
		snapshot, _ := b.Portfolio(named.Name)
		if err := state.RecordPortfolio(named.Name, snapshot); err != nil {
			return err
		}
	}

	for _, entry := range b.Diagnostics() {
		if err := diagnostics.Log(entry); err != nil {
			return err
		}
	}

	ordersPath, positionsPath, err := state.Write(folder)
	if err != nil {
		return err
	}

	diagnosticsPath, err := diagnostics.Write(folder)
	if err != nil {
		return err
	}

	dropped, err := diagnostics.Count()
	if err != nil {
		return err
	}

	stats := make([]types.PerformanceStats, 0, len(b.strategies))

	for _, named := range b.strategies {
		entry, err := b.performanceStats(state, named.Name, dropped[named.Name])
		if err != nil {
			return err
		}

		entry.OrdersFilePath = ordersPath
		entry.PositionsFilePath = positionsPath
		entry.DiagnosticsFilePath = diagnosticsPath
		stats = append(stats, entry)
	}

	statsPath := filepath.Join(folder, StatsFileName)
	if err := types.WritePerformanceStats(statsPath, stats); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	b.log.Info("Results written",
		zap.String("folder", folder),
		zap.Int("strategies", len(stats)),
	)

	return nil
}

func (b *BacktestEngineV1) performanceStats(state *BacktestState, name string, dropped int) (types.PerformanceStats, error) {
	perf, err := b.Performance(name)
	if err != nil {
		return types.PerformanceStats{}, err
	}

	counts, err := state.GetOrderCounts(name)
	if err != nil {
		return types.PerformanceStats{}, err
	}

	counts.Dropped = dropped

	snapshot, _, err := state.GetPortfolio(name)
	if err != nil {
		return types.PerformanceStats{}, err
	}

	b.mu.Lock()
	runID, runAt, ticks := b.runID, b.runAt, b.ticks
	b.mu.Unlock()

	return types.PerformanceStats{
		ID:             runID,
		Timestamp:      runAt,
		Strategy:       name,
		Symbols:        NewFeed(ticks).Symbols(),
		InitialCapital: perf.InitialValue,
		FinalValue:     perf.FinalValue,
		TotalReturn:    perf.TotalReturn,
		SharpeRatio:    perf.SharpeRatio,
		MaxDrawdown:    perf.MaxDrawdown,
		Orders:         counts,
		Portfolio:      snapshot,
	}, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if b.feed == nil || b.feed.Len() == 0 {
		b.log.Error("No market data set")

		return errors.New(errors.ErrCodeBacktestNoData, "no market data set")
	}

	return nil
}

// runProgress serializes lifecycle callbacks across concurrent passes.
type runProgress struct {
	mu        sync.Mutex
	callbacks engine.LifecycleCallbacks
	current   int
	total     int
}

func newRunProgress(callbacks engine.LifecycleCallbacks, total int) *runProgress {
	return &runProgress{callbacks: callbacks, total: total}
}

func (p *runProgress) backtestStart(totalStrategies, totalDataPoints int) error {
	if p.callbacks.OnBacktestStart == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := (*p.callbacks.OnBacktestStart)(totalStrategies, totalDataPoints); err != nil {
		return errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
	}

	return nil
}

func (p *runProgress) strategyStart(index int, name string, total int) error {
	if p.callbacks.OnStrategyStart == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := (*p.callbacks.OnStrategyStart)(index, name, total); err != nil {
		return errors.Wrapf(errors.ErrCodeCallbackFailed, err, "strategy start callback failed for %s", name)
	}

	return nil
}

func (p *runProgress) strategyEnd(index int, name string) {
	if p.callbacks.OnStrategyEnd == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	(*p.callbacks.OnStrategyEnd)(index, name)
}

func (p *runProgress) processed() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++

	if p.callbacks.OnProcessData == nil {
		return nil
	}

	if err := (*p.callbacks.OnProcessData)(p.current, p.total); err != nil {
		return errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err)
	}

	return nil
}
