package engine

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) SetupSuite() {
	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.state = state
}

func (suite *BacktestStateTestSuite) TearDownSuite() {
	suite.NoError(suite.state.Close())
}

func (suite *BacktestStateTestSuite) SetupTest() {
	suite.Require().NoError(suite.state.Cleanup())
}

func filledOrder(strategy, symbol string, action types.Action, qty, price float64, day int) types.Order {
	return types.Order{
		ID:        fmt.Sprintf("%s-%s-%d", strategy, symbol, day),
		Timestamp: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Status:    types.OrderStatusFilled,
		Action:    action,
		Strategy:  strategy,
	}
}

func (suite *BacktestStateTestSuite) TestRecordAndGetOrders() {
	orders := []types.Order{
		filledOrder("ma", "AAPL", types.ActionBuy, 10, 50, 2),
		filledOrder("rsi", "AAPL", types.ActionBuy, 5, 50, 2),
		filledOrder("ma", "AAPL", types.ActionSell, 10, 60, 3),
	}
	suite.Require().NoError(suite.state.RecordOrders(orders))

	got, err := suite.state.GetOrders("ma")
	suite.Require().NoError(err)
	suite.Require().Len(got, 2)
	suite.Equal(orders[0].ID, got[0].ID)
	suite.Equal(types.ActionBuy, got[0].Action)
	suite.Equal(types.ActionSell, got[1].Action)
	suite.Equal(types.OrderStatusFilled, got[1].Status)
	suite.Equal(60.0, got[1].Price)
	suite.True(orders[2].Timestamp.Equal(got[1].Timestamp))

	counts, err := suite.state.GetOrderCounts("ma")
	suite.Require().NoError(err)
	suite.Equal(types.OrderCounts{Total: 2, Buys: 1, Sells: 1}, counts)

	counts, err = suite.state.GetOrderCounts("missing")
	suite.Require().NoError(err)
	suite.Equal(types.OrderCounts{}, counts)
}

func (suite *BacktestStateTestSuite) TestRecordPortfolio() {
	snapshot := types.PortfolioSnapshot{
		Capital:  900,
		Earnings: -100,
		Positions: []types.PositionSnapshot{
			{Symbol: "AAPL", Quantity: 1, AvgPrice: 50},
			{Symbol: "MSFT", Quantity: 2, AvgPrice: 25},
		},
	}
	suite.Require().NoError(suite.state.RecordPortfolio("ma", snapshot))

	got, ok, err := suite.state.GetPortfolio("ma")
	suite.Require().NoError(err)
	suite.True(ok)
	suite.Equal(snapshot, got)

	_, ok, err = suite.state.GetPortfolio("missing")
	suite.NoError(err)
	suite.False(ok)
}

func (suite *BacktestStateTestSuite) TestWrite() {
	suite.Require().NoError(suite.state.RecordOrders([]types.Order{
		filledOrder("ma", "AAPL", types.ActionBuy, 10, 50, 2),
	}))
	suite.Require().NoError(suite.state.RecordPortfolio("ma", types.PortfolioSnapshot{
		Capital:   500,
		Positions: []types.PositionSnapshot{{Symbol: "AAPL", Quantity: 10, AvgPrice: 50}},
	}))

	ordersPath, positionsPath, err := suite.state.Write(suite.T().TempDir())
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	var orders int
	err = db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s') WHERE strategy = 'ma'", ordersPath)).Scan(&orders)
	suite.Require().NoError(err)
	suite.Equal(1, orders)

	var capital, quantity float64
	err = db.QueryRow(fmt.Sprintf("SELECT capital, quantity FROM read_parquet('%s')", positionsPath)).Scan(&capital, &quantity)
	suite.Require().NoError(err)
	suite.Equal(500.0, capital)
	suite.Equal(10.0, quantity)
}

func (suite *BacktestStateTestSuite) TestCleanup() {
	suite.Require().NoError(suite.state.RecordOrders([]types.Order{
		filledOrder("ma", "AAPL", types.ActionBuy, 10, 50, 2),
	}))
	suite.Require().NoError(suite.state.Cleanup())

	got, err := suite.state.GetOrders("ma")
	suite.NoError(err)
	suite.Empty(got)
}

func (suite *BacktestStateTestSuite) TestOrderCountsSkipUnfilled() {
	unfilled := filledOrder("ma", "MSFT", types.ActionBuy, 1, 10, 4)
	unfilled.Status = types.OrderStatusUnfilled

	suite.Require().NoError(suite.state.RecordOrders([]types.Order{
		filledOrder("ma", "AAPL", types.ActionBuy, 10, 50, 2),
		filledOrder("ma", "AAPL", types.ActionBuy, 5, 55, 3),
		unfilled,
	}))

	counts, err := suite.state.GetOrderCounts("ma")
	suite.Require().NoError(err)
	suite.Equal(types.OrderCounts{Total: 2, Buys: 2}, counts)
}

func (suite *BacktestStateTestSuite) TestCorruptStoredOrder() {
	corrupt := filledOrder("ma", "AAPL", types.Action("SHORT"), 1, 10, 2)
	suite.Require().NoError(suite.state.RecordOrders([]types.Order{corrupt}))

	_, err := suite.state.GetOrders("ma")
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))

	_, err = suite.state.GetOrderCounts("ma")
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
}
