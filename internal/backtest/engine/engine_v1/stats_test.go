package engine

import (
	"math"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StatsTestSuite struct {
	suite.Suite
}

func TestStatsSuite(t *testing.T) {
	suite.Run(t, new(StatsTestSuite))
}

func replayOrder(day int, symbol string, action types.Action, qty, price float64) types.Order {
	return types.Order{
		ID:        "replay",
		Timestamp: day0.AddDate(0, 0, day),
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Status:    types.OrderStatusFilled,
		Action:    action,
		Strategy:  "s",
	}
}

func values(equity []types.EquityPoint) []float64 {
	out := make([]float64, 0, len(equity))
	for _, point := range equity {
		out = append(out, point.Value)
	}

	return out
}

func (suite *StatsTestSuite) TestTimeseriesMarksToMarket() {
	ticks := []types.MarketDataPoint{
		tickOn(0, "AAPL", 50),
		tickOn(1, "AAPL", 40),
		tickOn(2, "AAPL", 45),
	}
	orders := []types.Order{replayOrder(0, "AAPL", types.ActionBuy, 10, 50)}

	equity, err := BuildPortfolioTimeseries(1000, ticks, orders)
	suite.Require().NoError(err)
	suite.Equal([]float64{1000, 900, 950}, values(equity))
	suite.Equal(day0, equity[0].Timestamp)

	perf := ComputePerformance(1000, equity)
	suite.InDelta(950.0, perf.FinalValue, 1e-9)
	suite.InDelta(-0.05, perf.TotalReturn, 1e-9)
	suite.InDelta(-0.1, perf.MaxDrawdown, 1e-9)
	suite.Len(perf.Equity, 3)
}

func (suite *StatsTestSuite) TestTimeseriesUsesLatestPricePerSymbol() {
	ticks := []types.MarketDataPoint{
		tickOn(0, "AAPL", 10),
		tickOn(0, "MSFT", 20),
		tickOn(1, "AAPL", 12),
		tickOn(2, "MSFT", 25),
	}
	orders := []types.Order{
		replayOrder(0, "AAPL", types.ActionBuy, 1, 10),
		replayOrder(0, "MSFT", types.ActionBuy, 2, 20),
	}

	equity, err := BuildPortfolioTimeseries(100, ticks, orders)
	suite.Require().NoError(err)
	suite.Equal([]float64{100, 102, 112}, values(equity))
}

func (suite *StatsTestSuite) TestTimeseriesRejectsLateOrders() {
	ticks := []types.MarketDataPoint{tickOn(0, "AAPL", 10)}
	orders := []types.Order{replayOrder(3, "AAPL", types.ActionBuy, 1, 10)}

	_, err := BuildPortfolioTimeseries(100, ticks, orders)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *StatsTestSuite) TestTimeseriesRejectsUnfillableOrders() {
	ticks := []types.MarketDataPoint{tickOn(0, "AAPL", 10)}
	orders := []types.Order{replayOrder(0, "AAPL", types.ActionSell, 1, 10)}

	_, err := BuildPortfolioTimeseries(100, ticks, orders)
	suite.True(errors.IsExecutionError(err))
}

func (suite *StatsTestSuite) TestFlatEquity() {
	equity := []types.EquityPoint{{Timestamp: day0, Value: 500}, {Timestamp: day0.AddDate(0, 0, 1), Value: 500}}

	perf := ComputePerformance(500, equity)
	suite.Equal(0.0, perf.TotalReturn)
	suite.Equal(0.0, perf.SharpeRatio)
	suite.Equal(0.0, perf.MaxDrawdown)
}

func (suite *StatsTestSuite) TestNoEquity() {
	perf := ComputePerformance(500, nil)
	suite.Equal(500.0, perf.InitialValue)
	suite.Equal(500.0, perf.FinalValue)
	suite.Equal(0.0, perf.SharpeRatio)
	suite.Empty(perf.Equity)
}

func (suite *StatsTestSuite) TestSharpeRatio() {
	// returns 0.1, -0.1, 0.1 over 100, 110, 99, 108.9
	equity := []types.EquityPoint{
		{Timestamp: day0, Value: 110},
		{Timestamp: day0.AddDate(0, 0, 1), Value: 99},
		{Timestamp: day0.AddDate(0, 0, 2), Value: 108.9},
	}

	perf := ComputePerformance(100, equity)

	mean := 0.1 / 3
	std := math.Sqrt((math.Pow(0.1-mean, 2)*2 + math.Pow(-0.1-mean, 2)) / 3)
	suite.InDelta(mean/std, perf.SharpeRatio, 1e-9)
	suite.InDelta(-0.1, perf.MaxDrawdown, 1e-9)
	suite.InDelta(0.089, perf.TotalReturn, 1e-9)
}
