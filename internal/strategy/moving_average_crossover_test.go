package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MovingAverageCrossoverTestSuite struct {
	suite.Suite
}

func TestMovingAverageCrossoverSuite(t *testing.T) {
	suite.Run(t, new(MovingAverageCrossoverTestSuite))
}

func (suite *MovingAverageCrossoverTestSuite) newStrategy(edge bool) *MovingAverageCrossover {
	config := DefaultMovingAverageCrossoverConfig()
	config.EdgeTriggered = edge

	s, err := NewMovingAverageCrossover(config)
	suite.Require().NoError(err)

	return s
}

func (suite *MovingAverageCrossoverTestSuite) TestFlatPriceEmitsNothing() {
	s := suite.newStrategy(false)
	suite.Equal(TypeMovingAverageCrossover, s.Name())

	perTick := feed(s, "AAPL", constant(100, 25))
	for i, signals := range perTick {
		suite.Empty(signals, "tick %d", i)
	}
}

func (suite *MovingAverageCrossoverTestSuite) TestWarmUpAndEveryTickSignals() {
	s := suite.newStrategy(false)

	perTick := feed(s, "AAPL", linear(100, 1, 25))
	for i := range 19 {
		suite.Empty(perTick[i], "warm-up tick %d", i)
	}

	for i := 19; i < 25; i++ {
		suite.Require().Len(perTick[i], 1)
		signal := perTick[i][0]
		suite.Equal(types.ActionBuy, signal.Action)
		suite.Equal(100.0, signal.Quantity)
		suite.Equal(100+float64(i), signal.Price)
		suite.Equal("AAPL", signal.Symbol)
		suite.Equal(baseTime.AddDate(0, 0, i), signal.Timestamp)
	}
}

func (suite *MovingAverageCrossoverTestSuite) TestFallingPriceSells() {
	s := suite.newStrategy(false)

	perTick := feed(s, "AAPL", linear(200, -1, 21))
	suite.Equal([]types.Action{types.ActionSell, types.ActionSell}, actions(perTick, false))
}

func (suite *MovingAverageCrossoverTestSuite) TestEdgeTriggered() {
	s := suite.newStrategy(true)

	prices := append(linear(100, 1, 30), linear(129, -2, 20)...)
	perTick := feed(s, "AAPL", prices)

	all := actions(perTick, false)
	suite.Equal(types.ActionBuy, all[0])
	for _, action := range all[1:11] {
		suite.Equal(types.ActionHold, action)
	}

	suite.Equal([]types.Action{types.ActionBuy, types.ActionSell}, actions(perTick, true))
}

func (suite *MovingAverageCrossoverTestSuite) TestHistoryIsPerSymbol() {
	s := suite.newStrategy(false)

	// interleave two symbols; each needs its own 20 ticks of warm-up
	for i := range 19 {
		signals, err := s.GenerateSignals(tickAt(i, "AAPL", 100+float64(i)))
		suite.NoError(err)
		suite.Empty(signals)

		signals, err = s.GenerateSignals(tickAt(i, "MSFT", 300-float64(i)))
		suite.NoError(err)
		suite.Empty(signals)
	}

	signals, err := s.GenerateSignals(tickAt(19, "AAPL", 119))
	suite.NoError(err)
	suite.Require().Len(signals, 1)
	suite.Equal(types.ActionBuy, signals[0].Action)

	signals, err = s.GenerateSignals(tickAt(19, "MSFT", 281))
	suite.NoError(err)
	suite.Require().Len(signals, 1)
	suite.Equal(types.ActionSell, signals[0].Action)
}

func (suite *MovingAverageCrossoverTestSuite) TestInvalidConfig() {
	_, err := NewMovingAverageCrossover(MovingAverageCrossoverConfig{ShortWindow: 20, LongWindow: 5, Quantity: 1})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	_, err = NewMovingAverageCrossover(MovingAverageCrossoverConfig{ShortWindow: 5, LongWindow: 20, Quantity: 0})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}
