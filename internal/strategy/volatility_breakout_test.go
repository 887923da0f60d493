package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type VolatilityBreakoutTestSuite struct {
	suite.Suite
}

func TestVolatilityBreakoutSuite(t *testing.T) {
	suite.Run(t, new(VolatilityBreakoutTestSuite))
}

func (suite *VolatilityBreakoutTestSuite) TestBreakoutSizing() {
	config := DefaultVolatilityBreakoutConfig()
	config.RiskBudget = 500

	s, err := NewVolatilityBreakout(config)
	suite.Require().NoError(err)
	suite.Equal(TypeVolatilityBreakout, s.Name())

	// alternating 100/102 gives mean 101 and sigma 1
	prices := make([]float64, 0, 22)
	for i := range 20 {
		prices = append(prices, 100+float64(i%2)*2)
	}

	prices = append(prices, 110, 90)
	perTick := feed(s, "AAPL", prices)

	for i := range 20 {
		suite.Empty(perTick[i], "warm-up tick %d", i)
	}

	suite.Require().Len(perTick[20], 1)
	suite.Equal(types.ActionBuy, perTick[20][0].Action)
	suite.Equal(500.0, perTick[20][0].Quantity)

	suite.Require().Len(perTick[21], 1)
	suite.Equal(types.ActionSell, perTick[21][0].Action)
	// sigma of the shifted window is sqrt(4.75)
	suite.Equal(229.0, perTick[21][0].Quantity)
}

func (suite *VolatilityBreakoutTestSuite) TestQuantityClamped() {
	config := DefaultVolatilityBreakoutConfig()
	config.RiskBudget = 1
	config.MaxQuantity = 50

	s, err := NewVolatilityBreakout(config)
	suite.Require().NoError(err)

	suite.Equal(1.0, s.quantity(10))
	suite.Equal(50.0, s.quantity(0.001))
	suite.Equal(50.0, s.quantity(0))
}

func (suite *VolatilityBreakoutTestSuite) TestFlatPriceHolds() {
	s, err := NewVolatilityBreakout(DefaultVolatilityBreakoutConfig())
	suite.Require().NoError(err)

	perTick := feed(s, "AAPL", constant(100, 25))
	suite.Empty(actions(perTick, true))
	suite.Len(actions(perTick, false), 5)
}
