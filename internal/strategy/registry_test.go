package strategy

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *RegistryV1
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewDefaultRegistry()
}

func (suite *RegistryTestSuite) TestList() {
	suite.Equal([]string{
		TypeBollingerBands,
		TypeLongOnlyOnce,
		TypeMACD,
		TypeMovingAverageCrossover,
		TypeRSI,
		TypeVolatilityBreakout,
	}, suite.registry.List())
}

func (suite *RegistryTestSuite) TestCreateWithDefaults() {
	for _, name := range suite.registry.List() {
		s, err := suite.registry.Create(name, nil)
		suite.NoError(err, name)
		suite.Equal(name, s.Name())
	}
}

func (suite *RegistryTestSuite) TestCreateWithParams() {
	s, err := suite.registry.Create(TypeMovingAverageCrossover, map[string]any{
		"short_window":   2,
		"long_window":    3,
		"edge_triggered": true,
	})
	suite.Require().NoError(err)

	crossover, ok := s.(*MovingAverageCrossover)
	suite.Require().True(ok)
	suite.Equal(2, crossover.config.ShortWindow)
	suite.Equal(3, crossover.config.LongWindow)
	suite.Equal(100.0, crossover.config.Quantity, "unset params keep their defaults")
	suite.True(crossover.config.EdgeTriggered)

	perTick := feed(s, "AAPL", []float64{1, 2, 3, 4})
	suite.Equal([]types.Action{types.ActionBuy, types.ActionHold}, actions(perTick, false))
}

func (suite *RegistryTestSuite) TestCreateErrors() {
	_, err := suite.registry.Create("unknown", nil)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedStrategy))

	s, err := suite.registry.Create(TypeRSI, map[string]any{"periodd": 3})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
	suite.Nil(s)

	s, err = suite.registry.Create(TypeMACD, map[string]any{"fast_period": 30})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
	suite.Nil(s)
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	err := suite.registry.Register(TypeMACD, func(map[string]any) (Strategy, error) {
		return nil, nil
	})
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicateStrategy))

	suite.NoError(NewRegistry().Register(TypeMACD, func(map[string]any) (Strategy, error) {
		return nil, nil
	}))
}

func (suite *RegistryTestSuite) TestDecodeParams() {
	config, err := DecodeParams(TypeBollingerBands, map[string]any{"num_std_dev": 2.5}, DefaultBollingerBandsConfig())
	suite.NoError(err)
	suite.Equal(2.5, config.NumStdDev)
	suite.Equal(20, config.Window)

	_, err = DecodeParams(TypeBollingerBands, map[string]any{"window": "wide"}, DefaultBollingerBandsConfig())
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}
