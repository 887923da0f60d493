package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SMATestSuite struct {
	suite.Suite
}

func TestSMASuite(t *testing.T) {
	suite.Run(t, new(SMATestSuite))
}

func (suite *SMATestSuite) TestSMA() {
	sma, err := NewSMA(3)
	suite.Require().NoError(err)
	suite.Equal(types.IndicatorTypeMA, sma.Name())

	sma.Update(1)
	sma.Update(2)
	_, err = sma.RawValue()
	suite.True(errors.IsInsufficientDataError(err))
	suite.False(sma.Ready())

	sma.Update(3)
	sma.Update(10)
	value, err := sma.RawValue()
	suite.NoError(err)
	suite.Equal(5.0, value)
	suite.True(sma.Ready())
}

func (suite *SMATestSuite) TestInvalidPeriod() {
	_, err := NewSMA(-1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}
