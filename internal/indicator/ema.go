package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// EMA is an exponential moving average seeded with the first observed value:
//
//	ema_t = alpha*value_t + (1-alpha)*ema_{t-1}, alpha = 2/(period+1)
type EMA struct {
	period int
	alpha  float64
	value  float64
	count  int
}

// NewEMA creates an EMA over period values.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be a positive integer, got %d", period)
	}

	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}, nil
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *EMA) Update(value float64) {
	if e.count == 0 {
		e.value = value
	} else {
		e.value = e.alpha*value + (1-e.alpha)*e.value
	}

	e.count++
}

// Ready reports whether at least period values were seen. The value itself is
// defined from the first update.
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

func (e *EMA) RawValue() (float64, error) {
	if e.count == 0 {
		return 0, errors.NewInsufficientDataErrorf(1, 0, "", "ema(%d) has no data", e.period)
	}

	return e.value, nil
}

// Value returns the current average, or 0 before the first update.
func (e *EMA) Value() float64 {
	return e.value
}

func (e *EMA) Count() int {
	return e.count
}

func (e *EMA) Period() int {
	return e.period
}
