package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMA is the trailing arithmetic mean over a fixed number of values.
type SMA struct {
	window *Window
}

// NewSMA creates an SMA over period values.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be a positive integer, got %d", period)
	}

	return &SMA{window: NewWindow(period)}, nil
}

// Name returns the name of the indicator.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

func (s *SMA) Update(value float64) {
	s.window.Push(value)
}

func (s *SMA) Ready() bool {
	return s.window.Full()
}

func (s *SMA) RawValue() (float64, error) {
	if !s.window.Full() {
		return 0, errors.NewInsufficientDataErrorf(s.window.Cap(), s.window.Len(), "",
			"insufficient data for sma: required %d, got %d", s.window.Cap(), s.window.Len())
	}

	return s.window.Mean(), nil
}
