package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// neutralRSI is reported for a flat window, where gains and losses are both zero.
const neutralRSI = 50.0

// RSI is the Relative Strength Index over a lookback of twice the period,
// which gives the Wilder smoothing enough history to settle.
type RSI struct {
	period int
	window *Window
}

// NewRSI creates an RSI, usually with period 14.
func NewRSI(period int) (*RSI, error) {
	if period <= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "rsi period must be greater than 1, got %d", period)
	}

	return &RSI{
		period: period,
		window: NewWindow(period * 2),
	}, nil
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *RSI) Update(value float64) {
	r.window.Push(value)
}

func (r *RSI) Ready() bool {
	return r.window.Full()
}

// RawValue returns the RSI in [0, 100] once the lookback is full.
func (r *RSI) RawValue() (float64, error) {
	if !r.window.Full() {
		return 0, errors.NewInsufficientDataErrorf(r.window.Cap(), r.window.Len(), "",
			"insufficient data for rsi: required %d, got %d", r.window.Cap(), r.window.Len())
	}

	values := r.window.Values()
	if isFlat(values) {
		return neutralRSI, nil
	}

	out := indicators.RSI(values, r.period)

	value := out[len(out)-1]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.Newf(errors.ErrCodeIndicatorCalculation, "rsi(%d) produced %v", r.period, value)
	}

	return value, nil
}

func (r *RSI) Period() int {
	return r.period
}

func isFlat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}

	return true
}
