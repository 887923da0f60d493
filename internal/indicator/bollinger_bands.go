package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// Bands is one Bollinger Bands observation.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands is an SMA middle band with upper and lower bands numStdDev
// population standard deviations away.
type BollingerBands struct {
	window    *Window
	numStdDev float64
}

// NewBollingerBands creates Bollinger Bands, usually with period 20 and 2 standard deviations.
func NewBollingerBands(period int, numStdDev float64) (*BollingerBands, error) {
	if period <= 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "bollinger bands period must be greater than 1, got %d", period)
	}

	if numStdDev <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bollinger bands standard deviation multiplier must be positive, got %v", numStdDev)
	}

	return &BollingerBands{
		window:    NewWindow(period),
		numStdDev: numStdDev,
	}, nil
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

func (bb *BollingerBands) Update(value float64) {
	bb.window.Push(value)
}

func (bb *BollingerBands) Ready() bool {
	return bb.window.Full()
}

// RawValue returns the middle band.
func (bb *BollingerBands) RawValue() (float64, error) {
	bands, err := bb.Bands()
	if err != nil {
		return 0, err
	}

	return bands.Middle, nil
}

// Bands returns the current bands once the window is full.
func (bb *BollingerBands) Bands() (Bands, error) {
	if !bb.window.Full() {
		return Bands{}, errors.NewInsufficientDataErrorf(bb.window.Cap(), bb.window.Len(), "",
			"insufficient data for bollinger bands: required %d, got %d", bb.window.Cap(), bb.window.Len())
	}

	upper, middle, lower := indicators.BBANDS(bb.window.Values(), bb.window.Cap(), bb.numStdDev, bb.numStdDev, indicators.Sma)
	last := len(middle) - 1

	return Bands{
		Upper:  upper[last],
		Middle: middle[last],
		Lower:  lower[last],
	}, nil
}
