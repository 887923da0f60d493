package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MACDValue is one MACD observation.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD represents the Moving Average Convergence Divergence indicator.
// The MACD line is fast EMA minus slow EMA; the signal line is an EMA of the MACD line.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	last   MACDValue
}

// NewMACD creates a MACD indicator, usually with periods 12, 26 and 9.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) (*MACD, error) {
	if fastPeriod >= slowPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "macd fast period %d must be less than slow period %d", fastPeriod, slowPeriod)
	}

	fast, err := NewEMA(fastPeriod)
	if err != nil {
		return nil, err
	}

	slow, err := NewEMA(slowPeriod)
	if err != nil {
		return nil, err
	}

	signal, err := NewEMA(signalPeriod)
	if err != nil {
		return nil, err
	}

	return &MACD{fast: fast, slow: slow, signal: signal}, nil
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

func (m *MACD) Update(value float64) {
	m.Next(value)
}

// Next feeds value and returns the new observation.
func (m *MACD) Next(value float64) MACDValue {
	m.fast.Update(value)
	m.slow.Update(value)

	line := m.fast.Value() - m.slow.Value()
	m.signal.Update(line)

	m.last = MACDValue{
		MACD:      line,
		Signal:    m.signal.Value(),
		Histogram: line - m.signal.Value(),
	}

	return m.last
}

// Ready reports whether the slow EMA has seen its full window.
func (m *MACD) Ready() bool {
	return m.slow.Ready()
}

// RawValue returns the MACD line.
func (m *MACD) RawValue() (float64, error) {
	if m.slow.Count() == 0 {
		return 0, errors.NewInsufficientDataError(1, 0, "", "macd has no data")
	}

	return m.last.MACD, nil
}

func (m *MACD) Last() MACDValue {
	return m.last
}
