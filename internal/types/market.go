package types

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MarketDataPoint is one observation of a tradable instrument at a point in time.
// It is a value object: fields are only reachable through getters, so a point
// cannot be changed once constructed.
type MarketDataPoint struct {
	timestamp time.Time
	symbol    string
	price     float64

	ohlcv    bool
	open     float64
	high     float64
	low      float64
	close    float64
	adjClose float64
	volume   float64
}

// NewMarketDataPoint creates a price-only tick.
func NewMarketDataPoint(timestamp time.Time, symbol string, price float64) (MarketDataPoint, error) {
	if err := validateTick(symbol, price); err != nil {
		return MarketDataPoint{}, err
	}

	return MarketDataPoint{
		timestamp: timestamp,
		symbol:    symbol,
		price:     price,
	}, nil
}

// NewOHLCVPoint creates a tick carrying the full bar. Price() reports the adjusted close.
func NewOHLCVPoint(timestamp time.Time, symbol string, open, high, low, close, adjClose, volume float64) (MarketDataPoint, error) {
	if err := validateTick(symbol, adjClose); err != nil {
		return MarketDataPoint{}, err
	}

	if math.IsNaN(volume) || volume < 0 {
		return MarketDataPoint{}, errors.Newf(errors.ErrCodeInvalidMarketData, "invalid volume %v for %s", volume, symbol)
	}

	return MarketDataPoint{
		timestamp: timestamp,
		symbol:    symbol,
		price:     adjClose,
		ohlcv:     true,
		open:      open,
		high:      high,
		low:       low,
		close:     close,
		adjClose:  adjClose,
		volume:    volume,
	}, nil
}

// MustNewMarketDataPoint is like NewMarketDataPoint but panics on invalid input.
func MustNewMarketDataPoint(timestamp time.Time, symbol string, price float64) MarketDataPoint {
	point, err := NewMarketDataPoint(timestamp, symbol, price)
	if err != nil {
		panic(err)
	}

	return point
}

func validateTick(symbol string, price float64) error {
	if strings.TrimSpace(symbol) == "" {
		return errors.New(errors.ErrCodeInvalidMarketData, "market data symbol is required")
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidMarketData, "invalid price %v for %s", price, symbol)
	}

	return nil
}

func (m MarketDataPoint) Timestamp() time.Time { return m.timestamp }
func (m MarketDataPoint) Symbol() string       { return m.symbol }
func (m MarketDataPoint) Price() float64       { return m.price }

// HasOHLCV reports whether the point was built from a full bar.
func (m MarketDataPoint) HasOHLCV() bool { return m.ohlcv }

// Open returns the bar open, or Price() for price-only ticks. High, Low, Close
// and AdjClose behave the same way.
func (m MarketDataPoint) Open() float64 { return m.barValue(m.open) }
func (m MarketDataPoint) High() float64 { return m.barValue(m.high) }
func (m MarketDataPoint) Low() float64  { return m.barValue(m.low) }

func (m MarketDataPoint) Close() float64    { return m.barValue(m.close) }
func (m MarketDataPoint) AdjClose() float64 { return m.barValue(m.adjClose) }

// Volume returns zero for price-only ticks.
func (m MarketDataPoint) Volume() float64 { return m.volume }

func (m MarketDataPoint) barValue(v float64) float64 {
	if !m.ohlcv {
		return m.price
	}

	return v
}

func (m MarketDataPoint) String() string {
	return fmt.Sprintf("%s %s %.4f", m.timestamp.Format(time.RFC3339), m.symbol, m.price)
}
