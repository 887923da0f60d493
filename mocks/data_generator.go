package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates realistic market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "AAPL", "SPY")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns daily bars starting on the first trading day of 2024.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Count:          250,
		InitialPrice:   100.0,
		Volatility:     0.02,
		Trend:          0.0,
		VolumeBase:     1_000_000,
		VolumeVariance: 0.3,
	}
}

// Generate creates OHLCV points following a geometric Brownian motion.
// The adjusted close equals the close.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketDataPoint {
	data := make([]types.MarketDataPoint, 0, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a standard normal draw
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		closeRounded := roundToDecimals(close, 4)
		if closeRounded <= 0 {
			closeRounded = 0.0001
		}

		point, err := types.NewOHLCVPoint(
			currentTime,
			config.Symbol,
			roundToDecimals(open, 4),
			roundToDecimals(high, 4),
			roundToDecimals(low, 4),
			closeRounded,
			closeRounded,
			roundToDecimals(volume, 0),
		)
		if err != nil {
			panic(err)
		}

		data = append(data, point)

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// GenerateMultiSymbol generates data for multiple symbols over the same time grid.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.MarketDataPoint {
	var allData []types.MarketDataPoint

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allData = append(allData, g.Generate(config)...)
	}

	return allData
}

// GenerateDaily is a convenience function for count daily bars with a fixed seed.
func GenerateDaily(symbol string, count int) []types.MarketDataPoint {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = count

	return gen.Generate(config)
}

// GenerateDailyMultiSymbol generates count daily bars for each symbol with a fixed seed.
func GenerateDailyMultiSymbol(symbols []string, count int) []types.MarketDataPoint {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = count

	return gen.GenerateMultiSymbol(symbols, config)
}

func roundToDecimals(val float64, decimals int32) float64 {
	return decimal.NewFromFloat(val).Round(decimals).InexactFloat64()
}
