// Package strategy contains the signal generators the backtest engine drives.
//
// A strategy sees every tick once, in ascending (timestamp, symbol) order,
// and returns zero or more signals. All rolling state is kept per symbol so
// that interleaved multi-symbol feeds do not share history. Strategies never
// see portfolio or order state.
package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Strategy generates trading signals from market data.
type Strategy interface {
	// Name returns the strategy type name, e.g. "moving_average_crossover".
	Name() string
	// GenerateSignals consumes one tick and returns the signals it triggers.
	// Returning no signals during warm-up is expected. An error means the
	// strategy itself is broken and aborts the backtest.
	GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error)
}

// Named pairs a strategy with the name its portfolio and orders are recorded under.
type Named struct {
	Name     string
	Strategy Strategy
}

func single(signal types.Signal) []types.Signal {
	return []types.Signal{signal}
}
