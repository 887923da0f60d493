package strategy

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func tickAt(day int, symbol string, price float64) types.MarketDataPoint {
	return types.MustNewMarketDataPoint(baseTime.AddDate(0, 0, day), symbol, price)
}

// feed runs prices through s and returns the signals of every tick, one slice per tick.
func feed(s Strategy, symbol string, prices []float64) [][]types.Signal {
	out := make([][]types.Signal, 0, len(prices))

	for i, price := range prices {
		signals, err := s.GenerateSignals(tickAt(i, symbol, price))
		if err != nil {
			panic(err)
		}

		out = append(out, signals)
	}

	return out
}

// actions flattens signals to their actions, dropping HOLD when skipHold is set.
func actions(perTick [][]types.Signal, skipHold bool) []types.Action {
	var out []types.Action

	for _, signals := range perTick {
		for _, signal := range signals {
			if skipHold && signal.Action == types.ActionHold {
				continue
			}

			out = append(out, signal.Action)
		}
	}

	return out
}

func linear(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}

	return out
}

func constant(price float64, n int) []float64 {
	return linear(price, 0, n)
}
