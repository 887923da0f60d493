package engine

import (
	"math"
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// Performance is the equity curve of one strategy and the metrics derived from it.
type Performance struct {
	InitialValue float64
	FinalValue   float64
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	Equity       []types.EquityPoint
}

// BuildPortfolioTimeseries replays orders over ticks and marks the portfolio
// to market once per distinct timestamp, after that timestamp's orders.
// Each symbol is marked at its latest price seen so far.
// ticks must be in feed order and orders in execution order.
func BuildPortfolioTimeseries(initialCapital float64, ticks []types.MarketDataPoint, orders []types.Order) ([]types.EquityPoint, error) {
	portfolio := types.NewPortfolio(initialCapital)
	prices := make(map[string]float64)
	equity := make([]types.EquityPoint, 0, len(ticks))
	next := 0

	for i := 0; i < len(ticks); {
		ts := ticks[i].Timestamp()

		for ; i < len(ticks) && ticks[i].Timestamp().Equal(ts); i++ {
			prices[ticks[i].Symbol()] = ticks[i].Price()
		}

		for ; next < len(orders) && !orders[next].Timestamp.After(ts); next++ {
			if err := replay(portfolio, orders[next]); err != nil {
				return nil, err
			}
		}

		equity = append(equity, types.EquityPoint{
			Timestamp: ts,
			Value:     portfolio.MarketValue(prices),
		})
	}

	if next < len(orders) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"%d orders are later than the last tick", len(orders)-next)
	}

	return equity, nil
}

func replay(portfolio *types.Portfolio, order types.Order) error {
	switch order.Action {
	case types.ActionBuy:
		return portfolio.ApplyBuy(order.Symbol, order.Quantity, order.Price)
	case types.ActionSell:
		return portfolio.ApplySell(order.Symbol, order.Quantity, order.Price)
	default:
		return errors.NewNotExecutableError(order.Symbol, string(order.Action))
	}
}

// ComputePerformance derives return metrics from an equity curve that starts at initialCapital.
//
// Returns are simple per-step returns over [initialCapital, equity...].
// Sharpe is their mean over their population standard deviation with a zero
// risk-free rate, and 0 when the deviation is 0. MaxDrawdown is the most
// negative (value - running peak) / running peak.
func ComputePerformance(initialCapital float64, equity []types.EquityPoint) Performance {
	values := make([]decimal.Decimal, 0, len(equity)+1)
	values = append(values, decimal.NewFromFloat(initialCapital))

	for _, point := range equity {
		values = append(values, decimal.NewFromFloat(point.Value))
	}

	initial := values[0]
	final := values[len(values)-1]

	perf := Performance{
		InitialValue: initialCapital,
		FinalValue:   final.InexactFloat64(),
		Equity:       slices.Clone(equity),
	}

	if !initial.IsZero() {
		perf.TotalReturn = final.Sub(initial).Div(initial).InexactFloat64()
	}

	perf.SharpeRatio = sharpe(stepReturns(values))
	perf.MaxDrawdown = maxDrawdown(values)

	return perf
}

func stepReturns(values []decimal.Decimal) []decimal.Decimal {
	if len(values) < 2 {
		return []decimal.Decimal{decimal.Zero}
	}

	returns := make([]decimal.Decimal, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		if values[i-1].IsZero() {
			returns = append(returns, decimal.Zero)

			continue
		}

		returns = append(returns, values[i].Sub(values[i-1]).Div(values[i-1]))
	}

	return returns
}

func sharpe(returns []decimal.Decimal) float64 {
	n := decimal.NewFromInt(int64(len(returns)))
	mean := decimal.Sum(decimal.Zero, returns...).Div(n)

	variance := decimal.Zero
	for _, r := range returns {
		d := r.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}

	variance = variance.Div(n)
	if variance.IsZero() {
		return 0
	}

	return mean.InexactFloat64() / math.Sqrt(variance.InexactFloat64())
}

func maxDrawdown(values []decimal.Decimal) float64 {
	peak := values[0]
	worst := decimal.Zero

	for _, v := range values {
		if v.GreaterThan(peak) {
			peak = v
		}

		if peak.IsZero() {
			continue
		}

		if dd := v.Sub(peak).Div(peak); dd.LessThan(worst) {
			worst = dd
		}
	}

	return worst.InexactFloat64()
}
