package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// fill applies an order to a portfolio and marks it FILLED.
//
// BUY needs capital >= quantity*price. SELL needs an existing position
// holding at least quantity. A rejected order returns an
// *errors.ExecutionError and neither the order nor the portfolio changes.
func fill(order *types.Order, portfolio *types.Portfolio) error {
	var err error

	switch order.Action {
	case types.ActionBuy:
		err = portfolio.ApplyBuy(order.Symbol, order.Quantity, order.Price)
	case types.ActionSell:
		err = portfolio.ApplySell(order.Symbol, order.Quantity, order.Price)
	default:
		return errors.NewNotExecutableError(order.Symbol, string(order.Action))
	}

	if err != nil {
		return err
	}

	order.MarkFilled()

	return nil
}
