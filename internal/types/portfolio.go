package types

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// AvgPricePrecision is the number of decimal places kept for a position's cost basis.
const AvgPricePrecision = 4

// Position is the holding of one symbol inside a portfolio.
type Position struct {
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// AvgPrice is the volume-weighted cost basis of the open quantity.
	// It is 0 whenever Quantity is 0.
	AvgPrice float64 `yaml:"avg_price" json:"avg_price"`
}

// PositionSnapshot is a Position tagged with its symbol.
type PositionSnapshot struct {
	Symbol   string  `yaml:"symbol" json:"symbol" csv:"symbol"`
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	AvgPrice float64 `yaml:"avg_price" json:"avg_price" csv:"avg_price"`
}

// PortfolioSnapshot is a read-only copy of a portfolio. Positions are sorted by symbol.
type PortfolioSnapshot struct {
	Capital   float64            `yaml:"capital" json:"capital"`
	Earnings  float64            `yaml:"earnings" json:"earnings"`
	Positions []PositionSnapshot `yaml:"positions" json:"positions"`
}

// Portfolio is the simulated account of a single strategy.
//
// Capital is cash. Earnings is realized net cash flow: buys subtract the
// notional, sells add it. Neither is rounded. Positions are created on the
// first successful buy of a symbol and are never removed.
type Portfolio struct {
	capital   float64
	earnings  float64
	positions map[string]*Position
}

// NewPortfolio creates an empty portfolio holding the given cash.
func NewPortfolio(capital float64) *Portfolio {
	return &Portfolio{
		capital:   capital,
		earnings:  0,
		positions: make(map[string]*Position),
	}
}

func (p *Portfolio) Capital() float64 {
	return p.capital
}

func (p *Portfolio) Earnings() float64 {
	return p.earnings
}

// Position returns a copy of the position for symbol.
func (p *Portfolio) Position(symbol string) (Position, bool) {
	position, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}

	return *position, true
}

// Symbols returns every symbol the portfolio has ever held, sorted.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}

	slices.Sort(symbols)

	return symbols
}

// ApplyBuy debits capital and earnings by quantity*price and adds to the
// position. It fails without mutating anything when capital is short.
func (p *Portfolio) ApplyBuy(symbol string, quantity, price float64) error {
	if err := checkFill(symbol, quantity, price); err != nil {
		return err
	}

	notional := price * quantity
	if p.capital < notional {
		return errors.NewInsufficientCapitalError(symbol, notional, p.capital)
	}

	position, ok := p.positions[symbol]
	if !ok {
		position = &Position{}
		p.positions[symbol] = position
	}

	position.AvgPrice = RoundAvgPrice((position.AvgPrice*position.Quantity + price*quantity) / (position.Quantity + quantity))
	position.Quantity += quantity
	p.capital -= notional
	p.earnings -= notional

	return nil
}

// ApplySell credits capital and earnings by quantity*price and reduces the
// position. It fails without mutating anything when there is no position or
// not enough quantity.
func (p *Portfolio) ApplySell(symbol string, quantity, price float64) error {
	if err := checkFill(symbol, quantity, price); err != nil {
		return err
	}

	position, ok := p.positions[symbol]
	if !ok {
		return errors.NewPositionNotFoundError(symbol, quantity)
	}

	if position.Quantity < quantity {
		return errors.NewInsufficientQuantityError(symbol, quantity, position.Quantity)
	}

	notional := price * quantity
	position.Quantity -= quantity

	if position.Quantity == 0 {
		position.AvgPrice = 0
	}

	p.capital += notional
	p.earnings += notional

	return nil
}

// MarketValue is capital plus every open position marked at prices. Symbols
// missing from prices are marked at their cost basis.
func (p *Portfolio) MarketValue(prices map[string]float64) float64 {
	value := decimal.NewFromFloat(p.capital)

	for symbol, position := range p.positions {
		if position.Quantity == 0 {
			continue
		}

		price, ok := prices[symbol]
		if !ok {
			price = position.AvgPrice
		}

		value = value.Add(decimal.NewFromFloat(position.Quantity).Mul(decimal.NewFromFloat(price)))
	}

	return value.InexactFloat64()
}

// Snapshot returns a deep copy of the portfolio.
func (p *Portfolio) Snapshot() PortfolioSnapshot {
	positions := make([]PositionSnapshot, 0, len(p.positions))
	for _, symbol := range p.Symbols() {
		position := p.positions[symbol]
		positions = append(positions, PositionSnapshot{
			Symbol:   symbol,
			Quantity: position.Quantity,
			AvgPrice: position.AvgPrice,
		})
	}

	return PortfolioSnapshot{
		Capital:   p.capital,
		Earnings:  p.earnings,
		Positions: positions,
	}
}

func checkFill(symbol string, quantity, price float64) error {
	if quantity <= 0 || price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "cannot fill %s with quantity %v at price %v", symbol, quantity, price)
	}

	return nil
}

// exactExponent is small enough for every float64 to convert to a decimal without rounding.
const exactExponent = -1074

// RoundAvgPrice rounds the exact binary value of v to AvgPricePrecision places,
// sending ties to the even digit.
func RoundAvgPrice(v float64) float64 {
	return decimal.NewFromFloatWithExponent(v, exactExponent).RoundBank(AvgPricePrecision).InexactFloat64()
}
