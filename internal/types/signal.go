package types

import "time"

// Signal is a strategy's proposed trade for a tick. It is not validated until
// the engine turns it into an Order.
type Signal struct {
	// Timestamp is the time of the tick that produced the signal
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Action is BUY, SELL or HOLD
	Action Action `yaml:"action" json:"action"`
	// Symbol is the instrument the signal is for
	Symbol string `yaml:"symbol" json:"symbol"`
	// Quantity is the strategy's sizing decision
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// Price is the intended fill price, normally the tick price
	Price float64 `yaml:"price" json:"price"`
	// Reason is free text for diagnostics, e.g. "short ma above long ma"
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// NewSignal creates a signal priced at the tick.
func NewSignal(tick MarketDataPoint, action Action, quantity float64, reason string) Signal {
	return Signal{
		Timestamp: tick.Timestamp(),
		Action:    action,
		Symbol:    tick.Symbol(),
		Quantity:  quantity,
		Price:     tick.Price(),
		Reason:    reason,
	}
}

// IsActionable reports whether the signal should become an order. HOLD never does.
func (s Signal) IsActionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}
