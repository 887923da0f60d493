package types

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Action is the trade direction proposed by a strategy.
type Action string

// OrderStatus is the fill state of an order.
type OrderStatus string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

const (
	OrderStatusUnfilled OrderStatus = "UNFILLED"
	OrderStatusFilled   OrderStatus = "FILLED"
	// OrderStatusCancelled is reserved. Nothing in the engine produces it.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid reports whether a is one of BUY, SELL or HOLD.
func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// ParseAction parses a case-insensitive action name.
func ParseAction(s string) (Action, error) {
	action := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !action.IsValid() {
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unrecognized action %q", s)
	}

	return action, nil
}

// IsValid reports whether s is one of UNFILLED, FILLED or CANCELLED.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusUnfilled, OrderStatusFilled, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus parses a case-insensitive status name.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unrecognized order status %q", s)
	}

	return status, nil
}

type Order struct {
	ID        string      `yaml:"id" json:"id" csv:"id"`
	Timestamp time.Time   `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Symbol    string      `yaml:"symbol" json:"symbol" csv:"symbol" validate:"symbol"`
	Quantity  float64     `yaml:"quantity" json:"quantity" csv:"quantity" validate:"finite,gt=0"`
	Price     float64     `yaml:"price" json:"price" csv:"price" validate:"finite,gt=0"`
	Status    OrderStatus `yaml:"status" json:"status" csv:"status" validate:"oneof=UNFILLED FILLED CANCELLED"`
	Action    Action      `yaml:"action" json:"action" csv:"action" validate:"oneof=BUY SELL HOLD"`
	// Strategy is the name of the strategy that signaled this order
	Strategy string `yaml:"strategy" json:"strategy" csv:"strategy"`
}

var orderValidator = newOrderValidator()

// orderIDNamespace scopes the name-based UUIDs returned by NewOrderID.
var orderIDNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("argo-backtest/order"))

// NewOrderID derives the ID of a strategy's seq-th filled order. The same
// strategy, sequence number, time and symbol always produce the same ID.
func NewOrderID(strategy string, seq int, timestamp time.Time, symbol string) string {
	key := fmt.Sprintf("%s/%d/%s/%s", strategy, seq, timestamp.UTC().Format(time.RFC3339Nano), symbol)

	return uuid.NewSHA1(orderIDNamespace, []byte(key)).String()
}

func newOrderValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()

		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})

	return validate
}

// NewOrder creates an order and validates it. Validation failures carry
// errors.ErrCodeInvalidOrder. The ID stays empty until the order is filled.
func NewOrder(
	timestamp time.Time,
	symbol string,
	quantity float64,
	price float64,
	status OrderStatus,
	action Action,
	strategy string,
) (*Order, error) {
	order := &Order{
		Timestamp: timestamp,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Status:    status,
		Action:    action,
		Strategy:  strategy,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// NewOrderFromSignal creates an UNFILLED order for a strategy signal.
func NewOrderFromSignal(signal Signal, strategy string) (*Order, error) {
	return NewOrder(signal.Timestamp, signal.Symbol, signal.Quantity, signal.Price, OrderStatusUnfilled, signal.Action, strategy)
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	if err := orderValidator.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return nil
}

// Notional is quantity times price.
func (o *Order) Notional() float64 {
	return o.Quantity * o.Price
}

// AssignID sets ID to NewOrderID for the order's strategy, time and symbol.
func (o *Order) AssignID(seq int) {
	o.ID = NewOrderID(o.Strategy, seq, o.Timestamp, o.Symbol)
}

// MarkFilled transitions the order to FILLED.
func (o *Order) MarkFilled() {
	o.Status = OrderStatusFilled
}
