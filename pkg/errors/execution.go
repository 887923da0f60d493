package errors

import (
	"errors"
	"fmt"
)

// ExecutionError is returned when a portfolio rejects an order fill.
// Requested and Available are denominated in cash for insufficient capital
// and in units for position checks.
type ExecutionError struct {
	Code      ErrorCode
	Symbol    string
	Requested float64
	Available float64
	Message   string
}

// NewInsufficientCapitalError reports a BUY whose notional exceeds the available cash.
func NewInsufficientCapitalError(symbol string, required, available float64) *ExecutionError {
	return &ExecutionError{
		Code:      ErrCodeInsufficientCapital,
		Symbol:    symbol,
		Requested: required,
		Available: available,
		Message:   fmt.Sprintf("insufficient capital to buy %s: required %.4f, available %.4f", symbol, required, available),
	}
}

// NewPositionNotFoundError reports a SELL for a symbol the portfolio has never bought.
func NewPositionNotFoundError(symbol string, requested float64) *ExecutionError {
	return &ExecutionError{
		Code:      ErrCodePositionNotFound,
		Symbol:    symbol,
		Requested: requested,
		Available: 0,
		Message:   fmt.Sprintf("no position to sell for %s", symbol),
	}
}

// NewInsufficientQuantityError reports a SELL larger than the held quantity.
func NewInsufficientQuantityError(symbol string, requested, available float64) *ExecutionError {
	return &ExecutionError{
		Code:      ErrCodeInsufficientQuantity,
		Symbol:    symbol,
		Requested: requested,
		Available: available,
		Message:   fmt.Sprintf("insufficient quantity to sell %s: requested %v, held %v", symbol, requested, available),
	}
}

// NewNotExecutableError reports an order whose action moves no cash or units, such as HOLD.
func NewNotExecutableError(symbol string, action string) *ExecutionError {
	return &ExecutionError{
		Code:      ErrCodeNotExecutable,
		Symbol:    symbol,
		Requested: 0,
		Available: 0,
		Message:   fmt.Sprintf("%s order for %s is not executable", action, symbol),
	}
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// IsExecutionError reports whether any error in err's chain is an *ExecutionError.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionCode returns the code of the first *ExecutionError in err's chain,
// or ErrCodeUnknown when there is none.
func GetExecutionCode(err error) ErrorCode {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code
	}

	return ErrCodeUnknown
}
