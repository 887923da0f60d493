package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidMarketData    ErrorCode = 120

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeUnsupportedStrategy  ErrorCode = 403
	ErrCodeDuplicateStrategy    ErrorCode = 405

	// Execution errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodePositionNotFound     ErrorCode = 501
	ErrCodeInsufficientCapital  ErrorCode = 503
	ErrCodeInsufficientQuantity ErrorCode = 504
	ErrCodeNotExecutable        ErrorCode = 505

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoStrategies ErrorCode = 604
	ErrCodeBacktestNoData       ErrorCode = 609
	ErrCodeBacktestWriteFailed  ErrorCode = 610

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
