package types

// LogLevel is the severity of a backtest diagnostic entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DropStage says where a signal was dropped.
type DropStage string

const (
	// DropStageOrder means the signal failed order validation.
	DropStageOrder DropStage = "order"
	// DropStageExecution means the portfolio rejected the fill.
	DropStageExecution DropStage = "execution"
)
