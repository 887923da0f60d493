package log

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// LogEntry is a diagnostic recorded while a strategy runs, keyed by market data time.
type LogEntry struct {
	// Timestamp is the market data time when this log was created.
	Timestamp time.Time
	// Strategy is the name of the strategy whose pass produced the entry.
	Strategy string
	// Symbol is the trading symbol associated with this log.
	Symbol string
	// Level is the severity level of the log.
	Level types.LogLevel
	// Stage is set for dropped signals.
	Stage types.DropStage
	// Message is the log message content.
	Message string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// Log is the interface for storing backtest diagnostics.
type Log interface {
	// Log stores a log entry.
	Log(entry LogEntry) error
	// GetLogs retrieves all stored log entries.
	GetLogs() ([]LogEntry, error)
}
