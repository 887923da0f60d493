package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is the marked-to-market value of a portfolio at one timestamp.
type EquityPoint struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Value     float64   `yaml:"value" json:"value" csv:"value"`
}

type OrderCounts struct {
	// Count of all filled orders.
	Total int `yaml:"total"`
	// Count of filled BUY orders.
	Buys int `yaml:"buys"`
	// Count of filled SELL orders.
	Sells int `yaml:"sells"`
	// Count of signals dropped by validation or execution.
	Dropped int `yaml:"dropped"`
}

type PerformanceStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Strategy is the name the strategy was registered under.
	Strategy string `yaml:"strategy" json:"strategy"`
	// Symbols traded or observed during the run.
	Symbols []string `yaml:"symbols" json:"symbols"`
	// InitialCapital is the cash the portfolio started with.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// FinalValue is capital plus open positions at the last observed prices.
	FinalValue float64 `yaml:"final_value" json:"final_value"`
	// TotalReturn is FinalValue / InitialCapital - 1.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// SharpeRatio is mean over standard deviation of per-step returns, with a zero risk-free rate.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the largest peak-to-trough decline of the equity curve, as a negative fraction.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// Orders summarizes the order log.
	Orders OrderCounts `yaml:"orders" json:"orders"`
	// Portfolio is the final portfolio state.
	Portfolio PortfolioSnapshot `yaml:"portfolio" json:"portfolio"`
	// OrdersFilePath is the path to the orders parquet file.
	OrdersFilePath string `yaml:"orders_file_path" json:"orders_file_path"`
	// PositionsFilePath is the path to the positions parquet file.
	PositionsFilePath string `yaml:"positions_file_path" json:"positions_file_path"`
	// DiagnosticsFilePath is the path to the dropped signal parquet file.
	DiagnosticsFilePath string `yaml:"diagnostics_file_path" json:"diagnostics_file_path"`
}

func WritePerformanceStats(path string, stats []PerformanceStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal performance stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance stats to file: %w", err)
	}

	return nil
}
