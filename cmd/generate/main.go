package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/config"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"gopkg.in/yaml.v3"
)

const (
	schemaName     = "backtest-engine-v1-config.json"
	sampleRunName  = "backtest.yaml"
	sampleDataName = "sample_prices.parquet"
)

var sampleSymbols = []string{"AAPL", "MSFT", "NVDA"}

func main() {
	schemaPath := filepath.Join("./config", schemaName)
	sampleConfigPath := filepath.Join("./config", sampleRunName)
	sampleDataPath := filepath.Join("./data", sampleDataName)

	if err := generateSchemaFile(engine.EmptyConfig(), schemaPath); err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	// existing samples are never overwritten
	if !exists(sampleConfigPath) {
		if err := generateSampleConfig(sampleRunConfig(), sampleConfigPath); err != nil {
			log.Fatalf("Failed to generate sample config: %v", err)
		}

		log.Printf("Sample config successfully generated at %s", sampleConfigPath)
	}

	if !exists(sampleDataPath) {
		points := mocks.GenerateDailyMultiSymbol(sampleSymbols, 250)
		if err := generateSampleData(points, sampleDataPath); err != nil {
			log.Fatalf("Failed to generate sample data: %v", err)
		}

		log.Printf("Sample data successfully generated at %s", sampleDataPath)
	}
}

func sampleRunConfig() config.RunConfig {
	cfg := config.Defaults()
	cfg.Engine.InitialCapital = 100_000
	cfg.Strategies = []config.StrategyConfig{
		{Name: "ma_crossover", Type: strategy.TypeMovingAverageCrossover, Params: map[string]any{"short_window": 5, "long_window": 20, "quantity": 10, "edge_triggered": true}},
		{Name: "rsi", Type: strategy.TypeRSI, Params: map[string]any{"quantity": 10}},
		{Name: "bollinger", Type: strategy.TypeBollingerBands, Params: map[string]any{"quantity": 10}},
		{Name: "buy_and_hold", Type: strategy.TypeLongOnlyOnce},
	}

	return cfg
}

func generateSchemaFile(cfg engine.BacktestEngineV1Config, path string) error {
	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

func generateSampleConfig(cfg config.RunConfig, path string) error {
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return nil
}

// generateSampleData writes points as a parquet file with the columns the
// DuckDB data source reads.
func generateSampleData(points []types.MarketDataPoint, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE prices (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			adj_close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	const batchSize = 500

	for start := 0; start < len(points); start += batchSize {
		end := min(start+batchSize, len(points))

		insert := squirrel.Insert("prices").
			Columns("time", "symbol", "open", "high", "low", "close", "adj_close", "volume")
		for _, p := range points[start:end] {
			insert = insert.Values(p.Timestamp(), p.Symbol(), p.Open(), p.High(), p.Low(), p.Close(), p.AdjClose(), p.Volume())
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}

		if _, err := db.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to insert prices: %w", err)
		}
	}

	copySQL := fmt.Sprintf("COPY (SELECT * FROM prices ORDER BY time, symbol) TO '%s' (FORMAT PARQUET)",
		strings.ReplaceAll(path, "'", "''"))
	if _, err := db.Exec(copySQL); err != nil {
		return fmt.Errorf("failed to write parquet: %w", err)
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
