package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type BacktestCmdTestSuite struct {
	suite.Suite
	dir string
}

func TestBacktestCmdSuite(t *testing.T) {
	suite.Run(t, new(BacktestCmdTestSuite))
}

func (suite *BacktestCmdTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

// writePrices writes 120 daily bars of a sine wave for two symbols.
func (suite *BacktestCmdTestSuite) writePrices() string {
	path := filepath.Join(suite.dir, "prices.parquet")

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`
		COPY (
			SELECT
				TIMESTAMP '2024-01-02' + INTERVAL (i) DAY AS time,
				s.symbol AS symbol,
				s.base + 10 * sin(i / 6.0) AS open,
				s.base + 10 * sin(i / 6.0) + 1 AS high,
				s.base + 10 * sin(i / 6.0) - 1 AS low,
				s.base + 10 * sin(i / 6.0) AS close,
				1000000.0 AS volume
			FROM range(120) t(i)
			CROSS JOIN (VALUES ('AAPL', 100.0), ('MSFT', 200.0)) s(symbol, base)
		) TO '%s' (FORMAT PARQUET)
	`, path))
	suite.Require().NoError(err)

	return path
}

func (suite *BacktestCmdTestSuite) writeConfig(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

const runFile = `
engine:
  initial_capital: 100000
  log_level: error
strategies:
  - name: crossover
    type: moving_average_crossover
    params:
      short_window: 5
      long_window: 20
      quantity: 10
      edge_triggered: true
  - name: benchmark
    type: long_only_once
`

func (suite *BacktestCmdTestSuite) TestRunWritesResults() {
	data := suite.writePrices()
	cfg := suite.writeConfig("run.yaml", runFile)
	results := filepath.Join(suite.dir, "results")

	err := newCommand().Run(context.Background(), []string{"backtest", "-c", cfg, "-d", data, "-r", results, "--parallel"})
	suite.Require().NoError(err)

	for _, name := range []string{engine.StatsFileName, engine.OrdersFileName, engine.PositionsFileName, engine.DiagnosticsFileName} {
		suite.FileExists(filepath.Join(results, name))
	}

	content, err := os.ReadFile(filepath.Join(results, engine.StatsFileName))
	suite.Require().NoError(err)

	var stats []types.PerformanceStats
	suite.Require().NoError(yaml.Unmarshal(content, &stats))
	suite.Require().Len(stats, 2)
	suite.Equal("crossover", stats[0].Strategy)
	suite.Equal("benchmark", stats[1].Strategy)
	suite.Equal([]string{"AAPL", "MSFT"}, stats[0].Symbols)
	suite.Positive(stats[0].Orders.Total)
	suite.Positive(stats[1].Orders.Buys)
}

func (suite *BacktestCmdTestSuite) TestRunErrors() {
	data := suite.writePrices()

	missing := filepath.Join(suite.dir, "missing.yaml")
	err := newCommand().Run(context.Background(), []string{"backtest", "-c", missing, "-d", data})
	suite.Error(err)

	noStrategies := suite.writeConfig("empty.yaml", "engine:\n  initial_capital: 100\n")
	err = newCommand().Run(context.Background(), []string{"backtest", "-c", noStrategies, "-d", data})
	suite.Error(err)

	cfg := suite.writeConfig("run.yaml", runFile)
	err = newCommand().Run(context.Background(), []string{"backtest", "-c", cfg, "-d", filepath.Join(suite.dir, "nope.parquet")})
	suite.Error(err)
}
