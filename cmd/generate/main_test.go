package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/config"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/stretchr/testify/suite"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
	wd      string
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	wd, err := os.Getwd()
	suite.Require().NoError(err)
	suite.wd = wd

	suite.tempDir = suite.T().TempDir()
	suite.Require().NoError(os.Chdir(suite.tempDir))
}

func (suite *GenerateCmdTestSuite) TearDownTest() {
	suite.Require().NoError(os.Chdir(suite.wd))
}

func (suite *GenerateCmdTestSuite) TestMainWritesEverything() {
	main()

	suite.FileExists(filepath.Join(suite.tempDir, "config", schemaName))
	suite.FileExists(filepath.Join(suite.tempDir, "config", sampleRunName))
	suite.FileExists(filepath.Join(suite.tempDir, "data", sampleDataName))
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	main()

	sampleConfigPath := filepath.Join(suite.tempDir, "config", sampleRunName)
	suite.Require().NoError(os.WriteFile(sampleConfigPath, []byte("edited"), 0644))

	main()

	content, err := os.ReadFile(sampleConfigPath)
	suite.Require().NoError(err)
	suite.Equal("edited", string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFile() {
	schemaPath := filepath.Join(suite.tempDir, "nested", "schema.json")

	suite.Require().NoError(generateSchemaFile(engine.EmptyConfig(), schemaPath))

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "initial_capital")
}

func (suite *GenerateCmdTestSuite) TestSampleConfigLoadsAndBuilds() {
	path := filepath.Join(suite.tempDir, "run.yaml")
	suite.Require().NoError(generateSampleConfig(sampleRunConfig(), path))

	cfg, err := config.Load(path)
	suite.Require().NoError(err)
	suite.Require().NoError(cfg.Validate())
	suite.Equal(100_000.0, cfg.Engine.InitialCapital)

	named, err := cfg.BuildStrategies(strategy.NewDefaultRegistry())
	suite.Require().NoError(err)
	suite.Len(named, 4)
	suite.Equal("ma_crossover", named[0].Name)
}

func (suite *GenerateCmdTestSuite) TestSampleDataReadable() {
	path := filepath.Join(suite.tempDir, "prices.parquet")
	points := mocks.GenerateDailyMultiSymbol([]string{"AAPL", "MSFT"}, 30)

	suite.Require().NoError(generateSampleData(points, path))

	ds, err := datasource.NewDataSource("", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer ds.Close()

	suite.Require().NoError(ds.Initialize(path))

	count, err := ds.Count(optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(60, count)

	symbols, err := ds.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)

	feed, err := engine.FeedFromDataSource(ds, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	first := feed.Points()[0]
	suite.Equal("AAPL", first.Symbol())
	suite.True(first.HasOHLCV())
	suite.InDelta(points[0].Close(), first.Close(), 1e-9)
}

func (suite *GenerateCmdTestSuite) TestSampleDataInvalidPath() {
	err := generateSampleData(nil, filepath.Join("/dev/null", "prices.parquet"))
	suite.Error(err)
	suite.Contains(err.Error(), "failed to")
}
