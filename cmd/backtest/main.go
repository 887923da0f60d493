package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	engine_types "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/config"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// backtestAction loads the run file and market data, runs every declared
// strategy, writes the results folder and logs a summary per strategy.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	if cmd.IsSet("parallel") {
		cfg.Engine.Parallel = cmd.Bool("parallel")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	appLogger, err := logger.NewLoggerWithLevel(cfg.Engine.LogLevel)
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	named, err := cfg.BuildStrategies(strategy.NewDefaultRegistry())
	if err != nil {
		return err
	}

	ds, err := datasource.NewDataSource("", appLogger)
	if err != nil {
		return err
	}
	defer ds.Close()

	dataPath := cmd.String("data")
	if err := ds.Initialize(dataPath); err != nil {
		return err
	}

	feed, err := engine.FeedFromDataSource(ds, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return err
	}

	backtest, err := engine.NewBacktestEngineV1WithData(cfg.Engine, feed, named, appLogger)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onStart := engine_types.OnBacktestStartCallback(func(totalStrategies, totalDataPoints int) error {
		bar = progressbar.NewOptions(totalStrategies*totalDataPoints,
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %d strategies", totalStrategies)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)

		return nil
	})
	onProcess := engine_types.OnProcessDataCallback(func(current, total int) error {
		return bar.Set(current)
	})
	onEnd := engine_types.OnBacktestEndCallback(func(err error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	err = backtest.Run(ctx, engine_types.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnProcessData:   &onProcess,
	})
	if err != nil {
		return err
	}

	resultsPath := cmd.String("results")
	if err := backtest.WriteResults(resultsPath); err != nil {
		return err
	}

	for _, s := range named {
		perf, err := backtest.Performance(s.Name)
		if err != nil {
			return err
		}

		portfolio, _ := backtest.Portfolio(s.Name)

		appLogger.Info("Strategy summary",
			zap.String("strategy", s.Name),
			zap.Int("orders", len(backtest.StrategyOrders(s.Name))),
			zap.Float64("capital", portfolio.Capital),
			zap.Float64("earnings", portfolio.Earnings),
			zap.Float64("final_value", perf.FinalValue),
			zap.Float64("total_return", perf.TotalReturn),
			zap.Float64("sharpe_ratio", perf.SharpeRatio),
			zap.Float64("max_drawdown", perf.MaxDrawdown),
		)
	}

	appLogger.Info("Results written",
		zap.String("folder", resultsPath),
		zap.String("version", version.GetVersion()),
	)

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay historical market data through trading strategies",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the run file (.yaml, .yml or .toml)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Parquet file or glob with price history",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Folder for stats.yaml and the parquet exports",
				Value:   "results",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Run strategies concurrently. Overrides the run file",
			},
		},
		Action: backtestAction,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
