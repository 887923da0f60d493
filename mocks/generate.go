package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/strategy Strategy
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
