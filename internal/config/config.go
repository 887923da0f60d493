// Package config defines the run file of the backtest command: the engine
// settings plus the list of strategies to load, in declaration order.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// StrategyConfig declares one strategy instance. Name keys its portfolio and
// orders, Type selects the registry factory, and Params override the type's defaults.
type StrategyConfig struct {
	Name   string         `yaml:"name" toml:"name" validate:"required"`
	Type   string         `yaml:"type" toml:"type" validate:"required"`
	Params map[string]any `yaml:"params,omitempty" toml:"params"`
}

// RunConfig is populated from a YAML or TOML file and then optionally
// overridden by ARGO_* environment variables.
type RunConfig struct {
	Engine     engine.BacktestEngineV1Config `yaml:"engine" toml:"engine"`
	Strategies []StrategyConfig              `yaml:"strategies" toml:"strategies" validate:"min=1,dive"`
}

// Defaults returns a config with the default engine settings and no strategies.
func Defaults() RunConfig {
	return RunConfig{
		Engine: engine.EmptyConfig(),
	}
}

// Validate checks the engine settings and that strategy names are set and unique.
func (c RunConfig) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid run config", err)
	}

	seen := make(map[string]struct{}, len(c.Strategies))
	for _, s := range c.Strategies {
		name := strings.TrimSpace(s.Name)
		if _, dup := seen[name]; dup {
			return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy name %s is declared twice", name)
		}

		seen[name] = struct{}{}
	}

	return nil
}

// BuildStrategies creates one fresh strategy instance per declaration, in order.
func (c RunConfig) BuildStrategies(registry strategy.Registry) ([]strategy.Named, error) {
	named := make([]strategy.Named, 0, len(c.Strategies))

	for _, s := range c.Strategies {
		instance, err := registry.Create(s.Type, s.Params)
		if err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "failed to create strategy %s", s.Name)
		}

		named = append(named, strategy.Named{Name: s.Name, Strategy: instance})
	}

	return named, nil
}
