package strategy

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Factory builds a strategy from loosely typed parameters, usually read from a config file.
type Factory func(params map[string]any) (Strategy, error)

// Registry maps strategy type names to factories.
type Registry interface {
	Register(strategyType string, factory Factory) error
	Create(strategyType string, params map[string]any) (Strategy, error)
	List() []string
}

// RegistryV1 is a Registry safe for concurrent use.
type RegistryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *RegistryV1 {
	return &RegistryV1{
		factories: make(map[string]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry holding every built-in strategy.
func NewDefaultRegistry() *RegistryV1 {
	r := NewRegistry()

	builtins := map[string]Factory{
		TypeMovingAverageCrossover: factoryFor(TypeMovingAverageCrossover, DefaultMovingAverageCrossoverConfig, NewMovingAverageCrossover),
		TypeMACD:                   factoryFor(TypeMACD, DefaultMACDConfig, NewMACD),
		TypeBollingerBands:         factoryFor(TypeBollingerBands, DefaultBollingerBandsConfig, NewBollingerBands),
		TypeRSI:                    factoryFor(TypeRSI, DefaultRSIConfig, NewRSI),
		TypeVolatilityBreakout:     factoryFor(TypeVolatilityBreakout, DefaultVolatilityBreakoutConfig, NewVolatilityBreakout),
		TypeLongOnlyOnce:           factoryFor(TypeLongOnlyOnce, DefaultLongOnlyOnceConfig, NewLongOnlyOnce),
	}

	for name, factory := range builtins {
		// names are distinct, so registration cannot fail
		_ = r.Register(name, factory)
	}

	return r
}

func factoryFor[C any, S Strategy](strategyType string, defaults func() C, build func(C) (S, error)) Factory {
	return func(params map[string]any) (Strategy, error) {
		config, err := DecodeParams(strategyType, params, defaults())
		if err != nil {
			return nil, err
		}

		strategy, err := build(config)
		if err != nil {
			return nil, err
		}

		return strategy, nil
	}
}

// Register adds a factory under strategyType.
func (r *RegistryV1) Register(strategyType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[strategyType]; exists {
		return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy type %s already registered", strategyType)
	}

	r.factories[strategyType] = factory

	return nil
}

// Create builds a new strategy instance of strategyType.
func (r *RegistryV1) Create(strategyType string, params map[string]any) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[strategyType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy type %s not found", strategyType)
	}

	return factory(params)
}

// List returns the registered strategy types, sorted.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
