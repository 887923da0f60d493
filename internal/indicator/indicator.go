// Package indicator holds streaming technical indicators. Each instance tracks
// a single series. Strategies that see several symbols keep one instance per
// symbol through Keyed.
package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Indicator is a technical indicator fed one value at a time.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Update feeds the next value of the series
	Update(value float64)
	// Ready reports whether the indicator has seen its full lookback
	Ready() bool
	// RawValue returns the current primary value of the indicator
	RawValue() (float64, error)
}

// Keyed lazily creates one value per key, usually one indicator per symbol.
type Keyed[T any] struct {
	items   map[string]T
	factory func() T
}

// NewKeyed creates a Keyed that builds missing entries with factory.
func NewKeyed[T any](factory func() T) *Keyed[T] {
	return &Keyed[T]{
		items:   make(map[string]T),
		factory: factory,
	}
}

// Get returns the value for key, creating it on first use.
func (k *Keyed[T]) Get(key string) T {
	item, ok := k.items[key]
	if !ok {
		item = k.factory()
		k.items[key] = item
	}

	return item
}
