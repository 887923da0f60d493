package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeLongOnlyOnce = "long_only_once"

type LongOnlyOnceConfig struct {
	Quantity float64 `yaml:"quantity" json:"quantity" validate:"gt=0"`
	// MaxVolumeFraction caps the order at this share of the first bar's volume.
	MaxVolumeFraction float64 `yaml:"max_volume_fraction" json:"max_volume_fraction" validate:"gt=0,lte=1"`
}

func DefaultLongOnlyOnceConfig() LongOnlyOnceConfig {
	return LongOnlyOnceConfig{
		Quantity:          1,
		MaxVolumeFraction: 0.1,
	}
}

// LongOnlyOnce is a buy-and-hold benchmark. On the first tick of each symbol
// it buys Quantity at the close if Quantity is below MaxVolumeFraction of the
// bar volume; price-only ticks skip the volume check. Every later tick emits HOLD.
type LongOnlyOnce struct {
	config LongOnlyOnceConfig
	seen   map[string]struct{}
}

func NewLongOnlyOnce(config LongOnlyOnceConfig) (*LongOnlyOnce, error) {
	if err := validateConfig(TypeLongOnlyOnce, config); err != nil {
		return nil, err
	}

	return &LongOnlyOnce{
		config: config,
		seen:   make(map[string]struct{}),
	}, nil
}

func (s *LongOnlyOnce) Name() string {
	return TypeLongOnlyOnce
}

func (s *LongOnlyOnce) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	signal := types.NewSignal(tick, types.ActionHold, s.config.Quantity, "holding")
	signal.Price = tick.Close()

	if _, ok := s.seen[tick.Symbol()]; ok {
		return single(signal), nil
	}

	s.seen[tick.Symbol()] = struct{}{}

	if tick.HasOHLCV() && s.config.Quantity >= s.config.MaxVolumeFraction*tick.Volume() {
		return nil, nil
	}

	signal.Action = types.ActionBuy
	signal.Reason = "initial purchase"

	return single(signal), nil
}
