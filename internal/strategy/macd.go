package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeMACD = "macd"

type MACDConfig struct {
	FastPeriod   int     `yaml:"fast_period" json:"fast_period" validate:"gt=0"`
	SlowPeriod   int     `yaml:"slow_period" json:"slow_period" validate:"gtfield=FastPeriod"`
	SignalPeriod int     `yaml:"signal_period" json:"signal_period" validate:"gt=0"`
	Quantity     float64 `yaml:"quantity" json:"quantity" validate:"gt=0"`
}

func DefaultMACDConfig() MACDConfig {
	return MACDConfig{
		FastPeriod:   12,
		SlowPeriod:   26,
		SignalPeriod: 9,
		Quantity:     100,
	}
}

// MACD is long while the MACD line is above its signal line and short while
// it is below. It is edge-triggered and silent for the first SlowPeriod ticks
// of each symbol.
type MACD struct {
	config  MACDConfig
	macd    *indicator.Keyed[*indicator.MACD]
	trigger *EdgeTrigger
}

func NewMACD(config MACDConfig) (*MACD, error) {
	if err := validateConfig(TypeMACD, config); err != nil {
		return nil, err
	}

	// periods are validated above, so construction below cannot fail
	if _, err := indicator.NewMACD(config.FastPeriod, config.SlowPeriod, config.SignalPeriod); err != nil {
		return nil, err
	}

	return &MACD{
		config: config,
		macd: indicator.NewKeyed(func() *indicator.MACD {
			m, _ := indicator.NewMACD(config.FastPeriod, config.SlowPeriod, config.SignalPeriod)

			return m
		}),
		trigger: NewEdgeTrigger(),
	}, nil
}

func (s *MACD) Name() string {
	return TypeMACD
}

func (s *MACD) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	macd := s.macd.Get(tick.Symbol())
	value := macd.Next(tick.Price())

	if !macd.Ready() {
		return nil, nil
	}

	raw := types.ActionHold

	switch {
	case value.MACD > value.Signal:
		raw = types.ActionBuy
	case value.MACD < value.Signal:
		raw = types.ActionSell
	}

	action := s.trigger.Apply(tick.Symbol(), raw)
	reason := fmt.Sprintf("macd %.4f signal %.4f", value.MACD, value.Signal)

	return single(types.NewSignal(tick, action, s.config.Quantity, reason)), nil
}
