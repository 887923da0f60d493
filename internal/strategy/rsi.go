package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeRSI = "rsi"

type RSIConfig struct {
	Period     int     `yaml:"period" json:"period" validate:"gt=1"`
	Oversold   float64 `yaml:"oversold" json:"oversold" validate:"gte=0,ltfield=Overbought"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"lte=100"`
	Quantity   float64 `yaml:"quantity" json:"quantity" validate:"gt=0"`
}

func DefaultRSIConfig() RSIConfig {
	return RSIConfig{
		Period:     14,
		Oversold:   30,
		Overbought: 70,
		Quantity:   100,
	}
}

// RSI buys when the index falls to Oversold and sells when it reaches
// Overbought. Edge-triggered. Warm-up is twice the period.
type RSI struct {
	config  RSIConfig
	rsi     *indicator.Keyed[*indicator.RSI]
	trigger *EdgeTrigger
}

func NewRSI(config RSIConfig) (*RSI, error) {
	if err := validateConfig(TypeRSI, config); err != nil {
		return nil, err
	}

	return &RSI{
		config: config,
		rsi: indicator.NewKeyed(func() *indicator.RSI {
			r, _ := indicator.NewRSI(config.Period)

			return r
		}),
		trigger: NewEdgeTrigger(),
	}, nil
}

func (s *RSI) Name() string {
	return TypeRSI
}

func (s *RSI) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	rsi := s.rsi.Get(tick.Symbol())
	rsi.Update(tick.Price())

	if !rsi.Ready() {
		return nil, nil
	}

	value, err := rsi.RawValue()
	if err != nil {
		return nil, err
	}

	raw := types.ActionHold

	switch {
	case value <= s.config.Oversold:
		raw = types.ActionBuy
	case value >= s.config.Overbought:
		raw = types.ActionSell
	}

	action := s.trigger.Apply(tick.Symbol(), raw)

	return single(types.NewSignal(tick, action, s.config.Quantity, fmt.Sprintf("rsi %.2f", value))), nil
}
