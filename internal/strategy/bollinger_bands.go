package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeBollingerBands = "bollinger_bands"

type BollingerBandsConfig struct {
	Window    int     `yaml:"window" json:"window" validate:"gt=1"`
	NumStdDev float64 `yaml:"num_std_dev" json:"num_std_dev" validate:"gt=0"`
	Quantity  float64 `yaml:"quantity" json:"quantity" validate:"gt=0"`
}

func DefaultBollingerBandsConfig() BollingerBandsConfig {
	return BollingerBandsConfig{
		Window:    20,
		NumStdDev: 2,
		Quantity:  100,
	}
}

// BollingerBands buys when price closes below the lower band and sells when it
// closes above the upper band. Edge-triggered.
type BollingerBands struct {
	config  BollingerBandsConfig
	bands   *indicator.Keyed[*indicator.BollingerBands]
	trigger *EdgeTrigger
}

func NewBollingerBands(config BollingerBandsConfig) (*BollingerBands, error) {
	if err := validateConfig(TypeBollingerBands, config); err != nil {
		return nil, err
	}

	return &BollingerBands{
		config: config,
		bands: indicator.NewKeyed(func() *indicator.BollingerBands {
			bb, _ := indicator.NewBollingerBands(config.Window, config.NumStdDev)

			return bb
		}),
		trigger: NewEdgeTrigger(),
	}, nil
}

func (s *BollingerBands) Name() string {
	return TypeBollingerBands
}

func (s *BollingerBands) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	bb := s.bands.Get(tick.Symbol())
	bb.Update(tick.Price())

	if !bb.Ready() {
		return nil, nil
	}

	bands, err := bb.Bands()
	if err != nil {
		return nil, err
	}

	raw := types.ActionHold

	switch {
	case tick.Price() < bands.Lower:
		raw = types.ActionBuy
	case tick.Price() > bands.Upper:
		raw = types.ActionSell
	}

	action := s.trigger.Apply(tick.Symbol(), raw)
	reason := fmt.Sprintf("price %.4f bands [%.4f, %.4f]", tick.Price(), bands.Lower, bands.Upper)

	return single(types.NewSignal(tick, action, s.config.Quantity, reason)), nil
}
