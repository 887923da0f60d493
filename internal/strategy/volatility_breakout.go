package strategy

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeVolatilityBreakout = "volatility_breakout"

type VolatilityBreakoutConfig struct {
	Window int     `yaml:"window" json:"window" validate:"gt=1"`
	K      float64 `yaml:"k" json:"k" validate:"gt=0"`
	// RiskBudget is the cash amount risked per one standard deviation move.
	RiskBudget  float64 `yaml:"risk_budget" json:"risk_budget" validate:"gt=0"`
	MaxQuantity float64 `yaml:"max_quantity" json:"max_quantity" validate:"gte=1"`
}

func DefaultVolatilityBreakoutConfig() VolatilityBreakoutConfig {
	return VolatilityBreakoutConfig{
		Window:      20,
		K:           2,
		RiskBudget:  1000,
		MaxQuantity: 1000,
	}
}

// VolatilityBreakout buys when price breaks above the mean of the previous
// Window prices by K standard deviations and sells when it breaks below.
// Position size is RiskBudget / sigma, floored and clamped to [1, MaxQuantity].
// Edge-triggered.
type VolatilityBreakout struct {
	config  VolatilityBreakoutConfig
	history *indicator.Keyed[*indicator.Window]
	trigger *EdgeTrigger
}

func NewVolatilityBreakout(config VolatilityBreakoutConfig) (*VolatilityBreakout, error) {
	if err := validateConfig(TypeVolatilityBreakout, config); err != nil {
		return nil, err
	}

	return &VolatilityBreakout{
		config: config,
		history: indicator.NewKeyed(func() *indicator.Window {
			return indicator.NewWindow(config.Window)
		}),
		trigger: NewEdgeTrigger(),
	}, nil
}

func (s *VolatilityBreakout) Name() string {
	return TypeVolatilityBreakout
}

func (s *VolatilityBreakout) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	history := s.history.Get(tick.Symbol())
	// the band is built from prior prices only
	defer history.Push(tick.Price())

	if !history.Full() {
		return nil, nil
	}

	mean := history.Mean()
	sigma := history.StdDev()

	raw := types.ActionHold

	if sigma > 0 {
		switch {
		case tick.Price() > mean+s.config.K*sigma:
			raw = types.ActionBuy
		case tick.Price() < mean-s.config.K*sigma:
			raw = types.ActionSell
		}
	}

	action := s.trigger.Apply(tick.Symbol(), raw)
	reason := fmt.Sprintf("price %.4f mean %.4f sigma %.4f", tick.Price(), mean, sigma)

	return single(types.NewSignal(tick, action, s.quantity(sigma), reason)), nil
}

func (s *VolatilityBreakout) quantity(sigma float64) float64 {
	if sigma <= 0 {
		return s.config.MaxQuantity
	}

	return math.Max(1, math.Min(s.config.MaxQuantity, math.Floor(s.config.RiskBudget/sigma)))
}
