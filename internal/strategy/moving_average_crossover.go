package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const TypeMovingAverageCrossover = "moving_average_crossover"

type MovingAverageCrossoverConfig struct {
	ShortWindow int     `yaml:"short_window" json:"short_window" validate:"gt=0"`
	LongWindow  int     `yaml:"long_window" json:"long_window" validate:"gtfield=ShortWindow"`
	Quantity    float64 `yaml:"quantity" json:"quantity" validate:"gt=0"`
	// EdgeTriggered emits BUY or SELL only when the crossover flips. When
	// false a signal is emitted on every tick the averages differ.
	EdgeTriggered bool `yaml:"edge_triggered" json:"edge_triggered"`
}

func DefaultMovingAverageCrossoverConfig() MovingAverageCrossoverConfig {
	return MovingAverageCrossoverConfig{
		ShortWindow:   5,
		LongWindow:    20,
		Quantity:      100,
		EdgeTriggered: false,
	}
}

// MovingAverageCrossover compares the simple moving average of the last
// ShortWindow prices with that of the last LongWindow prices. It is silent
// until LongWindow prices have been seen for a symbol and when the means are equal.
type MovingAverageCrossover struct {
	config   MovingAverageCrossoverConfig
	averages *indicator.Keyed[movingAverages]
	trigger  *EdgeTrigger
}

type movingAverages struct {
	short *indicator.SMA
	long  *indicator.SMA
}

func NewMovingAverageCrossover(config MovingAverageCrossoverConfig) (*MovingAverageCrossover, error) {
	if err := validateConfig(TypeMovingAverageCrossover, config); err != nil {
		return nil, err
	}

	// windows are validated above, so construction below cannot fail
	if _, err := indicator.NewSMA(config.ShortWindow); err != nil {
		return nil, err
	}

	return &MovingAverageCrossover{
		config: config,
		averages: indicator.NewKeyed(func() movingAverages {
			short, _ := indicator.NewSMA(config.ShortWindow)
			long, _ := indicator.NewSMA(config.LongWindow)

			return movingAverages{short: short, long: long}
		}),
		trigger: NewEdgeTrigger(),
	}, nil
}

func (s *MovingAverageCrossover) Name() string {
	return TypeMovingAverageCrossover
}

func (s *MovingAverageCrossover) GenerateSignals(tick types.MarketDataPoint) ([]types.Signal, error) {
	averages := s.averages.Get(tick.Symbol())
	averages.short.Update(tick.Price())
	averages.long.Update(tick.Price())

	if !averages.long.Ready() {
		return nil, nil
	}

	shortMA, err := averages.short.RawValue()
	if err != nil {
		return nil, err
	}

	longMA, err := averages.long.RawValue()
	if err != nil {
		return nil, err
	}

	raw := types.ActionHold
	reason := "short ma equals long ma"

	switch {
	case shortMA > longMA:
		raw = types.ActionBuy
		reason = "short ma above long ma"
	case shortMA < longMA:
		raw = types.ActionSell
		reason = "short ma below long ma"
	}

	if !s.config.EdgeTriggered {
		if raw == types.ActionHold {
			return nil, nil
		}

		return single(types.NewSignal(tick, raw, s.config.Quantity, reason)), nil
	}

	return single(types.NewSignal(tick, s.trigger.Apply(tick.Symbol(), raw), s.config.Quantity, reason)), nil
}
