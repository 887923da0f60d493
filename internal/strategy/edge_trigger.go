package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// EdgeTrigger turns a per-tick directional signal into one actionable signal
// per regime change. Each symbol starts in HOLD. A raw BUY or SELL that
// differs from the current state is emitted and becomes the new state; a raw
// signal equal to the state, or a raw HOLD, emits HOLD and leaves the state
// unchanged.
type EdgeTrigger struct {
	states map[string]types.Action
}

func NewEdgeTrigger() *EdgeTrigger {
	return &EdgeTrigger{states: make(map[string]types.Action)}
}

// Apply returns the action to emit for symbol given the raw signal.
func (e *EdgeTrigger) Apply(symbol string, raw types.Action) types.Action {
	if raw != types.ActionBuy && raw != types.ActionSell {
		return types.ActionHold
	}

	if e.State(symbol) == raw {
		return types.ActionHold
	}

	e.states[symbol] = raw

	return raw
}

// State returns the current regime for symbol.
func (e *EdgeTrigger) State(symbol string) types.Action {
	state, ok := e.states[symbol]
	if !ok {
		return types.ActionHold
	}

	return state
}
