package timing

import "github.com/sarchlab/akita/v4/sim"

// eventCounter counts the events the engine handles.
type eventCounter struct {
	count uint64
}

// Func implements sim.Hook.
func (h *eventCounter) Func(ctx sim.HookCtx) {
	if ctx.Pos == sim.HookPosBeforeEvent {
		h.count++
	}
}
