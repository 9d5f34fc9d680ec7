package core

import (
	"math"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/backend"
)

// TicksPerSecond is the tick resolution: one tick is one picosecond.
const TicksPerSecond = 1e12

// Ticks converts simulated time to ticks.
func Ticks(t sim.VTimeInSec) uint64 {
	return uint64(math.Round(float64(t) * TicksPerSecond))
}

// Run is the state shared by every core of one simulation: the tick budget,
// how many cores are still running and why the run stopped early, if it
// did.
type Run struct {
	budget uint64
	active int

	halted    bool
	faultTick uint64
	faultBy   string
	faultErr  error
	err       error

	lastExit uint64
}

// NewRun creates the shared state for cores running under budget.
func NewRun(budget uint64, cores int) *Run {
	return &Run{budget: budget, active: cores}
}

// Budget returns the tick budget.
func (r *Run) Budget() uint64 {
	return r.budget
}

// Halted reports whether a core has stopped the whole run.
func (r *Run) Halted() bool {
	return r.halted
}

// Active returns the number of cores that have not exited.
func (r *Run) Active() int {
	return r.active
}

func (r *Run) exit(tick uint64) {
	r.active--
	r.lastExit = max(r.lastExit, tick)
}

func (r *Run) fault(by string, tick uint64, err error) {
	if r.halted {
		return
	}

	r.halted = true
	r.faultBy = by
	r.faultTick = tick
	r.faultErr = err
}

func (r *Run) fail(err error) {
	if r.err == nil {
		r.err = err
	}

	r.halted = true
}

// Outcome returns how the run ended. A non-nil error means the simulation
// could not continue, which is not a termination cause.
func (r *Run) Outcome() (ticks uint64, cause backend.Cause, detail string, err error) {
	switch {
	case r.err != nil:
		return 0, "", "", r.err
	case r.faultErr != nil:
		return r.faultTick, backend.CauseFault,
			r.faultBy + ": " + r.faultErr.Error(), nil
	case r.active == 0:
		return r.lastExit, backend.CauseWorkloadExit, "", nil
	default:
		return r.budget, backend.CauseBudgetExhausted, "", nil
	}
}
