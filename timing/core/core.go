// Package core provides the cycle-level CPU core model of the timing
// backend. A core is an Akita ticking component that issues one operation
// per cycle, in program order, to the first free functional unit able to
// execute it.
package core

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/vm"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/timing/cache"
	"github.com/sarchlab/mctopo/timing/latency"
	"github.com/sarchlab/mctopo/workload"
)

// OpSource yields the operations a core executes.
type OpSource interface {
	Next() (workload.Op, bool)
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of operations issued.
	Instructions uint64
	// Stalls counts cycles lost to busy units or a full window.
	Stalls uint64
	// FetchStalls counts cycles spent waiting for instruction fetch.
	FetchStalls uint64
	// MemOps is the number of data accesses.
	MemOps uint64
}

// Core represents a cycle-level CPU core model.
type Core struct {
	*sim.TickingComponent

	id       int
	freq     sim.Freq
	lineSize uint64

	sb     *latency.Scoreboard
	pid    vm.PID
	source OpSource

	icache cache.BackingStore
	dcache cache.BackingStore

	run *Run

	pending    workload.Op
	hasPending bool
	fetchLine  uint64
	fetched    bool
	fetchReady uint64

	exited   bool
	exitTick uint64
	stats    Stats
}

// NewCore creates a core ticking at freq on engine.
func NewCore(name string, id int, engine sim.Engine, freq sim.Freq) *Core {
	c := &Core{
		id:       id,
		freq:     freq,
		lineSize: 64,
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)

	return c
}

// ID returns the cpu id.
func (c *Core) ID() int {
	return c.id
}

// SetFUPool gives the core its execute stage.
func (c *Core) SetFUPool(pool *fu.Pool) {
	c.sb = latency.NewScoreboard(pool, latency.DefaultWindow)
}

// SetInstPort connects instruction fetch. lineSize is the fetch block size.
func (c *Core) SetInstPort(p cache.BackingStore, lineSize int) {
	c.icache = p
	if lineSize > 0 {
		c.lineSize = uint64(lineSize)
	}
}

// SetDataPort connects data accesses.
func (c *Core) SetDataPort(p cache.BackingStore) {
	c.dcache = p
}

// Bind sets the process the core runs.
func (c *Core) Bind(pid vm.PID, source OpSource) {
	c.pid = pid
	c.source = source
}

// Ready checks that the core has everything it needs to run.
func (c *Core) Ready() error {
	switch {
	case c.sb == nil:
		return fmt.Errorf("%s has no functional unit pool", c.Name())
	case c.icache == nil:
		return fmt.Errorf("%s has no instruction port", c.Name())
	case c.dcache == nil:
		return fmt.Errorf("%s has no data port", c.Name())
	case c.source == nil:
		return fmt.Errorf("%s has no workload", c.Name())
	}

	return nil
}

// Start schedules the first tick of the core under run.
func (c *Core) Start(run *Run) {
	c.run = run
	c.TickNow()
}

// Exited reports whether the workload of the core has finished and the
// tick at which it did.
func (c *Core) Exited() (bool, uint64) {
	return c.exited, c.exitTick
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// cycles converts a latency in ticks to whole cycles, rounding up.
func (c *Core) cycles(ticks uint64) uint64 {
	period := Ticks(c.freq.Period())
	if period == 0 {
		return ticks
	}

	return (ticks + period - 1) / period
}

// Tick runs one cycle. It returns false once the core has nothing more to
// do in this run.
func (c *Core) Tick() bool {
	if c.run == nil || c.exited || c.run.Halted() {
		return false
	}

	now := Ticks(c.CurrentTime())
	if now >= c.run.Budget() {
		return false
	}

	cycle := c.freq.Cycle(c.CurrentTime())
	c.stats.Cycles++

	if !c.hasPending {
		op, ok := c.source.Next()
		if !ok {
			return c.drain(now, cycle)
		}

		c.pending = op
		c.hasPending = true
	}

	if !c.fetch(now, cycle) {
		return !c.run.Halted()
	}

	return c.issue(now, cycle)
}

func (c *Core) drain(now, cycle uint64) bool {
	if !c.sb.Drained(cycle) {
		return true
	}

	c.exited = true
	c.exitTick = now
	c.run.exit(now)

	return false
}

// fetch reports whether the pending operation has been fetched.
func (c *Core) fetch(now, cycle uint64) bool {
	if cycle < c.fetchReady {
		c.stats.FetchStalls++
		return false
	}

	line := c.pending.PC / c.lineSize
	if c.fetched && line == c.fetchLine {
		return true
	}

	lat, err := c.icache.Access(cache.Request{
		PID:  c.pid,
		Addr: c.pending.PC,
		Now:  now,
	})
	if err != nil {
		c.run.fault(c.Name(), now, err)
		return false
	}

	c.fetchLine = line
	c.fetched = true
	c.fetchReady = cycle + c.cycles(lat)

	if c.fetchReady > cycle {
		c.stats.FetchStalls++
		return false
	}

	return true
}

func (c *Core) issue(now, cycle uint64) bool {
	op := c.pending

	idx, err := c.sb.Reserve(op.Class, cycle)
	if errors.Is(err, latency.ErrUnitBusy) || errors.Is(err, latency.ErrWindowFull) {
		c.stats.Stalls++
		return true
	}

	if err != nil {
		c.run.fail(fmt.Errorf("%s at pc 0x%x: %w", c.Name(), op.PC, err))
		return false
	}

	var extra uint64

	if op.Class.IsMemory() {
		lat, err := c.dcache.Access(cache.Request{
			PID:   c.pid,
			Addr:  op.Addr,
			Write: op.Class.IsStore(),
			Now:   now,
		})
		if err != nil {
			c.run.fault(c.Name(), now, err)
			return false
		}

		c.stats.MemOps++
		extra = c.cycles(lat)
	}

	c.sb.Dispatch(idx, cycle, extra)
	c.stats.Instructions++
	c.hasPending = false

	return true
}
