// Package latency tracks functional unit occupancy for cycle-level core
// models.
//
// A Scoreboard issues operations to the units of a pool. Each unit accepts
// a new operation every IssueLatency cycles and produces its result
// OpLatency cycles after issue. Results commit in program order, and at most
// Window operations may be in flight.
package latency

import (
	"errors"

	"github.com/sarchlab/mctopo/fu"
)

// DefaultWindow is the number of operations that may be in flight.
const DefaultWindow = 8

var (
	// ErrUnitBusy means every unit that serves the class is still inside
	// its issue interval.
	ErrUnitBusy = errors.New("functional unit busy")

	// ErrWindowFull means too many operations are waiting to commit.
	ErrWindowFull = errors.New("in-flight window full")
)

// Stats holds scoreboard statistics.
type Stats struct {
	Issued      uint64
	Committed   uint64
	BusyStalls  uint64
	WindowFulls uint64

	// PerUnit counts issues per unit, in pool order.
	PerUnit []uint64
}

// Scoreboard tracks when each unit can accept work and when issued
// operations commit.
type Scoreboard struct {
	pool   *fu.Pool
	window int

	nextIssue []uint64
	inflight  []uint64

	stats Stats
}

// NewScoreboard creates a scoreboard for pool. A window below 1 uses
// DefaultWindow.
func NewScoreboard(pool *fu.Pool, window int) *Scoreboard {
	if window < 1 {
		window = DefaultWindow
	}

	return &Scoreboard{
		pool:      pool,
		window:    window,
		nextIssue: make([]uint64, pool.Len()),
		stats:     Stats{PerUnit: make([]uint64, pool.Len())},
	}
}

// Pool returns the pool the scoreboard issues to.
func (s *Scoreboard) Pool() *fu.Pool {
	return s.pool
}

// Reserve picks the first unit in pool order that serves c and is free at
// cycle now. It does not change any state. The error wraps
// fu.ErrUnresolvedOperationClass when no unit serves c.
func (s *Scoreboard) Reserve(c fu.OpClass, now uint64) (int, error) {
	candidates, err := s.pool.Candidates(c)
	if err != nil {
		return 0, err
	}

	s.retire(now)

	if len(s.inflight) >= s.window {
		s.stats.WindowFulls++
		return 0, ErrWindowFull
	}

	for _, idx := range candidates {
		if s.nextIssue[idx] <= now {
			return idx, nil
		}
	}

	s.stats.BusyStalls++

	return 0, ErrUnitBusy
}

// Dispatch issues to unit idx at cycle now. Extra cycles, such as a memory
// access, are added to the unit's op latency. It returns the cycle at which
// the operation commits.
func (s *Scoreboard) Dispatch(idx int, now, extra uint64) uint64 {
	u := s.pool.Units()[idx]
	s.nextIssue[idx] = now + u.IssueLatency()

	done := now + u.OpLatency() + extra
	if n := len(s.inflight); n > 0 && s.inflight[n-1] > done {
		done = s.inflight[n-1]
	}

	s.inflight = append(s.inflight, done)
	s.stats.Issued++
	s.stats.PerUnit[idx]++

	return done
}

// retire commits every operation done by cycle now.
func (s *Scoreboard) retire(now uint64) {
	n := 0
	for n < len(s.inflight) && s.inflight[n] <= now {
		n++
	}

	s.stats.Committed += uint64(n)
	s.inflight = s.inflight[n:]
}

// Drained reports whether every issued operation has committed by cycle
// now.
func (s *Scoreboard) Drained(now uint64) bool {
	s.retire(now)
	return len(s.inflight) == 0
}

// DrainCycle returns the cycle by which every issued operation commits.
func (s *Scoreboard) DrainCycle() uint64 {
	if len(s.inflight) == 0 {
		return 0
	}

	return s.inflight[len(s.inflight)-1]
}

// InFlight returns the number of operations that have not committed.
func (s *Scoreboard) InFlight() int {
	return len(s.inflight)
}

// Stats returns a copy of the statistics.
func (s *Scoreboard) Stats() Stats {
	st := s.stats
	st.PerUnit = append([]uint64(nil), s.stats.PerUnit...)

	return st
}
