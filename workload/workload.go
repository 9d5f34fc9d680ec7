// Package workload describes the programs a simulated machine runs and how
// they are assigned to cores.
package workload

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBinding is returned when workloads cannot be assigned to cores under
// the requested policy.
var ErrBinding = errors.New("binding error")

// Workload is an executable image plus its arguments. Argv[0] is the binary.
type Workload struct {
	Binary string
	Argv   []string

	// PID is optional. Nil lets the backend choose one.
	PID *int
}

// New creates a workload running binary with args.
func New(binary string, args ...string) *Workload {
	return &Workload{
		Binary: binary,
		Argv:   append([]string{binary}, args...),
	}
}

// WithPID returns a copy of the workload tagged with pid.
func (w *Workload) WithPID(pid int) *Workload {
	c := *w
	c.Argv = append([]string(nil), w.Argv...)
	c.PID = &pid

	return &c
}

func (w *Workload) String() string {
	s := strings.Join(w.Argv, " ")
	if w.PID != nil {
		s = fmt.Sprintf("%s (pid %d)", s, *w.PID)
	}

	return s
}

// Policy decides how workloads are spread over cores.
type Policy int

const (
	// PerCore binds workload i to core i.
	PerCore Policy = iota

	// Broadcast binds a single workload to every core. The program splits
	// its work by thread index.
	Broadcast
)

func (p Policy) String() string {
	switch p {
	case PerCore:
		return "per-core"
	case Broadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts "per-core" or "broadcast" to a Policy. The empty
// string means per-core.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "per-core", "percore":
		return PerCore, nil
	case "broadcast":
		return Broadcast, nil
	default:
		return 0, fmt.Errorf("unknown binding policy %q", s)
	}
}

// Assign returns the workload of every core, indexed by core id.
func Assign(p Policy, numCores int, wls []*Workload) ([]*Workload, error) {
	if numCores < 1 {
		return nil, fmt.Errorf("%w: no cores to bind to", ErrBinding)
	}

	for i, w := range wls {
		if w == nil {
			return nil, fmt.Errorf("%w: workload %d is nil", ErrBinding, i)
		}
	}

	switch p {
	case PerCore:
		if len(wls) != numCores {
			return nil, fmt.Errorf(
				"%w: per-core policy needs %d workloads, got %d",
				ErrBinding, numCores, len(wls))
		}

		return append([]*Workload(nil), wls...), nil

	case Broadcast:
		if len(wls) != 1 {
			return nil, fmt.Errorf(
				"%w: broadcast policy needs exactly 1 workload, got %d",
				ErrBinding, len(wls))
		}

		bound := make([]*Workload, numCores)
		for i := range bound {
			bound[i] = wls[0]
		}

		return bound, nil

	default:
		return nil, fmt.Errorf("%w: unknown policy %s", ErrBinding, p)
	}
}
