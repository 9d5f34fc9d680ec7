// Package backend defines the contract between the topology configurator
// and a simulation engine. The configurator creates components through a
// Backend, connects their ports, binds processes to cores, and runs the
// instantiated machine.
package backend

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/memmap"
)

// Handle is an opaque reference to a component created by a backend.
type Handle string

// PortRef names one port of a created component.
type PortRef struct {
	Owner Handle
	Role  string
	Index int
}

func (p PortRef) String() string {
	return fmt.Sprintf("%s.%s[%d]", p.Owner, p.Role, p.Index)
}

// CacheSpec describes a cache to create. Latencies are in cycles.
type CacheSpec struct {
	Name            string
	Level           int
	Size            uint64
	Assoc           int
	LineSize        int
	TagLatency      uint64
	DataLatency     uint64
	ResponseLatency uint64
	MSHRs           int
	TargetsPerMSHR  int
}

// BusSpec describes an interconnect to create. Latencies are in cycles.
type BusSpec struct {
	Name            string
	Width           int
	FrontendLatency uint64
	ForwardLatency  uint64
	ResponseLatency uint64
}

// MemCtrlSpec describes a memory controller to create.
type MemCtrlSpec struct {
	Name            string
	Range           memmap.AddressRange
	DRAM            string
	AccessLatencyNS float64
	BurstNS         float64
}

// ProcessSpec describes a process to create. Source is the program the
// process runs; its concrete type is agreed between the caller and the
// backend.
type ProcessSpec struct {
	Binary string
	Argv   []string
	PID    *int
	Source any
}

// Binding tells a core which process it runs and which thread of the
// process it is.
type Binding struct {
	Thread  int
	Threads int
}

// Cause is the reason a run stopped.
type Cause string

// Termination causes.
const (
	CauseWorkloadExit    Cause = "workload exit"
	CauseBudgetExhausted Cause = "budget exhausted"
	CauseFault           Cause = "fault"
)

// CoreStats are the counters of one core after a run.
type CoreStats struct {
	Name      string
	Cycles    uint64
	Committed uint64
	Stalls    uint64
	Exited    bool
	ExitTick  uint64
}

// CacheStats are the counters of one cache after a run.
type CacheStats struct {
	Name       string
	Hits       uint64
	Misses     uint64
	Writebacks uint64
}

// Result is what a backend reports at the end of a run. Detail explains a
// fault. Events counts the events the engine processed.
type Result struct {
	Ticks  uint64
	Cause  Cause
	Detail string
	Events uint64
	Cores  []CoreStats
	Caches []CacheStats
}

// Backend creates and runs simulated components.
type Backend interface {
	CreateVoltageDomain(name string, volts float64) (Handle, error)
	CreateClockDomain(name string, freq sim.Freq, voltage Handle) (Handle, error)
	CreateCore(name string, id int, clock Handle) (Handle, error)
	AttachFUPool(core Handle, pool *fu.Pool) error
	CreateCache(spec CacheSpec, clock Handle) (Handle, error)
	CreateInterconnect(spec BusSpec, clock Handle) (Handle, error)
	CreateMemoryController(spec MemCtrlSpec) (Handle, error)
	Connect(requestor, responder PortRef) error
	CreateProcess(spec ProcessSpec) (Handle, error)
	BindWorkload(core, process Handle, b Binding) error
	Instantiate(root string) (Handle, error)
	Simulate(h Handle, tickBudget uint64) (Result, error)
}
