package topology

import (
	"fmt"
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/memmap"
	"github.com/sarchlab/mctopo/workload"
)

// ClockVoltageDomain is a named frequency and voltage shared by cores.
type ClockVoltageDomain struct {
	Name    string
	Freq    sim.Freq
	Voltage float64
}

// InterruptController is the per-core interrupt controller.
type InterruptController struct {
	Name string
}

// Core is a processing element.
type Core struct {
	ID         int
	name       string
	Domain     *ClockVoltageDomain
	Interrupts *InterruptController
	FUPool     *fu.Pool

	ICachePort *Port
	DCachePort *Port

	// Workload is set when workloads are bound.
	Workload *workload.Workload
}

func newCore(id int, name string, domain *ClockVoltageDomain, pool *fu.Pool) *Core {
	c := &Core{
		ID:         id,
		name:       name,
		Domain:     domain,
		Interrupts: &InterruptController{Name: name + ".interrupts"},
		FUPool:     pool,
	}
	c.ICachePort = newPort(c, RoleICache)
	c.DCachePort = newPort(c, RoleDCache)

	return c
}

// Name returns the core name.
func (c *Core) Name() string { return c.name }

// Ports returns the instruction and data ports.
func (c *Core) Ports() []*Port {
	return []*Port{c.ICachePort, c.DCachePort}
}

// CacheParams are the parameters of a cache level. Latencies are in cycles
// of the clock domain the cache runs in.
type CacheParams struct {
	Size            uint64
	Assoc           int
	LineSize        int
	TagLatency      uint64
	DataLatency     uint64
	ResponseLatency uint64
	MSHRs           int
	TargetsPerMSHR  int
}

// NewCacheParams converts a validated cache config.
func NewCacheParams(cc config.CacheConfig) (CacheParams, error) {
	if err := cc.Validate(); err != nil {
		return CacheParams{}, err
	}

	size, _ := cc.SizeBytes()

	return CacheParams{
		Size:            size,
		Assoc:           cc.Assoc,
		LineSize:        cc.LineSize,
		TagLatency:      cc.TagLatency,
		DataLatency:     cc.DataLatency,
		ResponseLatency: cc.ResponseLatency,
		MSHRs:           cc.MSHRs,
		TargetsPerMSHR:  cc.TargetsPerMSHR,
	}, nil
}

// NumSets returns the number of sets.
func (p CacheParams) NumSets() int {
	return int(p.Size / uint64(p.Assoc*p.LineSize))
}

// CacheKind separates instruction, data and unified caches.
type CacheKind int

// Cache kinds.
const (
	CacheUnified CacheKind = iota
	CacheInst
	CacheData
)

func (k CacheKind) String() string {
	switch k {
	case CacheInst:
		return "inst"
	case CacheData:
		return "data"
	default:
		return "unified"
	}
}

// CacheLevel is one cache. It has a set of core-facing ports and a single
// memory-facing port.
type CacheLevel struct {
	name   string
	Level  int
	Kind   CacheKind
	Params CacheParams

	cpuSide []*Port
	MemSide *Port
}

func newCacheLevel(name string, level int, kind CacheKind, p CacheParams) *CacheLevel {
	c := &CacheLevel{name: name, Level: level, Kind: kind, Params: p}
	c.MemSide = newPort(c, RoleCacheMemSide)

	return c
}

// Name returns the cache name.
func (c *CacheLevel) Name() string { return c.name }

// NewCPUSidePort adds a core-facing port.
func (c *CacheLevel) NewCPUSidePort() *Port {
	p := newPort(c, RoleCacheCPUSide)
	if len(c.cpuSide) > 0 {
		p = newVectorPort(c, RoleCacheCPUSide, len(c.cpuSide))
	}

	c.cpuSide = append(c.cpuSide, p)

	return p
}

// CPUSidePorts returns the core-facing ports.
func (c *CacheLevel) CPUSidePorts() []*Port {
	return append([]*Port(nil), c.cpuSide...)
}

// Ports returns the core-facing ports followed by the memory-facing port.
func (c *CacheLevel) Ports() []*Port {
	return append(c.CPUSidePorts(), c.MemSide)
}

// BusParams are the parameters of a crossbar, in cycles.
type BusParams struct {
	Width           int
	FrontendLatency uint64
	ForwardLatency  uint64
	ResponseLatency uint64
}

// NewBusParams converts a bus config.
func NewBusParams(bc config.BusConfig) BusParams {
	return BusParams{
		Width:           bc.Width,
		FrontendLatency: bc.FrontendLatency,
		ForwardLatency:  bc.ForwardLatency,
		ResponseLatency: bc.ResponseLatency,
	}
}

// Interconnect is a crossbar connecting many requestors to one or more
// responders.
type Interconnect struct {
	name   string
	Params BusParams

	cpuSide []*Port
	memSide []*Port
}

func newInterconnect(name string, p BusParams) *Interconnect {
	return &Interconnect{name: name, Params: p}
}

// Name returns the interconnect name.
func (x *Interconnect) Name() string { return x.name }

// NewCPUSidePort adds a requestor-facing port.
func (x *Interconnect) NewCPUSidePort() *Port {
	p := newVectorPort(x, RoleBusCPUSide, len(x.cpuSide))
	x.cpuSide = append(x.cpuSide, p)

	return p
}

// NewMemSidePort adds a responder-facing port.
func (x *Interconnect) NewMemSidePort() *Port {
	p := newVectorPort(x, RoleBusMemSide, len(x.memSide))
	x.memSide = append(x.memSide, p)

	return p
}

// CPUSidePorts returns the requestor-facing ports.
func (x *Interconnect) CPUSidePorts() []*Port {
	return append([]*Port(nil), x.cpuSide...)
}

// MemSidePorts returns the responder-facing ports.
func (x *Interconnect) MemSidePorts() []*Port {
	return append([]*Port(nil), x.memSide...)
}

// Ports returns every port of the interconnect.
func (x *Interconnect) Ports() []*Port {
	return append(x.CPUSidePorts(), x.memSide...)
}

// DRAMModel is an opaque DRAM timing model name with the latencies the
// backend charges: the access latency of a row miss and the time one burst
// occupies the channel.
type DRAMModel struct {
	Name            string
	AccessLatencyNS float64
	BurstNS         float64
}

// Access latencies are tRCD + tCL + tBURST of each part.
var dramModels = map[string]DRAMModel{
	"DDR3_1600_8x8":     {Name: "DDR3_1600_8x8", AccessLatencyNS: 32.5, BurstNS: 5},
	"DDR3_2133_8x8":     {Name: "DDR3_2133_8x8", AccessLatencyNS: 31.5, BurstNS: 3.752},
	"DDR4_2400_8x8":     {Name: "DDR4_2400_8x8", AccessLatencyNS: 31.65, BurstNS: 3.332},
	"DDR4_2400_16x4":    {Name: "DDR4_2400_16x4", AccessLatencyNS: 31.65, BurstNS: 3.332},
	"LPDDR3_1600_1x32":  {Name: "LPDDR3_1600_1x32", AccessLatencyNS: 38, BurstNS: 5},
	"HBM_1000_4H_1x128": {Name: "HBM_1000_4H_1x128", AccessLatencyNS: 32, BurstNS: 4},
	"SimpleMemory":      {Name: "SimpleMemory", AccessLatencyNS: 30, BurstNS: 5},
}

// LookupDRAM returns a DRAM model by name.
func LookupDRAM(name string) (DRAMModel, error) {
	m, ok := dramModels[name]
	if !ok {
		return DRAMModel{}, fmt.Errorf("%w: unknown dram model %q",
			config.ErrConfiguration, name)
	}

	return m, nil
}

// DRAMModels returns the names of every known DRAM model.
func DRAMModels() []string {
	names := make([]string, 0, len(dramModels))
	for n := range dramModels {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// MemoryController is a terminal agent that owns one address range.
type MemoryController struct {
	name  string
	Range memmap.AddressRange
	DRAM  DRAMModel
	Port  *Port
}

func newMemoryController(
	name string,
	r memmap.AddressRange,
	dram DRAMModel,
) *MemoryController {
	m := &MemoryController{name: name, Range: r, DRAM: dram}
	m.Port = newPort(m, RoleMemCtrl)

	return m
}

// Name returns the controller name.
func (m *MemoryController) Name() string { return m.name }

// Ports returns the single responder port.
func (m *MemoryController) Ports() []*Port {
	return []*Port{m.Port}
}
