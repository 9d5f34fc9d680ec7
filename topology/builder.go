package topology

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/workload"
)

// Builder turns a configuration into a topology. The build runs as a chain
// of stages; each stage returns the only value the next stage can be called
// on:
//
//	NewBuilder(cfg).Domains() -> DomainStage.Cores() -> CoreStage.Caches()
//	-> CacheStage.Interconnects() -> FabricStage.MemoryControllers()
//	-> MemoryStage.Bind(workloads) -> *Topology
type Builder struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver workload.Resolver
}

// NewBuilder creates a builder for cfg. The configuration is read, never
// modified.
func NewBuilder(cfg *config.Config) Builder {
	return Builder{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger the stages report to.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// WithResolver sets how workload binaries are turned into programs. The
// default is a library of the built-in kernels.
func (b Builder) WithResolver(r workload.Resolver) Builder {
	b.resolver = r
	return b
}

// DomainStage holds a topology with its clock and voltage domain.
type DomainStage struct {
	b Builder
	t *Topology
}

// CoreStage holds a topology with its cores.
type CoreStage struct {
	b Builder
	t *Topology
}

// CacheStage holds a topology with its cache levels, if any.
type CacheStage struct {
	b Builder
	t *Topology
}

// FabricStage holds a topology with its interconnects.
type FabricStage struct {
	b Builder
	t *Topology
}

// MemoryStage holds a fully wired topology without workloads.
type MemoryStage struct {
	b Builder
	t *Topology
}

// Domains validates the configuration and creates the clock and voltage
// domain.
func (b Builder) Domains() (DomainStage, error) {
	if b.cfg == nil {
		return DomainStage{}, fmt.Errorf("%w: no configuration",
			config.ErrConfiguration)
	}

	if err := b.cfg.Validate(); err != nil {
		return DomainStage{}, err
	}

	if b.resolver == nil {
		b.resolver = workload.NewLibrary()
	}

	freq, err := b.cfg.Freq()
	if err != nil {
		return DomainStage{}, err
	}

	name := b.cfg.Name
	if name == "" {
		name = "system"
	}

	domain := &ClockVoltageDomain{
		Name:    name + ".clk_domain",
		Freq:    freq,
		Voltage: b.cfg.Voltage,
	}

	b.logger.Debug("created clock domain",
		"name", domain.Name, "freq_hz", float64(freq), "voltage", domain.Voltage)

	return DomainStage{b: b, t: newTopology(name, domain)}, nil
}

// Cores creates the cores, each with its own functional unit pool.
func (s DomainStage) Cores() (CoreStage, error) {
	overrides, err := s.b.cfg.Overrides()
	if err != nil {
		return CoreStage{}, err
	}

	pb := fu.NewPoolBuilder().
		WithFloatSimdUnits(s.b.cfg.FloatSimdUnits).
		WithOverrides(overrides)

	if s.b.cfg.MiscUnit {
		pb = pb.WithMisc()
	}

	for i := 0; i < s.b.cfg.NumCores; i++ {
		pool, err := pb.Build()
		if err != nil {
			return CoreStage{}, err
		}

		c, err := s.t.AddCore(pool)
		if err != nil {
			return CoreStage{}, err
		}

		s.b.logger.Debug("created core", "name", c.Name(), "fu_pool", pool)
	}

	return CoreStage(s), nil
}

// Caches creates a private L1 instruction and data cache per core and the
// shared L2, and connects every core to its L1s. A configuration without
// caches leaves the topology flat.
func (s CoreStage) Caches() (CacheStage, error) {
	hier := s.b.cfg.Caches
	if hier == nil {
		s.b.logger.Debug("no cache hierarchy, cores connect to the memory bus")
		return CacheStage(s), nil
	}

	l1i, err := NewCacheParams(hier.L1I)
	if err != nil {
		return CacheStage{}, fmt.Errorf("l1i: %w", err)
	}

	l1d, err := NewCacheParams(hier.L1D)
	if err != nil {
		return CacheStage{}, fmt.Errorf("l1d: %w", err)
	}

	l2, err := NewCacheParams(hier.L2)
	if err != nil {
		return CacheStage{}, fmt.Errorf("l2: %w", err)
	}

	t := s.t
	for _, c := range t.Cores {
		ic := newCacheLevel(c.Name()+".icache", 1, CacheInst, l1i)
		dc := newCacheLevel(c.Name()+".dcache", 1, CacheData, l1d)

		if err := t.Connect(c.ICachePort, ic.NewCPUSidePort()); err != nil {
			return CacheStage{}, err
		}

		if err := t.Connect(c.DCachePort, dc.NewCPUSidePort()); err != nil {
			return CacheStage{}, err
		}

		t.L1I = append(t.L1I, ic)
		t.L1D = append(t.L1D, dc)
	}

	t.L2 = newCacheLevel(t.Name+".l2cache", 2, CacheUnified, l2)

	s.b.logger.Debug("created cache hierarchy",
		"l1i_sets", l1i.NumSets(), "l1d_sets", l1d.NumSets(),
		"l2_sets", l2.NumSets())

	return CacheStage(s), nil
}

// Interconnects creates the memory bus and, for a cached machine, the bus
// between the L1s and the L2, and connects everything above memory to them.
func (s CacheStage) Interconnects() (FabricStage, error) {
	t := s.t
	t.MemBus = newInterconnect(t.Name+".membus", NewBusParams(s.b.cfg.MemBus))

	if t.Flat() {
		for _, c := range t.Cores {
			if err := t.Connect(c.ICachePort, t.MemBus.NewCPUSidePort()); err != nil {
				return FabricStage{}, err
			}

			if err := t.Connect(c.DCachePort, t.MemBus.NewCPUSidePort()); err != nil {
				return FabricStage{}, err
			}
		}

		s.b.logger.Debug("wired flat topology",
			"membus_ports", len(t.MemBus.CPUSidePorts()))

		return FabricStage(s), nil
	}

	t.CacheBus = newInterconnect(t.Name+".tol2bus",
		NewBusParams(s.b.cfg.CacheBus))

	for i := range t.Cores {
		for _, l1 := range []*CacheLevel{t.L1I[i], t.L1D[i]} {
			err := t.Connect(l1.MemSide, t.CacheBus.NewCPUSidePort())
			if err != nil {
				return FabricStage{}, err
			}
		}
	}

	if err := t.Connect(t.CacheBus.NewMemSidePort(), t.L2.NewCPUSidePort()); err != nil {
		return FabricStage{}, err
	}

	if err := t.Connect(t.L2.MemSide, t.MemBus.NewCPUSidePort()); err != nil {
		return FabricStage{}, err
	}

	s.b.logger.Debug("wired cache hierarchy",
		"tol2bus_ports", len(t.CacheBus.CPUSidePorts()))

	return FabricStage(s), nil
}

// MemoryControllers creates one controller per configured address range and
// connects each to its own port of the memory bus.
func (s FabricStage) MemoryControllers() (MemoryStage, error) {
	ranges, err := s.b.cfg.MemoryRanges()
	if err != nil {
		return MemoryStage{}, err
	}

	dram, err := LookupDRAM(s.b.cfg.DRAM)
	if err != nil {
		return MemoryStage{}, err
	}

	t := s.t
	for _, r := range ranges {
		mc, err := t.AddMemoryController(r, dram)
		if err != nil {
			return MemoryStage{}, err
		}

		if err := t.Connect(t.MemBus.NewMemSidePort(), mc.Port); err != nil {
			return MemoryStage{}, err
		}

		s.b.logger.Debug("created memory controller",
			"name", mc.Name(), "range", r.String(), "dram", dram.Name)
	}

	return MemoryStage(s), nil
}

// Topology returns the wired topology before any workload is bound.
func (s MemoryStage) Topology() *Topology {
	return s.t
}

// Bind validates the wiring and binds the workloads under the configured
// policy.
func (s MemoryStage) Bind(wls []*workload.Workload) (*Topology, error) {
	policy, err := s.b.cfg.BindingPolicy()
	if err != nil {
		return nil, err
	}

	if err := s.t.ValidateWiring(); err != nil {
		return nil, err
	}

	if err := s.t.Bind(policy, wls, s.b.resolver); err != nil {
		return nil, err
	}

	s.b.logger.Debug("bound workloads",
		"policy", policy.String(), "workloads", len(wls))

	return s.t, nil
}

// Build runs every stage for cfg and binds wls.
func (b Builder) Build(wls []*workload.Workload) (*Topology, error) {
	d, err := b.Domains()
	if err != nil {
		return nil, err
	}

	c, err := d.Cores()
	if err != nil {
		return nil, err
	}

	ca, err := c.Caches()
	if err != nil {
		return nil, err
	}

	f, err := ca.Interconnects()
	if err != nil {
		return nil, err
	}

	m, err := f.MemoryControllers()
	if err != nil {
		return nil, err
	}

	return m.Bind(wls)
}

// Build builds the topology of cfg with the default logger and the built-in
// kernel library, binding wls.
func Build(cfg *config.Config, wls []*workload.Workload) (*Topology, error) {
	return NewBuilder(cfg).Build(wls)
}
