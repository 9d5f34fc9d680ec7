// Package driver instantiates a topology on a simulation backend and runs
// it for a bounded number of ticks.
package driver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/mctopo/backend"
	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/topology"
	"github.com/sarchlab/mctopo/workload"
)

// ErrInstantiation is returned when a topology cannot be instantiated,
// either because it is incomplete or because the backend rejected it.
var ErrInstantiation = errors.New("instantiation error")

// ExitReport describes how a run ended.
type ExitReport struct {
	TicksElapsed uint64
	Cause        backend.Cause

	// Detail explains a fault.
	Detail string

	Events uint64
	Cores  []backend.CoreStats
	Caches []backend.CacheStats
}

func (r ExitReport) String() string {
	return fmt.Sprintf("Exiting @ tick %d because %s", r.TicksElapsed, r.Cause)
}

// Handle is an instantiated topology. It can be run once.
type Handle struct {
	topo     *topology.Topology
	instance backend.Handle
	clock    backend.Handle
	handles  map[topology.Node]backend.Handle
	ran      bool
}

// Topology returns the topology the handle was created from.
func (h *Handle) Topology() *topology.Topology {
	return h.topo
}

// Instance returns the backend handle of the instantiated machine.
func (h *Handle) Instance() backend.Handle {
	return h.instance
}

// ComponentHandle returns the backend handle of a component.
func (h *Handle) ComponentHandle(n topology.Node) (backend.Handle, bool) {
	bh, ok := h.handles[n]
	return bh, ok
}

// Driver drives simulations on a backend.
type Driver struct {
	backend backend.Backend
	logger  *slog.Logger
}

// Builder can build drivers.
type Builder struct {
	backend backend.Backend
	logger  *slog.Logger
}

// MakeBuilder creates a driver builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithBackend sets the simulation backend.
func (b Builder) WithBackend(be backend.Backend) Builder {
	b.backend = be
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// Build creates the driver.
func (b Builder) Build() *Driver {
	if b.backend == nil {
		panic("driver needs a backend")
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return &Driver{backend: b.backend, logger: b.logger}
}

func instantiationError(err error) error {
	return fmt.Errorf("%w: %w", ErrInstantiation, err)
}

// Instantiate validates t, freezes it and creates it on the backend in
// dependency order: domains, cores, functional unit pools, caches,
// interconnects, memory controllers, links, processes and bindings.
func (d *Driver) Instantiate(t *topology.Topology) (*Handle, error) {
	if t == nil {
		return nil, instantiationError(errors.New("nil topology"))
	}

	if t.Frozen() {
		return nil, fmt.Errorf("%w: %s is already instantiated",
			topology.ErrInvalidState, t.Name)
	}

	if err := t.Validate(); err != nil {
		return nil, instantiationError(err)
	}

	t.Freeze()

	h := &Handle{
		topo:    t,
		handles: make(map[topology.Node]backend.Handle),
	}

	steps := []struct {
		name string
		fn   func(*topology.Topology, *Handle) error
	}{
		{"domains", d.createDomains},
		{"cores", d.createCores},
		{"functional units", d.attachPools},
		{"caches", d.createCaches},
		{"interconnects", d.createInterconnects},
		{"memory controllers", d.createControllers},
		{"links", d.connect},
		{"workloads", d.bindWorkloads},
	}

	for _, s := range steps {
		if err := s.fn(t, h); err != nil {
			return nil, instantiationError(fmt.Errorf("%s: %w", s.name, err))
		}

		d.logger.Debug("instantiated", "system", t.Name, "step", s.name)
	}

	instance, err := d.backend.Instantiate(t.Name)
	if err != nil {
		return nil, instantiationError(err)
	}

	h.instance = instance

	return h, nil
}

func (d *Driver) createDomains(t *topology.Topology, h *Handle) error {
	vd, err := d.backend.CreateVoltageDomain(t.Name+".voltage_domain",
		t.Domain.Voltage)
	if err != nil {
		return err
	}

	cd, err := d.backend.CreateClockDomain(t.Domain.Name, t.Domain.Freq, vd)
	if err != nil {
		return err
	}

	h.clock = cd

	return nil
}

func (d *Driver) createCores(t *topology.Topology, h *Handle) error {
	for _, c := range t.Cores {
		ch, err := d.backend.CreateCore(c.Name(), c.ID, h.clock)
		if err != nil {
			return err
		}

		h.handles[c] = ch
	}

	return nil
}

func (d *Driver) attachPools(t *topology.Topology, h *Handle) error {
	for _, c := range t.Cores {
		if err := d.backend.AttachFUPool(h.handles[c], c.FUPool); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) createCaches(t *topology.Topology, h *Handle) error {
	for _, c := range t.Caches() {
		p := c.Params

		ch, err := d.backend.CreateCache(backend.CacheSpec{
			Name:            c.Name(),
			Level:           c.Level,
			Size:            p.Size,
			Assoc:           p.Assoc,
			LineSize:        p.LineSize,
			TagLatency:      p.TagLatency,
			DataLatency:     p.DataLatency,
			ResponseLatency: p.ResponseLatency,
			MSHRs:           p.MSHRs,
			TargetsPerMSHR:  p.TargetsPerMSHR,
		}, h.clock)
		if err != nil {
			return err
		}

		h.handles[c] = ch
	}

	return nil
}

func (d *Driver) createInterconnects(t *topology.Topology, h *Handle) error {
	for _, x := range t.Interconnects() {
		p := x.Params

		xh, err := d.backend.CreateInterconnect(backend.BusSpec{
			Name:            x.Name(),
			Width:           p.Width,
			FrontendLatency: p.FrontendLatency,
			ForwardLatency:  p.ForwardLatency,
			ResponseLatency: p.ResponseLatency,
		}, h.clock)
		if err != nil {
			return err
		}

		h.handles[x] = xh
	}

	return nil
}

func (d *Driver) createControllers(t *topology.Topology, h *Handle) error {
	for _, m := range t.Controllers {
		mh, err := d.backend.CreateMemoryController(backend.MemCtrlSpec{
			Name:            m.Name(),
			Range:           m.Range,
			DRAM:            m.DRAM.Name,
			AccessLatencyNS: m.DRAM.AccessLatencyNS,
			BurstNS:         m.DRAM.BurstNS,
		})
		if err != nil {
			return err
		}

		h.handles[m] = mh
	}

	return nil
}

func (h *Handle) portRef(p *topology.Port) (backend.PortRef, error) {
	owner, ok := h.handles[p.Owner()]
	if !ok {
		return backend.PortRef{}, fmt.Errorf("%s belongs to no created component", p)
	}

	return backend.PortRef{
		Owner: owner,
		Role:  p.Role().String(),
		Index: p.Index(),
	}, nil
}

func (d *Driver) connect(t *topology.Topology, h *Handle) error {
	for _, l := range t.Links() {
		req, err := h.portRef(l.Requestor)
		if err != nil {
			return err
		}

		resp, err := h.portRef(l.Responder)
		if err != nil {
			return err
		}

		if err := d.backend.Connect(req, resp); err != nil {
			return fmt.Errorf("%s -> %s: %w", l.Requestor, l.Responder, err)
		}
	}

	return nil
}

func (d *Driver) bindWorkloads(t *topology.Topology, h *Handle) error {
	bindings := t.Bindings()
	procs := make(map[*workload.Workload]backend.Handle)

	for _, b := range bindings {
		if _, ok := procs[b.Workload]; ok {
			continue
		}

		ph, err := d.backend.CreateProcess(backend.ProcessSpec{
			Binary: b.Workload.Binary,
			Argv:   b.Workload.Argv,
			PID:    b.Workload.PID,
			Source: b.Program,
		})
		if err != nil {
			return err
		}

		procs[b.Workload] = ph
	}

	for _, b := range bindings {
		err := d.backend.BindWorkload(h.handles[b.Core], procs[b.Workload],
			backend.Binding{Thread: b.Thread, Threads: b.Threads})
		if err != nil {
			return err
		}
	}

	return nil
}

// Run advances the instantiated machine for at most tickBudget ticks. A run
// that reaches the budget is reported with cause "budget exhausted", not as
// an error. A handle can be run only once.
func (d *Driver) Run(h *Handle, tickBudget uint64) (ExitReport, error) {
	if h == nil || h.instance == "" {
		return ExitReport{}, fmt.Errorf("%w: handle is not instantiated",
			topology.ErrInvalidState)
	}

	if tickBudget == 0 {
		return ExitReport{}, fmt.Errorf("%w: tick budget must be > 0",
			config.ErrConfiguration)
	}

	if h.ran {
		return ExitReport{}, fmt.Errorf("%w: %s has already run",
			topology.ErrInvalidState, h.topo.Name)
	}

	h.ran = true

	d.logger.Info("simulation started",
		"system", h.topo.Name, "cores", len(h.topo.Cores), "budget", tickBudget)

	res, err := d.backend.Simulate(h.instance, tickBudget)
	if err != nil {
		return ExitReport{}, fmt.Errorf("simulation failed: %w", err)
	}

	report := ExitReport{
		TicksElapsed: res.Ticks,
		Cause:        res.Cause,
		Detail:       res.Detail,
		Events:       res.Events,
		Cores:        res.Cores,
		Caches:       res.Caches,
	}

	d.logger.Info("simulation finished",
		"ticks", report.TicksElapsed, "cause", string(report.Cause))

	return report, nil
}
