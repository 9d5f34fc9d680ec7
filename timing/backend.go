// Package timing is a simulation backend built on the Akita discrete-event
// engine. Cores are ticking components; caches, fabrics and memory
// controllers are latency models the cores call into synchronously.
package timing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/mem/vm"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/backend"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/timing/cache"
	"github.com/sarchlab/mctopo/timing/core"
	"github.com/sarchlab/mctopo/workload"
)

// ErrFrozen is returned when components are created or connected after
// Instantiate.
var ErrFrozen = errors.New("backend already instantiated")

// FirstPID is the pid given to the first process created without one.
const FirstPID = 100

type process struct {
	spec    backend.ProcessSpec
	program *workload.Program
	pid     vm.PID
}

var _ backend.Backend = (*Backend)(nil)

// Backend implements backend.Backend.
type Backend struct {
	engine sim.Engine
	logger *slog.Logger
	events *eventCounter

	names    map[backend.Handle]string
	voltages map[backend.Handle]float64
	clocks   map[backend.Handle]sim.Freq

	cores     map[backend.Handle]*core.Core
	coreOrder []backend.Handle

	caches     map[backend.Handle]*cache.Cache
	cacheOrder []backend.Handle

	fabrics map[backend.Handle]*Fabric
	ctrls   map[backend.Handle]*Controller
	procs   map[backend.Handle]*process

	usedPIDs map[vm.PID]bool
	nextPID  vm.PID

	root      backend.Handle
	simulated bool
}

// Builder can build timing backends.
type Builder struct {
	engine sim.Engine
	logger *slog.Logger
}

// MakeBuilder creates a builder with a serial engine and the default
// logger.
func MakeBuilder() Builder {
	return Builder{}
}

// WithEngine sets the engine that runs the simulation.
func (b Builder) WithEngine(e sim.Engine) Builder {
	b.engine = e
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// Build creates the backend.
func (b Builder) Build() *Backend {
	if b.engine == nil {
		b.engine = sim.NewSerialEngine()
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	be := &Backend{
		engine:   b.engine,
		logger:   b.logger,
		events:   &eventCounter{},
		names:    make(map[backend.Handle]string),
		voltages: make(map[backend.Handle]float64),
		clocks:   make(map[backend.Handle]sim.Freq),
		cores:    make(map[backend.Handle]*core.Core),
		caches:   make(map[backend.Handle]*cache.Cache),
		fabrics:  make(map[backend.Handle]*Fabric),
		ctrls:    make(map[backend.Handle]*Controller),
		procs:    make(map[backend.Handle]*process),
		usedPIDs: make(map[vm.PID]bool),
		nextPID:  FirstPID,
	}

	be.engine.AcceptHook(be.events)

	return be
}

func (b *Backend) newHandle(name string) (backend.Handle, error) {
	if b.root != "" {
		return "", fmt.Errorf("%w: cannot create %s", ErrFrozen, name)
	}

	h := backend.Handle(xid.New().String())
	b.names[h] = name

	return h, nil
}

func (b *Backend) name(h backend.Handle) string {
	if n, ok := b.names[h]; ok {
		return n
	}

	return string(h)
}

func (b *Backend) clock(h backend.Handle) (sim.Freq, error) {
	f, ok := b.clocks[h]
	if !ok {
		return 0, fmt.Errorf("unknown clock domain %s", h)
	}

	return f, nil
}

func period(f sim.Freq) uint64 {
	return core.Ticks(f.Period())
}

// CreateVoltageDomain records a voltage domain.
func (b *Backend) CreateVoltageDomain(name string, volts float64) (backend.Handle, error) {
	h, err := b.newHandle(name)
	if err != nil {
		return "", err
	}

	b.voltages[h] = volts
	b.logger.Debug("voltage domain", "name", name, "volts", volts)

	return h, nil
}

// CreateClockDomain records a clock domain.
func (b *Backend) CreateClockDomain(
	name string,
	freq sim.Freq,
	voltage backend.Handle,
) (backend.Handle, error) {
	if _, ok := b.voltages[voltage]; !ok {
		return "", fmt.Errorf("unknown voltage domain %s", voltage)
	}

	if freq <= 0 {
		return "", fmt.Errorf("clock domain %s needs a positive frequency", name)
	}

	h, err := b.newHandle(name)
	if err != nil {
		return "", err
	}

	b.clocks[h] = freq
	b.logger.Debug("clock domain", "name", name, "freq_hz", float64(freq))

	return h, nil
}

// CreateCore creates a ticking core.
func (b *Backend) CreateCore(name string, id int, clock backend.Handle) (backend.Handle, error) {
	freq, err := b.clock(clock)
	if err != nil {
		return "", err
	}

	h, err := b.newHandle(name)
	if err != nil {
		return "", err
	}

	b.cores[h] = core.NewCore(name, id, b.engine, freq)
	b.coreOrder = append(b.coreOrder, h)

	return h, nil
}

// AttachFUPool gives a core its functional units.
func (b *Backend) AttachFUPool(h backend.Handle, pool *fu.Pool) error {
	if b.root != "" {
		return ErrFrozen
	}

	c, ok := b.cores[h]
	if !ok {
		return fmt.Errorf("unknown core %s", h)
	}

	if pool == nil || pool.Len() == 0 {
		return fmt.Errorf("%s needs a non-empty functional unit pool", c.Name())
	}

	c.SetFUPool(pool)

	return nil
}

// CreateCache creates a cache level.
func (b *Backend) CreateCache(spec backend.CacheSpec, clock backend.Handle) (backend.Handle, error) {
	freq, err := b.clock(clock)
	if err != nil {
		return "", err
	}

	if spec.Assoc <= 0 || spec.LineSize <= 0 ||
		spec.Size < uint64(spec.Assoc*spec.LineSize) {
		return "", fmt.Errorf("cache %s has an invalid geometry", spec.Name)
	}

	h, err := b.newHandle(spec.Name)
	if err != nil {
		return "", err
	}

	b.caches[h] = cache.New(cache.Config{
		Name:            spec.Name,
		Size:            spec.Size,
		Associativity:   spec.Assoc,
		BlockSize:       spec.LineSize,
		TagLatency:      spec.TagLatency,
		DataLatency:     spec.DataLatency,
		ResponseLatency: spec.ResponseLatency,
		MSHRs:           spec.MSHRs,
		TargetsPerMSHR:  spec.TargetsPerMSHR,
		Period:          period(freq),
	}, nil)
	b.cacheOrder = append(b.cacheOrder, h)

	return h, nil
}

// CreateInterconnect creates a fabric.
func (b *Backend) CreateInterconnect(spec backend.BusSpec, clock backend.Handle) (backend.Handle, error) {
	freq, err := b.clock(clock)
	if err != nil {
		return "", err
	}

	h, err := b.newHandle(spec.Name)
	if err != nil {
		return "", err
	}

	b.fabrics[h] = NewFabric(spec, period(freq))

	return h, nil
}

// CreateMemoryController creates a controller.
func (b *Backend) CreateMemoryController(spec backend.MemCtrlSpec) (backend.Handle, error) {
	if err := spec.Range.Validate(); err != nil {
		return "", fmt.Errorf("memory controller %s: %w", spec.Name, err)
	}

	h, err := b.newHandle(spec.Name)
	if err != nil {
		return "", err
	}

	b.ctrls[h] = NewController(spec)

	return h, nil
}

func (b *Backend) responder(ref backend.PortRef) (cache.BackingStore, error) {
	if c, ok := b.caches[ref.Owner]; ok && ref.Role == "cpu_side" {
		return c, nil
	}

	if f, ok := b.fabrics[ref.Owner]; ok && ref.Role == "cpu_side_ports" {
		return f, nil
	}

	if m, ok := b.ctrls[ref.Owner]; ok && ref.Role == "port" {
		return m, nil
	}

	return nil, fmt.Errorf("%s.%s is not a responder port",
		b.name(ref.Owner), ref.Role)
}

// Connect links a requestor port to a responder port.
func (b *Backend) Connect(req, resp backend.PortRef) error {
	if b.root != "" {
		return ErrFrozen
	}

	target, err := b.responder(resp)
	if err != nil {
		return err
	}

	lineSize := 64
	if c, ok := target.(*cache.Cache); ok {
		lineSize = c.Config().BlockSize
	}

	switch {
	case b.cores[req.Owner] != nil && req.Role == "icache_port":
		b.cores[req.Owner].SetInstPort(target, lineSize)
	case b.cores[req.Owner] != nil && req.Role == "dcache_port":
		b.cores[req.Owner].SetDataPort(target)
	case b.caches[req.Owner] != nil && req.Role == "mem_side":
		b.caches[req.Owner].SetBacking(target)
	case b.fabrics[req.Owner] != nil && req.Role == "mem_side_ports":
		b.fabrics[req.Owner].AddRoute(target)
	default:
		return fmt.Errorf("%s.%s is not a requestor port",
			b.name(req.Owner), req.Role)
	}

	b.logger.Debug("connected",
		"requestor", b.name(req.Owner)+"."+req.Role,
		"responder", b.name(resp.Owner)+"."+resp.Role)

	return nil
}

func (b *Backend) allocatePID(requested *int) (vm.PID, error) {
	if requested != nil {
		if *requested < 0 {
			return 0, fmt.Errorf("invalid pid %d", *requested)
		}

		pid := vm.PID(*requested)
		if b.usedPIDs[pid] {
			return 0, fmt.Errorf("pid %d is already in use", pid)
		}

		b.usedPIDs[pid] = true

		return pid, nil
	}

	for b.usedPIDs[b.nextPID] {
		b.nextPID++
	}

	pid := b.nextPID
	b.usedPIDs[pid] = true

	return pid, nil
}

// CreateProcess creates a process. Source must be a *workload.Program.
func (b *Backend) CreateProcess(spec backend.ProcessSpec) (backend.Handle, error) {
	prog, ok := spec.Source.(*workload.Program)
	if !ok || prog == nil {
		return "", fmt.Errorf("process %s has no program", spec.Binary)
	}

	if b.root != "" {
		return "", ErrFrozen
	}

	pid, err := b.allocatePID(spec.PID)
	if err != nil {
		return "", err
	}

	h, err := b.newHandle(spec.Binary)
	if err != nil {
		return "", err
	}

	b.procs[h] = &process{spec: spec, program: prog, pid: pid}
	b.logger.Debug("process", "binary", spec.Binary, "pid", pid)

	return h, nil
}

// BindWorkload makes a core run a thread of a process.
func (b *Backend) BindWorkload(coreH, procH backend.Handle, bind backend.Binding) error {
	if b.root != "" {
		return ErrFrozen
	}

	c, ok := b.cores[coreH]
	if !ok {
		return fmt.Errorf("unknown core %s", coreH)
	}

	p, ok := b.procs[procH]
	if !ok {
		return fmt.Errorf("unknown process %s", procH)
	}

	stream, err := p.program.Stream(p.spec.Argv, bind.Thread, bind.Threads)
	if err != nil {
		return err
	}

	c.Bind(p.pid, stream)

	return nil
}

// Instantiate checks that every component is complete and freezes the
// backend.
func (b *Backend) Instantiate(root string) (backend.Handle, error) {
	if b.root != "" {
		return "", ErrFrozen
	}

	if len(b.cores) == 0 {
		return "", fmt.Errorf("%s has no cores", root)
	}

	for _, h := range b.coreOrder {
		if err := b.cores[h].Ready(); err != nil {
			return "", err
		}
	}

	for _, h := range b.cacheOrder {
		if b.caches[h].Backing() == nil {
			return "", fmt.Errorf("cache %s has no backing store", b.name(h))
		}
	}

	for h, f := range b.fabrics {
		if f.Routes() == 0 {
			return "", fmt.Errorf("fabric %s has no downstream port", b.name(h))
		}
	}

	h, err := b.newHandle(root)
	if err != nil {
		return "", err
	}

	b.root = h
	b.logger.Debug("instantiated", "root", root, "cores", len(b.cores))

	return h, nil
}

// Simulate runs the instantiated machine until every core exits, a core
// faults, or tickBudget ticks have passed.
func (b *Backend) Simulate(h backend.Handle, tickBudget uint64) (backend.Result, error) {
	if b.root == "" || h != b.root {
		return backend.Result{}, fmt.Errorf("unknown instance %s", h)
	}

	if b.simulated {
		return backend.Result{}, fmt.Errorf("instance %s has already run", h)
	}

	b.simulated = true

	run := core.NewRun(tickBudget, len(b.coreOrder))
	for _, ch := range b.coreOrder {
		b.cores[ch].Start(run)
	}

	if err := b.engine.Run(); err != nil {
		return backend.Result{}, fmt.Errorf("engine: %w", err)
	}

	b.engine.Finished()

	ticks, cause, detail, err := run.Outcome()
	if err != nil {
		return backend.Result{}, err
	}

	return backend.Result{
		Ticks:  ticks,
		Cause:  cause,
		Detail: detail,
		Events: b.events.count,
		Cores:  b.coreStats(),
		Caches: b.cacheStats(),
	}, nil
}

func (b *Backend) coreStats() []backend.CoreStats {
	stats := make([]backend.CoreStats, 0, len(b.coreOrder))

	for _, h := range b.coreOrder {
		c := b.cores[h]
		s := c.Stats()
		exited, tick := c.Exited()

		stats = append(stats, backend.CoreStats{
			Name:      c.Name(),
			Cycles:    s.Cycles,
			Committed: s.Instructions,
			Stalls:    s.Stalls + s.FetchStalls,
			Exited:    exited,
			ExitTick:  tick,
		})
	}

	return stats
}

func (b *Backend) cacheStats() []backend.CacheStats {
	stats := make([]backend.CacheStats, 0, len(b.cacheOrder))

	for _, h := range b.cacheOrder {
		c := b.caches[h]
		s := c.Stats()

		stats = append(stats, backend.CacheStats{
			Name:       c.Name(),
			Hits:       s.Hits,
			Misses:     s.Misses,
			Writebacks: s.Writebacks,
		})
	}

	return stats
}
