// Package topology builds and validates the hardware graph of a simulated
// machine: clock domains, cores with their functional-unit pools, the cache
// hierarchy, interconnects and memory controllers, and the binding of
// workloads to cores.
package topology

import (
	"fmt"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/memmap"
	"github.com/sarchlab/mctopo/workload"
)

// Binding is the workload of one core. Thread and Threads tell the core
// which share of a partitioned program it runs.
type Binding struct {
	Core     *Core
	Workload *workload.Workload
	Program  *workload.Program
	Thread   int
	Threads  int
}

// Topology is the wired graph of one machine. It owns every component.
type Topology struct {
	Name   string
	Domain *ClockVoltageDomain

	Cores []*Core

	// L1I and L1D are indexed by core id. They are empty for a flat
	// machine.
	L1I []*CacheLevel
	L1D []*CacheLevel
	L2  *CacheLevel

	// CacheBus connects the L1s to the L2. MemBus connects the last level
	// above memory to the controllers.
	CacheBus *Interconnect
	MemBus   *Interconnect

	Controllers []*MemoryController

	addrMap  memmap.Map[*MemoryController]
	links    []Link
	policy   workload.Policy
	bindings []Binding
	bound    bool
	frozen   bool
}

func newTopology(name string, domain *ClockVoltageDomain) *Topology {
	return &Topology{Name: name, Domain: domain}
}

func (t *Topology) checkMutable(what string) error {
	if t.frozen {
		return fmt.Errorf("%w: cannot %s, topology %s is frozen",
			ErrInvalidState, what, t.Name)
	}

	return nil
}

// AddCore appends a core with the next free id, in the shared clock domain.
func (t *Topology) AddCore(pool *fu.Pool) (*Core, error) {
	if err := t.checkMutable("add a core"); err != nil {
		return nil, err
	}

	if pool == nil {
		return nil, fmt.Errorf("%w: core without a functional unit pool",
			ErrTopology)
	}

	id := len(t.Cores)
	c := newCore(id, fmt.Sprintf("%s.cpu%d", t.Name, id), t.Domain, pool)
	t.Cores = append(t.Cores, c)

	return c, nil
}

// AddMemoryController creates a controller that owns r. The range must not
// be empty and must not overlap a range that is already owned.
func (t *Topology) AddMemoryController(
	r memmap.AddressRange,
	dram DRAMModel,
) (*MemoryController, error) {
	if err := t.checkMutable("add a memory controller"); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s.mem_ctrls%d", t.Name, len(t.Controllers))
	mc := newMemoryController(name, r, dram)

	if err := t.addrMap.Claim(r, mc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTopology, name, err)
	}

	t.Controllers = append(t.Controllers, mc)

	return mc, nil
}

// Connect links two ports. Exactly one of them must be a requestor and
// neither may be connected already.
func (t *Topology) Connect(a, b *Port) error {
	if err := t.checkMutable("connect ports"); err != nil {
		return err
	}

	l, err := connect(a, b)
	if err != nil {
		return err
	}

	t.links = append(t.links, l)

	return nil
}

// Bind assigns workloads to cores under policy p. Every program must be
// resolvable and its footprint must lie inside memory owned by the
// controllers. Bind succeeds at most once.
func (t *Topology) Bind(
	p workload.Policy,
	wls []*workload.Workload,
	resolver workload.Resolver,
) error {
	if err := t.checkMutable("bind workloads"); err != nil {
		return err
	}

	if t.bound {
		return fmt.Errorf("%w: workloads are already bound to %s",
			ErrInvalidState, t.Name)
	}

	perCore, err := workload.Assign(p, len(t.Cores), wls)
	if err != nil {
		return err
	}

	programs := make(map[*workload.Workload]*workload.Program)
	threads := make(map[*workload.Workload]int)

	for _, w := range perCore {
		threads[w]++

		if _, ok := programs[w]; ok {
			continue
		}

		prog, err := resolver.Resolve(w.Binary)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", workload.ErrBinding, w, err)
		}

		if err := t.checkFootprint(w, prog); err != nil {
			return err
		}

		programs[w] = prog
	}

	bindings := make([]Binding, len(t.Cores))
	next := make(map[*workload.Workload]int)

	for i, c := range t.Cores {
		w := perCore[i]
		bindings[i] = Binding{
			Core:     c,
			Workload: w,
			Program:  programs[w],
			Thread:   next[w],
			Threads:  threads[w],
		}
		next[w]++
	}

	for i, c := range t.Cores {
		c.Workload = perCore[i]
	}

	t.policy = p
	t.bindings = bindings
	t.bound = true

	return nil
}

func (t *Topology) checkFootprint(
	w *workload.Workload,
	prog *workload.Program,
) error {
	ranges, err := prog.Footprint(w.Argv)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", workload.ErrBinding, w, err)
	}

	for _, r := range ranges {
		if !t.addrMap.Covers(r) {
			return fmt.Errorf(
				"%w: %s references %s, which no memory controller owns",
				ErrTopology, w, r)
		}
	}

	return nil
}

// Freeze makes the topology read-only. Every later mutation fails with
// ErrInvalidState.
func (t *Topology) Freeze() {
	t.frozen = true
}

// Frozen reports whether the topology has been frozen.
func (t *Topology) Frozen() bool {
	return t.frozen
}

// Bound reports whether workloads have been bound.
func (t *Topology) Bound() bool {
	return t.bound
}

// Flat reports whether the cores connect straight to the memory bus.
func (t *Topology) Flat() bool {
	return t.L2 == nil
}

// Policy returns the binding policy used by Bind.
func (t *Topology) Policy() workload.Policy {
	return t.policy
}

// Bindings returns the core-to-workload bindings ordered by core id.
func (t *Topology) Bindings() []Binding {
	return append([]Binding(nil), t.bindings...)
}

// Caches returns every cache level, private levels first.
func (t *Topology) Caches() []*CacheLevel {
	caches := make([]*CacheLevel, 0, len(t.L1I)+len(t.L1D)+1)
	for i := range t.L1I {
		caches = append(caches, t.L1I[i], t.L1D[i])
	}

	if t.L2 != nil {
		caches = append(caches, t.L2)
	}

	return caches
}

// Interconnects returns the cache bus, if any, and the memory bus.
func (t *Topology) Interconnects() []*Interconnect {
	var xs []*Interconnect
	if t.CacheBus != nil {
		xs = append(xs, t.CacheBus)
	}

	if t.MemBus != nil {
		xs = append(xs, t.MemBus)
	}

	return xs
}

// Nodes returns every component in build order.
func (t *Topology) Nodes() []Node {
	var nodes []Node
	for _, c := range t.Cores {
		nodes = append(nodes, c)
	}

	for _, c := range t.Caches() {
		nodes = append(nodes, c)
	}

	for _, x := range t.Interconnects() {
		nodes = append(nodes, x)
	}

	for _, m := range t.Controllers {
		nodes = append(nodes, m)
	}

	return nodes
}

// Ports returns every port of every component.
func (t *Topology) Ports() []*Port {
	var ports []*Port
	for _, n := range t.Nodes() {
		ports = append(ports, n.Ports()...)
	}

	return ports
}

// Links returns the links in the order they were made.
func (t *Topology) Links() []Link {
	return append([]Link(nil), t.links...)
}

// AddressRanges returns the ranges owned by the controllers in address
// order.
func (t *Topology) AddressRanges() []memmap.AddressRange {
	return t.addrMap.Ranges()
}

// ControllerFor returns the controller that owns addr.
func (t *Topology) ControllerFor(addr uint64) (*MemoryController, bool) {
	return t.addrMap.Find(addr)
}

// Validate checks that the graph is complete and every core has a
// workload.
func (t *Topology) Validate() error {
	if err := t.ValidateWiring(); err != nil {
		return err
	}

	for _, c := range t.Cores {
		if c.Workload == nil {
			return fmt.Errorf("%w: %s has no workload", ErrTopology, c.Name())
		}
	}

	return nil
}

// ValidateWiring checks that core ids are contiguous, every port has exactly
// one peer and every path from a core ends at a memory controller without
// revisiting a component.
func (t *Topology) ValidateWiring() error {
	if len(t.Cores) == 0 {
		return fmt.Errorf("%w: %s has no cores", ErrTopology, t.Name)
	}

	for i, c := range t.Cores {
		if c.ID != i {
			return fmt.Errorf("%w: core at position %d has id %d",
				ErrTopology, i, c.ID)
		}
	}

	if len(t.Controllers) == 0 {
		return fmt.Errorf("%w: %s has no memory controller", ErrTopology, t.Name)
	}

	for _, p := range t.Ports() {
		if !p.Connected() {
			return fmt.Errorf("%w: port %s is not connected", ErrTopology, p)
		}

		if p.Peer().Peer() != p {
			return fmt.Errorf("%w: port %s is not connected back from %s",
				ErrTopology, p, p.Peer())
		}
	}

	for _, c := range t.Cores {
		if err := t.walk(c, map[Node]bool{}); err != nil {
			return err
		}
	}

	return nil
}

func downstream(n Node) []*Port {
	switch n := n.(type) {
	case *Core:
		return []*Port{n.ICachePort, n.DCachePort}
	case *CacheLevel:
		return []*Port{n.MemSide}
	case *Interconnect:
		return n.MemSidePorts()
	default:
		return nil
	}
}

func (t *Topology) walk(n Node, path map[Node]bool) error {
	if path[n] {
		return fmt.Errorf("%w: cycle through %s", ErrTopology, n.Name())
	}

	if _, ok := n.(*MemoryController); ok {
		return nil
	}

	next := downstream(n)
	if len(next) == 0 {
		return fmt.Errorf("%w: %s does not lead to a memory controller",
			ErrTopology, n.Name())
	}

	path[n] = true
	defer delete(path, n)

	for _, p := range next {
		if p.Peer() == nil {
			return fmt.Errorf("%w: port %s is not connected", ErrTopology, p)
		}

		if err := t.walk(p.Peer().Owner(), path); err != nil {
			return err
		}
	}

	return nil
}
