package timing

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mctopo/backend"
	"github.com/sarchlab/mctopo/memmap"
	"github.com/sarchlab/mctopo/timing/cache"
)

// ErrAddressFault is returned when a request reaches no memory that owns
// its address.
var ErrAddressFault = errors.New("address fault")

// payloadBytes is the size of one transfer over a fabric.
const payloadBytes = 64

// Fabric is a crossbar latency model. A request pays the frontend and
// forward latency on the way down and the response latency on the way up.
// Transfers share the data path, which moves Width bytes per cycle.
type Fabric struct {
	name   string
	spec   backend.BusSpec
	period uint64

	routes    []cache.BackingStore
	busyUntil uint64

	requests  uint64
	conflicts uint64
}

// NewFabric creates a fabric whose cycles last period ticks.
func NewFabric(spec backend.BusSpec, period uint64) *Fabric {
	return &Fabric{name: spec.Name, spec: spec, period: period}
}

// Name returns the fabric name.
func (f *Fabric) Name() string {
	return f.name
}

// AddRoute connects one more downstream port.
func (f *Fabric) AddRoute(b cache.BackingStore) {
	f.routes = append(f.routes, b)
}

// Stats returns how many requests crossed the fabric and how many had to
// wait for the data path.
func (f *Fabric) Stats() (requests, conflicts uint64) {
	return f.requests, f.conflicts
}

// Routes returns the number of downstream ports.
func (f *Fabric) Routes() int {
	return len(f.routes)
}

type owner interface {
	Owns(addr uint64) bool
}

func (f *Fabric) route(addr uint64) (cache.BackingStore, error) {
	if len(f.routes) == 1 {
		return f.routes[0], nil
	}

	for _, r := range f.routes {
		if o, ok := r.(owner); !ok || o.Owns(addr) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %s has no route to 0x%x",
		ErrAddressFault, f.name, addr)
}

// Access forwards req to the downstream port that serves its address.
func (f *Fabric) Access(req cache.Request) (uint64, error) {
	target, err := f.route(req.Addr)
	if err != nil {
		return 0, err
	}

	f.requests++

	start := max(req.Now, f.busyUntil)
	if start > req.Now {
		f.conflicts++
	}

	dataCycles := uint64(1)
	if f.spec.Width > 0 && f.spec.Width < payloadBytes {
		dataCycles = uint64(payloadBytes / f.spec.Width)
	}

	f.busyUntil = start + dataCycles*f.period

	down := req
	down.Now = start + (f.spec.FrontendLatency+f.spec.ForwardLatency)*f.period

	lower, err := target.Access(down)
	if err != nil {
		return 0, err
	}

	done := down.Now + lower + f.spec.ResponseLatency*f.period

	return done - req.Now, nil
}

// Controller is a memory controller latency model. Every access pays the
// DRAM access latency; bursts to the same channel are serialized.
type Controller struct {
	name    string
	rng     memmap.AddressRange
	latency uint64
	burst   uint64

	busyUntil uint64
	reads     uint64
	writes    uint64
}

// NewController creates a controller for spec. Latencies are converted to
// ticks.
func NewController(spec backend.MemCtrlSpec) *Controller {
	return &Controller{
		name:    spec.Name,
		rng:     spec.Range,
		latency: nsToTicks(spec.AccessLatencyNS),
		burst:   nsToTicks(spec.BurstNS),
	}
}

func nsToTicks(ns float64) uint64 {
	return uint64(ns*1000 + 0.5)
}

// Name returns the controller name.
func (m *Controller) Name() string {
	return m.name
}

// Stats returns the number of reads and writes served.
func (m *Controller) Stats() (reads, writes uint64) {
	return m.reads, m.writes
}

// Owns reports whether addr is in the controller's range.
func (m *Controller) Owns(addr uint64) bool {
	return m.rng.Contains(addr)
}

// Access serves req.
func (m *Controller) Access(req cache.Request) (uint64, error) {
	if !m.Owns(req.Addr) {
		return 0, fmt.Errorf("%w: %s does not own 0x%x",
			ErrAddressFault, m.name, req.Addr)
	}

	if req.Write {
		m.writes++
	} else {
		m.reads++
	}

	start := max(req.Now, m.busyUntil)
	m.busyUntil = start + m.burst

	return start - req.Now + m.latency, nil
}
