package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/memmap"
	"github.com/sarchlab/mctopo/workload"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks every parameter. Workload counts are checked later, when
// workloads are bound to cores.
func (c *Config) Validate() error {
	if c.NumCores < 1 {
		return invalid("num_cores must be >= 1, got %d", c.NumCores)
	}

	if _, err := c.Freq(); err != nil {
		return err
	}

	if c.Voltage <= 0 {
		return invalid("voltage must be > 0")
	}

	if _, err := c.MemoryRanges(); err != nil {
		return err
	}

	if c.DRAM == "" {
		return invalid("dram model must be set")
	}

	if err := c.validateCaches(); err != nil {
		return err
	}

	if err := c.MemBus.validate("membus"); err != nil {
		return err
	}

	if c.Caches != nil {
		if err := c.CacheBus.validate("cachebus"); err != nil {
			return err
		}
	}

	if c.FloatSimdUnits < 0 {
		return invalid("float_simd_units must be >= 0, got %d", c.FloatSimdUnits)
	}

	if _, err := c.Overrides(); err != nil {
		return err
	}

	if _, err := c.BindingPolicy(); err != nil {
		return err
	}

	for i, w := range c.Workloads {
		if w.Binary == "" {
			return invalid("workload %d has no binary", i)
		}
	}

	if c.MaxTicks == 0 {
		return invalid("max_ticks must be > 0")
	}

	return nil
}

func (c *Config) validateCaches() error {
	if c.Caches == nil {
		return nil
	}

	levels := []struct {
		name string
		cfg  CacheConfig
	}{
		{"l1i", c.Caches.L1I},
		{"l1d", c.Caches.L1D},
		{"l2", c.Caches.L2},
	}

	for _, l := range levels {
		if _, err := l.cfg.SizeBytes(); err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}

		if err := l.cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
	}

	return nil
}

// SizeBytes parses the cache size.
func (cc CacheConfig) SizeBytes() (uint64, error) {
	size, err := memmap.ParseSize(cc.Size)
	if err != nil {
		return 0, invalid("cache size: %v", err)
	}

	return size, nil
}

// Validate checks the cache geometry and that every latency and MSHR
// parameter is positive.
func (cc CacheConfig) Validate() error {
	size, err := cc.SizeBytes()
	if err != nil {
		return err
	}

	if cc.Assoc <= 0 {
		return invalid("assoc must be > 0")
	}

	if cc.LineSize <= 0 || cc.LineSize&(cc.LineSize-1) != 0 {
		return invalid("line_size must be a power of two, got %d", cc.LineSize)
	}

	setBytes := uint64(cc.Assoc) * uint64(cc.LineSize)
	if setBytes > size {
		return invalid("assoc %d x line_size %d exceeds cache size %d",
			cc.Assoc, cc.LineSize, size)
	}

	if size%setBytes != 0 {
		return invalid("cache size %d is not a multiple of assoc x line_size %d",
			size, setBytes)
	}

	if cc.TagLatency == 0 || cc.DataLatency == 0 || cc.ResponseLatency == 0 {
		return invalid("cache latencies must be > 0")
	}

	if cc.MSHRs <= 0 || cc.TargetsPerMSHR <= 0 {
		return invalid("mshrs and tgts_per_mshr must be > 0")
	}

	return nil
}

func (b BusConfig) validate(name string) error {
	if b.Width <= 0 {
		return invalid("%s width must be > 0", name)
	}

	return nil
}

// Freq parses the clock.
func (c *Config) Freq() (sim.Freq, error) {
	return ParseFrequency(c.Clock)
}

// ParseFrequency converts strings such as "3GHz", "500 MHz" or "1e9" (Hz)
// to a frequency.
func ParseFrequency(s string) (sim.Freq, error) {
	str := strings.TrimSpace(s)
	units := []struct {
		suffix string
		scale  sim.Freq
	}{
		{"GHz", sim.GHz},
		{"MHz", sim.MHz},
		{"kHz", sim.KHz},
		{"KHz", sim.KHz},
		{"Hz", sim.Hz},
	}

	scale := sim.Hz

	for _, u := range units {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			scale = u.scale

			break
		}
	}

	v, err := strconv.ParseFloat(str, 64)
	if err != nil || v <= 0 {
		return 0, invalid("bad frequency %q", s)
	}

	return sim.Freq(v) * scale, nil
}

// MemoryRanges returns the ranges memory controllers are built for.
func (c *Config) MemoryRanges() ([]memmap.AddressRange, error) {
	if len(c.MemRanges) > 0 {
		for _, r := range c.MemRanges {
			if r.Size == 0 {
				return nil, invalid("memory range at 0x%x is empty", r.Base)
			}
		}

		return append([]memmap.AddressRange(nil), c.MemRanges...), nil
	}

	size, err := memmap.ParseSize(c.MemSize)
	if err != nil {
		return nil, invalid("mem_size: %v", err)
	}

	if size == 0 {
		return nil, invalid("mem_size must be > 0")
	}

	return []memmap.AddressRange{{Base: 0, Size: size}}, nil
}

// Overrides converts FULatencies to a typed override table.
func (c *Config) Overrides() (fu.Overrides, error) {
	o := make(fu.Overrides, len(c.FULatencies))

	for name, l := range c.FULatencies {
		k, err := fu.ParseKind(name)
		if err != nil {
			return nil, invalid("fu_latencies: %v", err)
		}

		lat := fu.Latency{Op: l.OpLat, Issue: l.IssueLat}
		if err := lat.Validate(); err != nil {
			return nil, invalid("fu_latencies[%s]: %v", name, err)
		}

		o[k] = lat
	}

	return o, nil
}

// BindingPolicy parses Policy.
func (c *Config) BindingPolicy() (workload.Policy, error) {
	p, err := workload.ParsePolicy(c.Policy)
	if err != nil {
		return 0, invalid("%v", err)
	}

	return p, nil
}

// BuildWorkloads creates one Workload per WorkloadConfig.
func (c *Config) BuildWorkloads() []*workload.Workload {
	wls := make([]*workload.Workload, len(c.Workloads))
	for i, w := range c.Workloads {
		wl := workload.New(w.Binary, w.Args...)
		if w.PID != nil {
			wl = wl.WithPID(*w.PID)
		}

		wls[i] = wl
	}

	return wls
}
