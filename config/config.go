// Package config holds the parameters a simulated machine is built from.
//
// A Config is created once (from defaults, a file, environment overrides or
// command-line flags) and is never changed afterwards. Builders take a
// *Config and only read it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mctopo/memmap"
)

// ErrConfiguration is returned for parameter combinations that cannot form
// a machine. It is detected before any backend call.
var ErrConfiguration = errors.New("configuration error")

// CacheConfig describes one cache level.
type CacheConfig struct {
	// Size is the capacity, e.g. "32kB".
	Size string `json:"size" yaml:"size"`

	// Assoc is the number of ways.
	Assoc int `json:"assoc" yaml:"assoc"`

	// LineSize is the block size in bytes. Default: 64.
	LineSize int `json:"line_size" yaml:"line_size"`

	TagLatency      uint64 `json:"tag_latency" yaml:"tag_latency"`
	DataLatency     uint64 `json:"data_latency" yaml:"data_latency"`
	ResponseLatency uint64 `json:"response_latency" yaml:"response_latency"`

	// MSHRs bounds the outstanding misses of the level.
	MSHRs int `json:"mshrs" yaml:"mshrs"`

	// TargetsPerMSHR bounds the requests merged into one miss.
	TargetsPerMSHR int `json:"tgts_per_mshr" yaml:"tgts_per_mshr"`
}

// CacheHierarchyConfig describes private L1 caches per core and a shared L2.
type CacheHierarchyConfig struct {
	L1I CacheConfig `json:"l1i" yaml:"l1i"`
	L1D CacheConfig `json:"l1d" yaml:"l1d"`
	L2  CacheConfig `json:"l2" yaml:"l2"`
}

// BusConfig describes a crossbar. Latencies are in bus cycles.
type BusConfig struct {
	Width           int    `json:"width" yaml:"width"`
	FrontendLatency uint64 `json:"frontend_latency" yaml:"frontend_latency"`
	ForwardLatency  uint64 `json:"forward_latency" yaml:"forward_latency"`
	ResponseLatency uint64 `json:"response_latency" yaml:"response_latency"`
}

// WorkloadConfig describes one executable image.
type WorkloadConfig struct {
	Binary string   `json:"binary" yaml:"binary"`
	Args   []string `json:"args,omitempty" yaml:"args,omitempty"`

	// PID is optional. Nil lets the backend choose.
	PID *int `json:"pid,omitempty" yaml:"pid,omitempty"`
}

// Config holds every parameter of one simulated machine.
type Config struct {
	// Name prefixes every component name. Default: "system".
	Name string `json:"name" yaml:"name"`

	// NumCores is the number of cores. Must be >= 1.
	NumCores int `json:"num_cores" yaml:"num_cores"`

	// Clock is the core clock, e.g. "2GHz".
	Clock string `json:"clock" yaml:"clock"`

	// Voltage of the shared voltage domain, in volts.
	Voltage float64 `json:"voltage" yaml:"voltage"`

	// MemSize is the size of a single memory range starting at 0. It is
	// ignored when MemRanges is set.
	MemSize string `json:"mem_size" yaml:"mem_size"`

	// MemRanges lists explicit ranges, one memory controller each.
	MemRanges []memmap.AddressRange `json:"mem_ranges,omitempty" yaml:"mem_ranges,omitempty"`

	// DRAM names the DRAM timing model of every controller.
	DRAM string `json:"dram" yaml:"dram"`

	// Caches enables the two-level hierarchy. Nil builds a flat machine.
	Caches *CacheHierarchyConfig `json:"caches,omitempty" yaml:"caches,omitempty"`

	// MemBus is the system crossbar, CacheBus the one between L1 and L2.
	MemBus   BusConfig `json:"membus" yaml:"membus"`
	CacheBus BusConfig `json:"cachebus" yaml:"cachebus"`

	// FloatSimdUnits is the number of float/SIMD units per core.
	FloatSimdUnits int `json:"float_simd_units" yaml:"float_simd_units"`

	// MiscUnit adds a misc unit to every core's pool.
	MiscUnit bool `json:"misc_unit,omitempty" yaml:"misc_unit,omitempty"`

	// FULatencies overrides the catalog latency per unit kind, keyed by
	// kind name ("int", "int_mul", "int_div", "mem", "float_simd", "misc").
	FULatencies map[string]LatencyConfig `json:"fu_latencies,omitempty" yaml:"fu_latencies,omitempty"`

	// Policy is "per-core" or "broadcast".
	Policy string `json:"policy" yaml:"policy"`

	Workloads []WorkloadConfig `json:"workloads" yaml:"workloads"`

	// MaxTicks is the simulated-time budget in ticks (picoseconds).
	MaxTicks uint64 `json:"max_ticks" yaml:"max_ticks"`
}

// LatencyConfig is the op/issue latency pair of a functional unit kind.
type LatencyConfig struct {
	OpLat    uint64 `json:"op_lat" yaml:"op_lat"`
	IssueLat uint64 `json:"issue_lat" yaml:"issue_lat"`
}

// DefaultMaxTicks is ten billion ticks, 10 ms of simulated time.
const DefaultMaxTicks uint64 = 10_000_000_000

// DefaultMemBus returns the system crossbar defaults.
func DefaultMemBus() BusConfig {
	return BusConfig{
		Width:           16,
		FrontendLatency: 3,
		ForwardLatency:  4,
		ResponseLatency: 2,
	}
}

// DefaultCacheBus returns the L1-to-L2 crossbar defaults.
func DefaultCacheBus() BusConfig {
	return BusConfig{
		Width:           32,
		FrontendLatency: 1,
		ForwardLatency:  0,
		ResponseLatency: 1,
	}
}

// DefaultL1Config returns a 32kB 8-way private L1 cache.
func DefaultL1Config() CacheConfig {
	return CacheConfig{
		Size:            "32kB",
		Assoc:           8,
		LineSize:        64,
		TagLatency:      1,
		DataLatency:     1,
		ResponseLatency: 1,
		MSHRs:           8,
		TargetsPerMSHR:  4,
	}
}

// DefaultL2Config returns a 256kB 16-way shared L2 cache.
func DefaultL2Config() CacheConfig {
	return CacheConfig{
		Size:            "256kB",
		Assoc:           16,
		LineSize:        64,
		TagLatency:      2,
		DataLatency:     2,
		ResponseLatency: 2,
		MSHRs:           16,
		TargetsPerMSHR:  4,
	}
}

// DefaultCacheHierarchy returns the default L1I/L1D/L2 hierarchy.
func DefaultCacheHierarchy() *CacheHierarchyConfig {
	return &CacheHierarchyConfig{
		L1I: DefaultL1Config(),
		L1D: DefaultL1Config(),
		L2:  DefaultL2Config(),
	}
}

// DefaultConfig returns a single-core flat machine at 2GHz with 32MB of
// DDR3 memory running the float kernel.
func DefaultConfig() *Config {
	return &Config{
		Name:           "system",
		NumCores:       1,
		Clock:          "2GHz",
		Voltage:        1.0,
		MemSize:        "32MB",
		DRAM:           "DDR3_1600_8x8",
		MemBus:         DefaultMemBus(),
		CacheBus:       DefaultCacheBus(),
		FloatSimdUnits: 1,
		Policy:         "per-core",
		Workloads: []WorkloadConfig{
			{Binary: "float_workload"},
		},
		MaxTicks: DefaultMaxTicks,
	}
}

// LoadConfig reads a Config from a JSON or YAML file. Fields missing from
// the file keep their defaults. The result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// SaveConfig writes the Config as JSON or YAML depending on the extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)

	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c

	clone.MemRanges = append([]memmap.AddressRange(nil), c.MemRanges...)

	if c.Caches != nil {
		caches := *c.Caches
		clone.Caches = &caches
	}

	if c.FULatencies != nil {
		clone.FULatencies = make(map[string]LatencyConfig, len(c.FULatencies))
		for k, v := range c.FULatencies {
			clone.FULatencies[k] = v
		}
	}

	clone.Workloads = make([]WorkloadConfig, len(c.Workloads))
	for i, w := range c.Workloads {
		clone.Workloads[i] = WorkloadConfig{
			Binary: w.Binary,
			Args:   append([]string(nil), w.Args...),
		}

		if w.PID != nil {
			pid := *w.PID
			clone.Workloads[i].PID = &pid
		}
	}

	return &clone
}
