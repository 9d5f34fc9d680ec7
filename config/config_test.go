package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/memmap"
	"github.com/sarchlab/mctopo/workload"
)

var _ = Describe("Config", func() {
	var c *config.Config

	BeforeEach(func() {
		c = config.DefaultConfig()
	})

	It("should have valid defaults", func() {
		Expect(c.Validate()).To(Succeed())

		freq, err := c.Freq()
		Expect(err).NotTo(HaveOccurred())
		Expect(freq).To(Equal(2 * sim.GHz))

		ranges, err := c.MemoryRanges()
		Expect(err).NotTo(HaveOccurred())
		Expect(ranges).To(Equal([]memmap.AddressRange{{Base: 0, Size: 32 << 20}}))
	})

	It("should reject zero cores", func() {
		c.NumCores = 0
		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should reject a bad clock", func() {
		c.Clock = "fast"
		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should reject an empty memory range", func() {
		c.MemRanges = []memmap.AddressRange{{Base: 0x1000, Size: 0}}
		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should reject caches whose ways do not fit", func() {
		c.Caches = config.DefaultCacheHierarchy()
		c.Caches.L1D.Size = "256B"
		c.Caches.L1D.Assoc = 8
		c.Caches.L1D.LineSize = 64

		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should reject a non power-of-two line size", func() {
		c.Caches = config.DefaultCacheHierarchy()
		c.Caches.L2.LineSize = 48

		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should reject zero MSHRs", func() {
		c.Caches = config.DefaultCacheHierarchy()
		c.Caches.L1I.MSHRs = 0

		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should convert latency overrides to kinds", func() {
		c.FULatencies = map[string]config.LatencyConfig{
			"float_simd": {OpLat: 3, IssueLat: 4},
		}

		o, err := c.Overrides()
		Expect(err).NotTo(HaveOccurred())
		Expect(o).To(Equal(fu.Overrides{
			fu.KindFloatSimd: {Op: 3, Issue: 4},
		}))
	})

	It("should reject overrides of unknown kinds", func() {
		c.FULatencies = map[string]config.LatencyConfig{
			"quantum": {OpLat: 3, IssueLat: 4},
		}

		Expect(c.Validate()).To(MatchError(config.ErrConfiguration))
	})

	It("should build workloads with pids", func() {
		pid := 100
		c.Workloads = []config.WorkloadConfig{
			{Binary: "multi_thread_daxpy", Args: []string{"64"}, PID: &pid},
		}

		wls := c.BuildWorkloads()
		Expect(wls).To(HaveLen(1))
		Expect(wls[0].Argv).To(Equal([]string{"multi_thread_daxpy", "64"}))
		Expect(*wls[0].PID).To(Equal(100))
	})

	It("should parse the binding policy", func() {
		c.Policy = "broadcast"

		p, err := c.BindingPolicy()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(workload.Broadcast))
	})

	It("should deep copy on Clone", func() {
		c.Caches = config.DefaultCacheHierarchy()
		c.FULatencies = map[string]config.LatencyConfig{"int": {OpLat: 1, IssueLat: 1}}

		clone := c.Clone()
		clone.Caches.L2.Assoc = 2
		clone.FULatencies["int"] = config.LatencyConfig{OpLat: 9, IssueLat: 9}
		clone.Workloads[0].Args = append(clone.Workloads[0].Args, "x")

		Expect(c.Caches.L2.Assoc).To(Equal(16))
		Expect(c.FULatencies["int"].OpLat).To(Equal(uint64(1)))
		Expect(c.Workloads[0].Args).To(BeEmpty())
	})

	DescribeTable("should round trip through files",
		func(name string) {
			c.NumCores = 4
			c.Caches = config.DefaultCacheHierarchy()
			c.Policy = "broadcast"

			path := filepath.Join(GinkgoT().TempDir(), name)
			Expect(c.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		},
		Entry("json", "machine.json"),
		Entry("yaml", "machine.yaml"),
	)

	It("should keep defaults for fields missing from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "partial.yaml")
		Expect(os.WriteFile(path, []byte("num_cores: 8\n"), 0644)).To(Succeed())

		loaded, err := config.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.NumCores).To(Equal(8))
		Expect(loaded.Clock).To(Equal("2GHz"))
	})

	It("should reject an invalid file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "bad.json")
		Expect(os.WriteFile(path, []byte(`{"num_cores": 0}`), 0644)).To(Succeed())

		_, err := config.LoadConfig(path)
		Expect(err).To(MatchError(config.ErrConfiguration))
	})
})

var _ = Describe("ParseFrequency", func() {
	DescribeTable("should parse",
		func(in string, want sim.Freq) {
			f, err := config.ParseFrequency(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(BeNumerically("~", want, 1e-3))
		},
		Entry("GHz", "3GHz", 3*sim.GHz),
		Entry("fractional", "2.5 GHz", 2.5*sim.GHz),
		Entry("MHz", "500MHz", 500*sim.MHz),
		Entry("bare Hz", "1e9", 1*sim.GHz),
	)

	It("should reject zero", func() {
		_, err := config.ParseFrequency("0GHz")
		Expect(err).To(MatchError(config.ErrConfiguration))
	})
})
