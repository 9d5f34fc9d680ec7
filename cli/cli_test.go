package cli_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mctopo/cli"
	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/topology"
)

var _ = Describe("CLI", func() {
	var stdout, stderr bytes.Buffer

	execute := func(args ...string) error {
		stdout.Reset()
		stderr.Reset()

		root := cli.NewRootCommand()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs(append(args, "--env", "does-not-exist.env"))

		return root.Execute()
	}

	It("should show the default topology", func() {
		Expect(execute("show")).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("system: 1 cores, flat"))
		Expect(stdout.String()).To(ContainSubstring(
			"system.cpu0.dcache_port -> system.membus.cpu_side_ports[1]"))
	})

	It("should stop a spinning workload at the budget", func() {
		Expect(execute("run", "spin", "--max-ticks", "100000")).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring(
			"Exiting @ tick 100000 because budget exhausted"))
	})

	It("should run DAXPY on every core", func() {
		err := execute("daxpy", "--num-cores", "2", "--vector-size", "64")
		Expect(err).NotTo(HaveOccurred())

		out := stdout.String()
		Expect(out).To(ContainSubstring("because workload exit"))
		Expect(out).To(ContainSubstring("system.cpu1"))
		Expect(out).To(ContainSubstring("system.l2cache"))
	})

	It("should print the float/SIMD latencies", func() {
		err := execute("floatsimd", "--op-lat", "5", "--issue-lat", "2",
			"--max-ticks", "50000")
		Expect(err).NotTo(HaveOccurred())

		Expect(stdout.String()).To(ContainSubstring("opLat = 5, issueLat = 2"))
		Expect(stdout.String()).To(ContainSubstring("because budget exhausted"))
	})

	It("should print the latencies taken from the environment", func() {
		env := filepath.Join(GinkgoT().TempDir(), "lat.env")
		Expect(os.WriteFile(env, []byte("MCTOPO_OP_LAT=7\n"), 0o644)).
			To(Succeed())

		root := cli.NewRootCommand()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs([]string{"floatsimd", "--max-ticks", "50000", "--env", env})
		stdout.Reset()

		Expect(root.Execute()).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("opLat = 7, issueLat = 4"))
	})

	It("should record runs in a database", func() {
		db := filepath.Join(GinkgoT().TempDir(), "runs.sqlite3")

		Expect(execute("run", "spin", "--max-ticks", "1000", "--db", db)).
			To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("recorded run"))
		Expect(db).To(BeAnExistingFile())
	})

	It("should load a configuration file", func() {
		cfg := config.DefaultConfig()
		cfg.NumCores = 2
		cfg.Policy = "broadcast"
		cfg.Workloads = []config.WorkloadConfig{{Binary: "spin"}}

		path := filepath.Join(GinkgoT().TempDir(), "machine.yaml")
		Expect(cfg.SaveConfig(path)).To(Succeed())

		Expect(execute("show", "--config", path)).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("system: 2 cores"))
		Expect(stdout.String()).To(ContainSubstring("thread 1 of 2"))
		Expect(stdout.String()).To(ContainSubstring("policy: broadcast"))
	})

	It("should fail on a bad configuration", func() {
		err := execute("run", "spin", "--num-cores", "0")

		Expect(err).To(MatchError(config.ErrConfiguration))
	})

	It("should apply environment overrides", func() {
		env := filepath.Join(GinkgoT().TempDir(), "test.env")
		Expect(os.WriteFile(env,
			[]byte("MCTOPO_NUM_CORES=3\nMCTOPO_POLICY=broadcast\n"), 0o644)).
			To(Succeed())

		root := cli.NewRootCommand()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs([]string{"show", "--env", env})
		stdout.Reset()

		Expect(root.Execute()).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("system: 3 cores"))
		Expect(stdout.String()).To(ContainSubstring("policy: broadcast"))
	})
})

var _ = Describe("Presets", func() {
	It("should build a valid float/SIMD machine", func() {
		cfg := cli.FloatSimdConfig(3, 4)

		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.FloatSimdUnits).To(Equal(3))
		Expect(cfg.Caches).To(BeNil())

		t, err := topology.Build(cfg, cfg.BuildWorkloads())
		Expect(err).NotTo(HaveOccurred())

		kinds := []fu.Kind{}
		for _, u := range t.Cores[0].FUPool.Units() {
			kinds = append(kinds, u.Kind)
		}

		Expect(kinds).To(Equal([]fu.Kind{
			fu.KindInt, fu.KindIntMul, fu.KindIntDiv, fu.KindMem,
			fu.KindFloatSimd, fu.KindFloatSimd, fu.KindFloatSimd,
		}))
	})

	It("should give every DAXPY core its own pid", func() {
		cfg := cli.DaxpyConfig(4, 1000)

		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Workloads).To(HaveLen(4))

		for i, w := range cfg.Workloads {
			Expect(*w.PID).To(Equal(100 + i))
			Expect(w.Args).To(Equal([]string{"1000"}))
		}
	})
})
