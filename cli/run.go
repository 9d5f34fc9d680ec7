package cli

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/mctopo/config"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	var (
		numCores int
		clock    string
		memSize  string
		caches   bool
		policy   string
	)

	cmd := &cobra.Command{
		Use:   "run [binary [args...]]",
		Short: "Run workloads on a configured machine.",
		Long: `Run builds the machine described by --config, or the default ` +
			`single-core machine, and runs its workloads. A binary on the ` +
			`command line replaces the configured workloads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("num-cores") {
				cfg.NumCores = numCores
			}

			if flags.Changed("clock") {
				cfg.Clock = clock
			}

			if flags.Changed("mem-size") {
				cfg.MemSize = memSize
				cfg.MemRanges = nil
			}

			if flags.Changed("caches") {
				cfg.Caches = nil
				if caches {
					cfg.Caches = config.DefaultCacheHierarchy()
				}
			}

			if flags.Changed("policy") {
				cfg.Policy = policy
			}

			if len(args) > 0 {
				cfg.Workloads = []config.WorkloadConfig{
					{Binary: args[0], Args: args[1:]},
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			_, err = g.simulate(cmd, cfg, cfg.BuildWorkloads())

			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&numCores, "num-cores", 1, "number of cores")
	f.StringVar(&clock, "clock", "2GHz", "core clock")
	f.StringVar(&memSize, "mem-size", "32MB", "size of the single memory range")
	f.BoolVar(&caches, "caches", false, "add private L1s and a shared L2")
	f.StringVar(&policy, "policy", "per-core", "binding policy: per-core or broadcast")

	return cmd
}
