package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/timing"
	"github.com/sarchlab/mctopo/workload"
)

// DaxpyConfig is a cached 3GHz machine with 4GB of memory. Every core runs
// its own DAXPY process over vectorSize elements, with pids from 100.
func DaxpyConfig(numCores, vectorSize int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.NumCores = numCores
	cfg.Clock = "3GHz"
	cfg.MemSize = "4GB"
	cfg.Caches = config.DefaultCacheHierarchy()
	cfg.Policy = workload.PerCore.String()
	cfg.Workloads = make([]config.WorkloadConfig, numCores)

	for i := range cfg.Workloads {
		pid := timing.FirstPID + i
		cfg.Workloads[i] = config.WorkloadConfig{
			Binary: "tests/test-progs/multi_thread_daxpy",
			Args:   []string{strconv.Itoa(vectorSize)},
			PID:    &pid,
		}
	}

	return cfg
}

func newDaxpyCommand(g *globalFlags) *cobra.Command {
	var numCores, vectorSize int

	cmd := &cobra.Command{
		Use:   "daxpy",
		Short: "Run DAXPY on every core of a cached multi-core machine.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd, DaxpyConfig(numCores, vectorSize))
			if err != nil {
				return err
			}

			_, err = g.simulate(cmd, cfg, cfg.BuildWorkloads())

			return err
		},
	}

	cmd.Flags().IntVar(&numCores, "num-cores", 4, "number of cores")
	cmd.Flags().IntVar(&vectorSize, "vector-size", 1000000, "elements per vector")

	return cmd
}
