package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/fu"
)

// FloatSimdConfig is a single flat 2GHz core with three float/SIMD units of
// the given latencies and 32MB of DDR3, running the float kernel.
func FloatSimdConfig(opLat, issueLat uint64) *config.Config {
	cfg := config.DefaultConfig()
	cfg.FloatSimdUnits = 3
	cfg.FULatencies = map[string]config.LatencyConfig{
		"float_simd": {OpLat: opLat, IssueLat: issueLat},
	}
	cfg.Workloads = []config.WorkloadConfig{
		{Binary: "tests/test-progs/float_workload"},
	}

	return cfg
}

func newFloatSimdCommand(g *globalFlags) *cobra.Command {
	var opLat, issueLat uint64

	cmd := &cobra.Command{
		Use:   "floatsimd",
		Short: "Run the float kernel with tunable float/SIMD unit latencies.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd, FloatSimdConfig(opLat, issueLat))
			if err != nil {
				return err
			}

			lat := floatSimdLatency(cfg)
			fmt.Fprintf(cmd.OutOrStdout(),
				"Float/SIMD unit: opLat = %d, issueLat = %d\n", lat.Op, lat.Issue)

			_, err = g.simulate(cmd, cfg, cfg.BuildWorkloads())

			return err
		},
	}

	cmd.Flags().Uint64Var(&opLat, "op-lat", 3, "operation latency in cycles")
	cmd.Flags().Uint64Var(&issueLat, "issue-lat", 4, "issue latency in cycles")

	return cmd
}

// floatSimdLatency is the float/SIMD latency the run will use, after
// --config and environment overrides.
func floatSimdLatency(cfg *config.Config) fu.Latency {
	if l, ok := cfg.FULatencies[fu.KindFloatSimd.String()]; ok {
		return fu.Latency{Op: l.OpLat, Issue: l.IssueLat}
	}

	return fu.DefaultLatency(fu.KindFloatSimd)
}
