package cli

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/mctopo/report"
	"github.com/sarchlab/mctopo/topology"
)

func newShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the topology a configuration builds, without running it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			t, err := topology.NewBuilder(cfg).
				WithLogger(g.logger(cmd.ErrOrStderr())).
				Build(cfg.BuildWorkloads())
			if err != nil {
				return err
			}

			return report.WriteTopology(cmd.OutOrStdout(), t)
		},
	}
}
