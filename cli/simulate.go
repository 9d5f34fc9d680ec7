package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mctopo/config"
	"github.com/sarchlab/mctopo/driver"
	"github.com/sarchlab/mctopo/report"
	"github.com/sarchlab/mctopo/timing"
	"github.com/sarchlab/mctopo/topology"
	"github.com/sarchlab/mctopo/workload"
)

// simulate builds the machine of cfg, runs wls on it on the timing backend
// and prints the report.
func (g *globalFlags) simulate(
	cmd *cobra.Command,
	cfg *config.Config,
	wls []*workload.Workload,
) (driver.ExitReport, error) {
	start := time.Now()
	logger := g.logger(cmd.ErrOrStderr())

	t, err := topology.NewBuilder(cfg).WithLogger(logger).Build(wls)
	if err != nil {
		return driver.ExitReport{}, err
	}

	be := timing.MakeBuilder().WithLogger(logger).Build()
	d := driver.MakeBuilder().WithBackend(be).WithLogger(logger).Build()

	h, err := d.Instantiate(t)
	if err != nil {
		return driver.ExitReport{}, err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Starting simulation...")

	r, err := d.Run(h, cfg.MaxTicks)
	if err != nil {
		return driver.ExitReport{}, err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	if err := report.WriteSummary(out, r); err != nil {
		return r, err
	}

	if g.verbose {
		usage, err := report.ProbeHost(start)
		if err != nil {
			logger.Warn("failed to probe host", "error", err)
		} else if err := report.WriteHost(out, usage); err != nil {
			return r, err
		}
	}

	if g.dbPath != "" {
		if err := g.record(cmd, cfg, t, r, time.Since(start)); err != nil {
			return r, err
		}
	}

	return r, nil
}

func (g *globalFlags) record(
	cmd *cobra.Command,
	cfg *config.Config,
	t *topology.Topology,
	r driver.ExitReport,
	wall time.Duration,
) error {
	rec, err := report.NewRecorder(g.dbPath)
	if err != nil {
		return err
	}

	id := rec.Record(report.RunInfo{
		System:   t.Name,
		Command:  cmd.Name(),
		NumCores: len(t.Cores),
		Clock:    cfg.Clock,
		Policy:   t.Policy().String(),
		Budget:   cfg.MaxTicks,
	}, r, wall)

	if err := rec.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded run %s in %s\n", id, g.dbPath)

	return nil
}
