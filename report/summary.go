// Package report prints and stores the outcome of simulation runs.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sarchlab/mctopo/backend"
	"github.com/sarchlab/mctopo/driver"
	"github.com/sarchlab/mctopo/timing/core"
)

// ExitLine returns the one-line summary of a run.
func ExitLine(r driver.ExitReport) string {
	line := fmt.Sprintf("Exiting @ tick %d because %s", r.TicksElapsed, r.Cause)
	if r.Cause == backend.CauseFault && r.Detail != "" {
		line += ": " + r.Detail
	}

	return line
}

// SimSeconds converts ticks to simulated seconds.
func SimSeconds(ticks uint64) float64 {
	return float64(ticks) / core.TicksPerSecond
}

// IPC is committed instructions per cycle. It is 0 for a core that never
// ticked.
func IPC(c backend.CoreStats) float64 {
	if c.Cycles == 0 {
		return 0
	}

	return float64(c.Committed) / float64(c.Cycles)
}

// HitRate is the fraction of cache accesses that hit.
func HitRate(c backend.CacheStats) float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}

	return float64(c.Hits) / float64(total)
}

// WriteSummary prints the exit line followed by per-core and per-cache
// statistics.
func WriteSummary(w io.Writer, r driver.ExitReport) error {
	if _, err := fmt.Fprintln(w, ExitLine(r)); err != nil {
		return err
	}

	fmt.Fprintf(w, "simulated %s in %s events\n",
		humanize.SIWithDigits(SimSeconds(r.TicksElapsed), 3, "s"),
		humanize.Comma(int64(r.Events)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "\ncore\tcycles\tcommitted\tstalls\tipc\texit")

	for _, c := range r.Cores {
		exit := "-"
		if c.Exited {
			exit = humanize.Comma(int64(c.ExitTick))
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%s\n",
			c.Name,
			humanize.Comma(int64(c.Cycles)),
			humanize.Comma(int64(c.Committed)),
			humanize.Comma(int64(c.Stalls)),
			IPC(c),
			exit)
	}

	if len(r.Caches) > 0 {
		fmt.Fprintln(tw, "\ncache\thits\tmisses\twritebacks\thit rate\t")

		for _, c := range r.Caches {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t\n",
				c.Name,
				humanize.Comma(int64(c.Hits)),
				humanize.Comma(int64(c.Misses)),
				humanize.Comma(int64(c.Writebacks)),
				100*HitRate(c))
		}
	}

	return tw.Flush()
}
