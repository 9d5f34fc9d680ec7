package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/sarchlab/mctopo/topology"
)

// WriteTopology prints the components of t, its links and its memory map.
func WriteTopology(w io.Writer, t *topology.Topology) error {
	kind := "cached"
	if t.Flat() {
		kind = "flat"
	}

	fmt.Fprintf(w, "%s: %d cores, %s, %s at %s, %.2f V\n",
		t.Name, len(t.Cores), kind, t.Domain.Name,
		humanize.SIWithDigits(float64(t.Domain.Freq), 2, "Hz"),
		t.Domain.Voltage)

	bound := make(map[*topology.Core]topology.Binding)
	for _, b := range t.Bindings() {
		bound[b.Core] = b
	}

	for _, c := range t.Cores {
		fmt.Fprintf(w, "  %s  fu: %s\n", c.Name(), c.FUPool)

		if b, ok := bound[c]; ok {
			fmt.Fprintf(w, "    workload: %s, thread %d of %d\n",
				b.Workload, b.Thread, b.Threads)
		}
	}

	for _, c := range t.Caches() {
		p := c.Params
		fmt.Fprintf(w, "  %s  L%d %s, %s, %d-way, %dB lines, %d sets\n",
			c.Name(), c.Level, c.Kind, humanize.IBytes(p.Size),
			p.Assoc, p.LineSize, p.NumSets())
	}

	for _, x := range t.Interconnects() {
		fmt.Fprintf(w, "  %s  %d requestors, %d responders, width %d\n",
			x.Name(), len(x.CPUSidePorts()), len(x.MemSidePorts()),
			x.Params.Width)
	}

	for _, m := range t.Controllers {
		fmt.Fprintf(w, "  %s  %s (%s), %s\n",
			m.Name(), m.Range, humanize.IBytes(m.Range.Size), m.DRAM.Name)
	}

	fmt.Fprintln(w, "links:")

	for _, l := range t.Links() {
		fmt.Fprintf(w, "  %s -> %s\n", l.Requestor, l.Responder)
	}

	_, err := fmt.Fprintf(w, "policy: %s\n", t.Policy())

	return err
}
