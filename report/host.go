package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/process"
)

// HostUsage is what the simulator process cost on the host.
type HostUsage struct {
	Wall       time.Duration
	CPUPercent float64
	RSS        uint64
}

// ProbeHost measures the current process. Wall is the time since start.
func ProbeHost(start time.Time) (HostUsage, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return HostUsage{}, fmt.Errorf("failed to open own process: %w", err)
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		return HostUsage{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return HostUsage{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	return HostUsage{
		Wall:       time.Since(start),
		CPUPercent: cpu,
		RSS:        mem.RSS,
	}, nil
}

// WriteHost prints the host usage line.
func WriteHost(w io.Writer, u HostUsage) error {
	_, err := fmt.Fprintf(w, "host: %s wall, %.1f%% cpu, %s rss\n",
		u.Wall.Round(time.Millisecond), u.CPUPercent, humanize.IBytes(u.RSS))

	return err
}
