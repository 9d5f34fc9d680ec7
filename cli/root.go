// Package cli provides the command-line interface of mctopo.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mctopo/config"
)

type globalFlags struct {
	configPath string
	envFiles   []string
	maxTicks   uint64
	dbPath     string
	verbose    bool
}

// NewRootCommand creates the mctopo command with every subcommand.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "mctopo",
		Short: "Assemble and simulate multi-core CPU topologies.",
		Long: `mctopo builds a machine of cores, caches, buses and memory ` +
			`controllers from a configuration, binds workloads to its ` +
			`cores and runs it for a bounded number of ticks.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "",
		"JSON or YAML machine configuration")
	pf.StringSliceVar(&g.envFiles, "env", []string{".env"},
		"files to read MCTOPO_* overrides from")
	pf.Uint64Var(&g.maxTicks, "max-ticks", config.DefaultMaxTicks,
		"simulated-time budget in ticks (1 tick = 1ps)")
	pf.StringVar(&g.dbPath, "db", "",
		"record the run in this SQLite database")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCommand(g),
		newFloatSimdCommand(g),
		newDaxpyCommand(g),
		newShowCommand(g),
	)

	return root
}

// Execute runs the root command and exits with a non-zero status on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig starts from the --config file, or from base when none is
// given, and applies environment overrides and the --max-ticks flag.
func (g *globalFlags) loadConfig(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	cfg := base
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if g.configPath != "" {
		loaded, err := config.LoadConfig(g.configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	env, err := config.ReadEnv(g.envFiles...)
	if err != nil {
		return nil, err
	}

	cfg, err = cfg.WithEnv(env)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("max-ticks") {
		cfg.MaxTicks = g.maxTicks
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
