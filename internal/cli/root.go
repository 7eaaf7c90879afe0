// Package cli wires the simulator binary together: argument parsing,
// workload loading, the scheduling core, and the optional run store and
// monitor endpoint.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/me/ossim/internal/config"
	"github.com/me/ossim/internal/logging"
	"github.com/me/ossim/internal/report"
	"github.com/me/ossim/internal/sched"
	"github.com/me/ossim/internal/server"
	"github.com/me/ossim/internal/sim"
	"github.com/me/ossim/internal/store"
	"github.com/me/ossim/internal/workload"
	"github.com/me/ossim/pkg/model"
	"github.com/spf13/cobra"
)

const (
	minCPUs = 1
	maxCPUs = 16

	// The -r value is milliseconds, converted at 100 ms per tick. The
	// conversion does not depend on the wall-clock pacing set by --tick.
	msPerTick = 100
)

type options struct {
	timesliceMS  int
	ageWeight    uint32
	srtf         bool
	workloadPath string
	procCount    int
	seed         int64
	tick         time.Duration
	statsDB      string
	monitorAddr  string
	debug        bool
	logLevel     string
	logFormat    string
}

// NewRootCmd creates the root cobra command for the ossim binary.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	defaults := config.DefaultSimulatorConfig()

	root := &cobra.Command{
		Use:   "ossim <cpu_count>",
		Short: "ossim — multi-CPU OS scheduling simulator",
		Long: "ossim simulates a multi-CPU operating system under one of four\n" +
			"scheduling policies: FCFS (default), round robin (-r), priority\n" +
			"aging (-p), and shortest remaining time first (-s).",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cpuCount, err := strconv.Atoi(args[0])
			if err != nil || cpuCount < minCPUs || cpuCount > maxCPUs {
				return fmt.Errorf("invalid number of CPUs %q: want %d-%d", args[0], minCPUs, maxCPUs)
			}

			schedCfg, err := schedConfig(cmd, opts, cpuCount)
			if err != nil {
				return err
			}

			if opts.debug {
				opts.logLevel = "debug"
			}
			logger := logging.NewLogger(logging.ParseLevel(opts.logLevel), opts.logFormat)

			return run(cmd.Context(), schedCfg, opts, logger)
		},
	}

	root.Flags().IntVarP(&opts.timesliceMS, "round-robin", "r", 0, "Round-robin scheduling with the given time slice (ms)")
	root.Flags().Uint32VarP(&opts.ageWeight, "priority-aging", "p", 0, "Priority-aging scheduling with the given age weight")
	root.Flags().BoolVarP(&opts.srtf, "srtf", "s", false, "Shortest-remaining-time-first scheduling")
	root.MarkFlagsMutuallyExclusive("round-robin", "priority-aging", "srtf")

	root.Flags().StringVar(&opts.workloadPath, "workload", "", "Workload YAML file (random workload when unset)")
	root.Flags().IntVar(&opts.procCount, "procs", 8, "Process count for the random workload")
	root.Flags().Int64Var(&opts.seed, "seed", 1, "Seed for the random workload")
	root.Flags().DurationVar(&opts.tick, "tick", defaults.TickDuration, "Wall-clock duration of one simulated tick")
	root.Flags().StringVar(&opts.statsDB, "stats-db", defaults.StatsDB, "SQLite path for run history (disabled when unset)")
	root.Flags().StringVar(&opts.monitorAddr, "monitor", defaults.MonitorAddr, "Listen address for the live monitor (disabled when unset)")
	root.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.Flags().StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	root.Flags().StringVar(&opts.logFormat, "log-format", defaults.LogFormat, "Log format (text, json)")

	return root
}

// schedConfig derives the scheduling parameters from the policy flags.
// The -r value is milliseconds, converted to ticks with a floor of one
// tick for any positive input.
func schedConfig(cmd *cobra.Command, opts *options, cpuCount int) (sched.Config, error) {
	cfg := sched.Config{
		Policy:   model.PolicyFCFS,
		CPUCount: cpuCount,
	}

	switch {
	case cmd.Flags().Changed("round-robin"):
		if opts.timesliceMS <= 0 {
			return cfg, fmt.Errorf("invalid time slice %d ms", opts.timesliceMS)
		}
		cfg.Policy = model.PolicyRR
		cfg.TimeSlice = timesliceTicks(opts.timesliceMS)
	case cmd.Flags().Changed("priority-aging"):
		cfg.Policy = model.PolicyPA
		cfg.AgeWeight = opts.ageWeight
	case opts.srtf:
		cfg.Policy = model.PolicySRTF
	}

	return cfg, nil
}

// timesliceTicks converts a millisecond time slice to ticks, flooring
// at one tick for any positive input.
func timesliceTicks(ms int) model.Tick {
	t := model.Tick(ms / msPerTick)
	if t == 0 && ms > 0 {
		t = 1
	}
	return t
}

// loadProcesses builds the workload: the YAML file when given, the
// seeded generator otherwise.
func loadProcesses(opts *options) ([]*model.Process, error) {
	if opts.workloadPath != "" {
		spec, err := workload.Load(opts.workloadPath)
		if err != nil {
			return nil, err
		}
		return spec.Build(), nil
	}
	if opts.procCount <= 0 {
		return nil, fmt.Errorf("invalid process count %d", opts.procCount)
	}
	return workload.Generate(opts.procCount, opts.seed), nil
}

// run executes one simulation and reports it.
func run(ctx context.Context, schedCfg sched.Config, opts *options, logger *slog.Logger) error {
	procs, err := loadProcesses(opts)
	if err != nil {
		return err
	}

	simulator := sim.New(sim.Config{TickDuration: opts.tick}, schedCfg, procs, logger)

	if opts.monitorAddr != "" {
		mon := server.New(simulator.Scheduler(), logger)
		mon.Start(opts.monitorAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = mon.Shutdown(shutdownCtx)
		}()
	}

	started := time.Now().UTC()
	results, err := simulator.Run(ctx)
	if err != nil {
		return err
	}

	if err := results.WriteText(os.Stdout); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if opts.statsDB != "" {
		if err := saveRun(ctx, opts.statsDB, schedCfg, results, started, logger); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}
	return nil
}

// saveRun records the finished run in the history database.
func saveRun(ctx context.Context, dbPath string, schedCfg sched.Config, results *report.Results, started time.Time, logger *slog.Logger) error {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run := &store.Run{
		ID:            "run_" + uuid.New().String()[:8],
		Policy:        results.Policy,
		CPUCount:      results.CPUCount,
		AgeWeight:     schedCfg.AgeWeight,
		TimeSlice:     schedCfg.TimeSlice,
		TotalTicks:    results.TotalTicks,
		AvgTurnaround: results.AvgTurnaround(),
		AvgWaiting:    results.AvgWaiting(),
		StartedAt:     started,
		FinishedAt:    time.Now().UTC(),
	}
	if err := st.SaveRun(ctx, run, results.Processes); err != nil {
		return err
	}

	logger.Info("run recorded", "id", run.ID, "db", dbPath)
	return nil
}
