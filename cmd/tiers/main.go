package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/tiers/internal/config"
	"github.com/bamsammich/tiers/internal/engine"
	"github.com/bamsammich/tiers/internal/event"
	"github.com/bamsammich/tiers/internal/logging"
	"github.com/bamsammich/tiers/internal/platform"
	"github.com/bamsammich/tiers/internal/report"
	"github.com/bamsammich/tiers/internal/schedule"
	"github.com/bamsammich/tiers/internal/stats"
	"github.com/bamsammich/tiers/internal/units"
)

var version = "dev"

func main() {
	os.Exit(run())
}

type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// sizeFlag is a pflag.Value accepting human sizes such as "100M".
type sizeFlag struct {
	n *int64
}

var _ pflag.Value = (*sizeFlag)(nil)

func (f *sizeFlag) String() string {
	if f.n == nil || *f.n == 0 {
		return ""
	}
	return units.FormatBytes(*f.n)
}

func (*sizeFlag) Type() string { return "size" }

func (f *sizeFlag) Set(val string) error {
	n, err := units.ParseSize(val)
	if err != nil {
		return err
	}
	*f.n = n
	return nil
}

// options holds flags shared by every subcommand.
type options struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	logFile    string
	verbose    int
	quiet      bool
	noColor    bool
}

func run() int {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "tiers",
		Short:         "Rebalance files across ordered storage tiers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/tiers/config.toml)")
	pf.CountVarP(&opts.verbose, "verbose", "v", "verbose output (repeat for debug)")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")
	pf.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newRunCmd(opts), newPlanCmd(opts), newScheduleCmd(opts), newDocsCmd())
	return rootCmd
}

func newRunCmd(opts *options) *cobra.Command {
	var (
		iterations int
		verify     bool
		dryRun     bool
		bwLimit    int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan every tier, plan placement and move files until balanced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeLog() //nolint:errcheck // log file close on exit

			if err := platform.SetPriority(cfg.ProcessPriority); err != nil {
				logger.Warn("failed to set process priority", "priority", cfg.ProcessPriority, "error", err)
			}

			ecfg, err := engineConfig(cfg)
			if err != nil {
				return &exitError{code: 2}
			}
			if cmd.Flags().Changed("iterations") {
				ecfg.IterationLimit = iterations
			}
			if cmd.Flags().Changed("verify") {
				ecfg.Verify = verify
			}
			if cmd.Flags().Changed("bwlimit") {
				ecfg.BWLimit = bwLimit
			}
			ecfg.DryRun = dryRun

			if dryRun {
				logger.Info("dry run mode")
			}

			res := execute(cmd.Context(), ecfg, logger)

			r := opts.reporter(dryRun)
			if !opts.quiet {
				r.Tiers(res.Tiers)
				if dryRun {
					r.Plan(res.Plan, res.Tiers)
				} else {
					r.Summary(res)
				}
			}

			if sched, err := schedule.Parse(cfg.RunInterval); err == nil {
				logger.Info("next scheduled run", "interval", sched.Spec, "at", sched.Next(time.Now()))
			}
			return exitFor(res, logger)
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterationLimit, "maximum mover passes")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify staged copies with BLAKE3 before commit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "scan and plan without moving anything")
	cmd.Flags().Var(&sizeFlag{n: &bwLimit}, "bwlimit", "bandwidth limit (e.g. 100M, 1G)")
	return cmd
}

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show where every file would be placed without moving anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeLog() //nolint:errcheck // log file close on exit

			ecfg, err := engineConfig(cfg)
			if err != nil {
				return &exitError{code: 2}
			}
			ecfg.DryRun = true

			res := execute(cmd.Context(), ecfg, logger)
			if res.Err == nil {
				r := opts.reporter(opts.verbose > 0)
				r.Tiers(res.Tiers)
				r.Plan(res.Plan, res.Tiers)
			}
			return exitFor(res, logger)
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the next run times for the configured run interval",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, _, closeLog, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeLog() //nolint:errcheck // log file close on exit

			sched, err := schedule.Parse(cfg.RunInterval)
			if err != nil {
				return err
			}
			opts.reporter(false).Schedule(sched.Spec, sched.Upcoming(time.Now(), count))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of upcoming runs to print")
	return cmd
}

// setup loads the config file and builds the process logger.
func (o *options) setup() (config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	switch {
	case o.quiet:
		level = slog.LevelError
	case o.verbose >= 2:
		level = slog.LevelDebug
	case o.verbose == 1:
		level = min(level, slog.LevelInfo)
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Stderr:  o.stderr,
		LogFile: o.logFile,
		Level:   level,
	})
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

func (o *options) reporter(verbose bool) *report.Reporter {
	useColor := !o.noColor
	if f, ok := o.stdout.(*os.File); !ok || !report.IsTTY(f.Fd()) {
		useColor = false
	}
	return report.New(o.stdout, useColor, verbose || o.verbose > 0)
}

func engineConfig(cfg config.Config) (engine.Config, error) {
	plans, err := cfg.FolderPlans()
	if err != nil {
		slog.Error("invalid folder rules", "error", err)
		return engine.Config{}, err
	}
	return engine.Config{
		StagingDir:     cfg.TemporaryPath,
		Tiers:          cfg.TierConfigs(),
		Plans:          plans,
		IterationLimit: cfg.IterationLimit,
		BWLimit:        int64(cfg.BWLimit),
		Verify:         cfg.Verify,
	}, nil
}

// execute runs the engine with signal handling, logging every event.
func execute(parent context.Context, ecfg engine.Config, logger *slog.Logger) engine.Result {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan event.Event, 256)
	ecfg.Events = events
	ecfg.Stats = stats.NewCollector()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logging.Drain(events, logger)
	}()

	logger.Debug("starting run",
		"tiers", len(ecfg.Tiers),
		"plans", len(ecfg.Plans),
		"iterations", ecfg.IterationLimit,
		"dry_run", ecfg.DryRun,
	)

	res := engine.Run(ctx, ecfg)
	close(events)
	wg.Wait()
	return res
}

// exitFor maps a run result to the process exit code. Partial convergence
// is success.
func exitFor(res engine.Result, logger *slog.Logger) error {
	if res.Err == nil {
		return nil
	}
	if errors.Is(res.Err, context.Canceled) {
		logger.Warn("run interrupted", "error", res.Err)
		return &exitError{code: 1}
	}
	logger.Error("run failed", "error", res.Err)
	return &exitError{code: 2}
}
