package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/harness"
	"github.com/roach88/rewind/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	Scenario    string        `json:"scenario"`
	Pass        bool          `json:"pass"`
	Errors      []string      `json:"errors,omitempty"`
	Final       harness.Final `json:"final"`
	JournalRun  string        `json:"journal_run,omitempty"`
	TraceEvents int           `json:"trace_events"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a reconciliation scenario",
		Long: `Execute a reconciliation scenario against the car world.

The scenario is schema-validated, executed against a fresh reconciler, and
its expect clause evaluated. With --db, every correction and pass is
journaled to a SQLite database for later inspection with 'rewind trace'.

Example:
  rewind run scenario.yaml
  rewind run scenario.yaml --db ./rewind.db --verbose
  rewind run scenario.yaml --config rewind.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML configuration file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	log := newLogger(cfg.Log, opts.Verbose)

	// Scenarios that omit frames or repeat_horizon fall back to the
	// configured simulation values.
	scenario, err := harness.LoadScenarioWithDefaults(path, harness.ScenarioDefaults{
		Frames:        cfg.Simulation.Frames,
		RepeatHorizon: cfg.Simulation.RepeatHorizon,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.RunOption{harness.WithLogger(log)}

	// --db overrides the configured journal
	dbPath := opts.Database
	if dbPath == "" && cfg.Journal.Enabled {
		dbPath = cfg.Journal.Path
	}
	var journalRunID string
	if dbPath != "" {
		j, err := journal.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()

		run, err := j.Begin(context.Background(), scenario.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin journal run", err)
		}
		journalRunID = run.ID()
		runOpts = append(runOpts, harness.WithRecorder(run))
		log.Info("journaling run", "db", dbPath, "run", journalRunID)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}
	log.Debug("scenario complete",
		"scenario", result.Scenario,
		"ticks", uint32(result.Final.Tick),
		"simulated_seconds", float64(result.Final.Tick)/float64(cfg.Simulation.TickRate))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	summary := RunSummary{
		Scenario:    result.Scenario,
		Pass:        result.Pass,
		Errors:      result.Errors,
		Final:       result.Final,
		JournalRun:  journalRunID,
		TraceEvents: len(result.Trace),
	}

	if opts.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		printRunSummary(formatter, &summary)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed", result.Scenario))
	}
	return nil
}

func printRunSummary(f *OutputFormatter, s *RunSummary) {
	status := "PASS"
	if !s.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(f.Writer, "%s  %s (tick %d)\n", status, s.Scenario, uint32(s.Final.Tick))
	for _, c := range s.Final.Cars {
		fmt.Fprintf(f.Writer, "  car %d: pos=%v vel=%v\n", c.Entity, c.Pos, c.Vel)
	}
	d := s.Final.Diagnostics
	fmt.Fprintf(f.Writer, "  passes=%d resimulated=%d clamped=%d stale=%d fast_forwards=%d input_misses=%d\n",
		d.Reconciliations, d.ResimulatedTicks, d.ClampedCorrections,
		d.StaleCorrections, d.FastForwards, s.Final.InputMisses)
	for _, e := range s.Errors {
		fmt.Fprintf(f.Writer, "  expect: %s\n", e)
	}
	if s.JournalRun != "" {
		fmt.Fprintf(f.Writer, "  journal run: %s\n", s.JournalRun)
	}
}

// newLogger builds the process logger from the log section, with --verbose
// forcing debug level.
func newLogger(section config.LogSection, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch section.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if section.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}
