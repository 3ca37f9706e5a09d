package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the most recent run
	List     bool   // list runs instead of dumping one
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run         journal.RunRecord          `json:"run"`
	Corrections []journal.CorrectionRecord `json:"corrections"`
	Passes      []journal.PassRecord       `json:"passes"`
	Stats       TraceStats                 `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Corrections      int `json:"corrections"`
	StaleCorrections int `json:"stale_corrections"`
	Passes           int `json:"passes"`
	ClampedPasses    int `json:"clamped_passes"`
	ResimulatedTicks int `json:"resimulated_ticks"`
}

// RunListResult holds the run listing output.
type RunListResult struct {
	Runs []journal.RunRecord `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded reconciliation runs",
		Long: `Inspect the reconciliation journal recorded by run --db.

Shows the corrections a run received and the reconciliation passes
they triggered, in the order they happened.

Examples:
  rewind trace --db ./rewind.db --list
  rewind trace --db ./rewind.db
  rewind trace --db ./rewind.db --run 0199a7c2-5a31-7cc3-9f0e-2b1d4e8f6a01
  rewind trace --db ./rewind.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (default: most recent)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	runs, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.List {
		return outputRunList(opts, cmd, runs)
	}

	run, err := selectRun(runs, opts.RunID)
	if err != nil {
		return err
	}

	corrections, err := j.Corrections(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read corrections", err)
	}
	passes, err := j.Passes(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read passes", err)
	}

	result := TraceResult{
		Run:         run,
		Corrections: corrections,
		Passes:      passes,
		Stats:       buildTraceStats(corrections, passes),
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
		return formatter.Success(result)
	}

	return outputTraceText(cmd, result)
}

// selectRun picks the run to trace: an explicit --run ID, or the most
// recent run when none was given.
func selectRun(runs []journal.RunRecord, runID string) (journal.RunRecord, error) {
	if len(runs) == 0 {
		return journal.RunRecord{}, NewExitError(ExitCommandError, "journal contains no runs")
	}

	if runID == "" {
		// Runs are ordered oldest first.
		return runs[len(runs)-1], nil
	}

	for _, run := range runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return journal.RunRecord{}, NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
}

// buildTraceStats summarizes a run's corrections and passes.
func buildTraceStats(corrections []journal.CorrectionRecord, passes []journal.PassRecord) TraceStats {
	stats := TraceStats{
		Corrections: len(corrections),
		Passes:      len(passes),
	}
	for _, c := range corrections {
		if c.Stale {
			stats.StaleCorrections++
		}
	}
	for _, p := range passes {
		if p.Clamped {
			stats.ClampedPasses++
		}
		stats.ResimulatedTicks += p.Steps
	}
	return stats
}

// outputRunList outputs the recorded runs.
func outputRunList(opts *TraceOptions, cmd *cobra.Command, runs []journal.RunRecord) error {
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
		return formatter.Success(RunListResult{Runs: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "(no runs recorded)")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %s\n", run.ID, run.StartedAt, run.Scenario)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Run.Scenario)
	fmt.Fprintf(w, "Started: %s\n", result.Run.StartedAt)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Corrections ===")
	if len(result.Corrections) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, c := range result.Corrections {
			line := fmt.Sprintf("  [%d] tick %d entity %d {%s}", c.Seq, c.Tick, c.Entity, strings.Join(c.Components, ", "))
			if c.Stale {
				line += " (stale)"
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Passes ===")
	if len(result.Passes) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, p := range result.Passes {
			line := fmt.Sprintf("  [%d] requested %d -> target %d, %d step(s)", p.Seq, p.Requested, p.Target, p.Steps)
			if p.Clamped {
				line += " (clamped)"
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Corrections:       %d\n", result.Stats.Corrections)
	fmt.Fprintf(w, "  Stale corrections: %d\n", result.Stats.StaleCorrections)
	fmt.Fprintf(w, "  Passes:            %d\n", result.Stats.Passes)
	fmt.Fprintf(w, "  Clamped passes:    %d\n", result.Stats.ClampedPasses)
	fmt.Fprintf(w, "  Resimulated ticks: %d\n", result.Stats.ResimulatedTicks)

	return nil
}
