package stack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ligustah/slcflow/internal/batch"
	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/tools"
)

// Options configures a stack run.
type Options struct {
	// Exe is the step executable. Default: run.py
	Exe string

	// Cores is passed to every step. Default: batch.CorePolicy.Workers(0)
	Cores int

	// LogDir receives one log_runNN.log per executed step.
	LogDir string

	// Runner executes the step commands. Default: &tools.ExecRunner{}
	Runner tools.Runner

	// Logger receives step events. Default: slog.Default().
	Logger *slog.Logger

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// StepError is the failure of one step. Steps after it were not run.
type StepError struct {
	Step    Step
	LogPath string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s (%s): %v (log: %s)", e.Step.ID(), e.Step.Name(), e.Err, e.LogPath)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result describes a finished or aborted stack run.
type Result struct {
	Plan      *Plan
	Processed int
	Failed    *StepError
	Elapsed   time.Duration
}

// OK reports whether every planned step ran successfully.
func (r *Result) OK() bool {
	return r.Failed == nil && r.Processed == len(r.Plan.Steps)
}

// Run executes the plan's steps in order and stops at the first failure.
// The returned error is the *StepError of the failed step, or the context
// error when ctx ended between steps.
func Run(ctx context.Context, plan *Plan, opts Options) (*Result, error) {
	if opts.Exe == "" {
		opts.Exe = tools.DefaultRun
	}
	if opts.Cores <= 0 {
		opts.Cores = batch.CorePolicy.Workers(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Runner == nil {
		opts.Runner = &tools.ExecRunner{Logger: opts.Logger}
	}

	res := &Result{Plan: plan}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	total := len(plan.Steps)
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		logPath := filepath.Join(opts.LogDir, step.LogName())
		opts.Logger.Info("running step",
			slog.String("step", step.ID()),
			slog.String("file", step.Name()),
			slog.Int("index", i+1),
			slog.Int("total", total),
			slog.Int("cores", opts.Cores),
		)
		if opts.Progress != nil {
			opts.Progress.TaskStarted()
		}

		stepStart := time.Now()
		err := opts.Runner.Run(ctx, tools.RunStepCommand(opts.Exe, step.Path, opts.Cores, logPath))
		if err != nil {
			if opts.Progress != nil {
				opts.Progress.TaskFailed()
			}
			res.Failed = &StepError{Step: step, LogPath: logPath, Err: err}
			opts.Logger.Error("step failed",
				slog.String("step", step.ID()),
				slog.String("log", logPath),
				slog.Any("error", err),
			)
			return res, res.Failed
		}

		res.Processed++
		if opts.Progress != nil {
			opts.Progress.TaskCompleted()
		}
		opts.Logger.Info("step finished",
			slog.String("step", step.ID()),
			slog.Duration("elapsed", time.Since(stepStart)),
		)
	}
	return res, nil
}

// Print writes a human-readable summary of the run.
func (r *Result) Print(w io.Writer) {
	planned := len(r.Plan.Steps)
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Stack processing summary:")
	fmt.Fprintf(w, "  Run files found:     %d (expected %d)\n", r.Plan.Found, r.Plan.Expected)
	fmt.Fprintf(w, "  Run files processed: %d/%d\n", r.Processed, planned)
	if planned > 0 {
		fmt.Fprintf(w, "  Success rate:        %.1f%%\n", float64(r.Processed)/float64(planned)*100)
	}
	if len(r.Plan.Missing) > 0 {
		ids := make([]string, len(r.Plan.Missing))
		for i, n := range r.Plan.Missing {
			ids[i] = StepID(n)
		}
		fmt.Fprintf(w, "  Missing steps:       %s\n", strings.Join(ids, ", "))
	}
	for _, f := range r.Plan.Extra {
		fmt.Fprintf(w, "  Not run:             %s\n", filepath.Base(f))
	}
	if r.Failed != nil {
		fmt.Fprintf(w, "  Failed step:         %s (log: %s)\n", r.Failed.Step.Name(), r.Failed.LogPath)
	}
	fmt.Fprintf(w, "  Elapsed:             %s\n", progress.FormatDuration(r.Elapsed))
	fmt.Fprintln(w, rule)
}
