package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/tasklog"
)

// ErrDuplicateTask is returned when two tasks in a batch share an ID or
// would write the same log file.
var ErrDuplicateTask = errors.New("batch: duplicate task id")

// Options configures a batch run.
type Options struct {
	// Name labels the batch in logs and summaries.
	Name string

	// Workers is the maximum number of tasks running at once.
	// Default: TransferPolicy.Workers(0)
	Workers int

	// LogDir receives one log file per executed task.
	LogDir string

	// Logger receives task lifecycle events. Default: slog.Default().
	Logger *slog.Logger

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// Result holds every outcome of a batch run, in task order.
type Result struct {
	RunID    string
	Name     string
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Summary aggregates the outcomes.
func (r *Result) Summary() Summary {
	return Summarize(r.Name, r.Outcomes)
}

// Run executes every task with at most opts.Workers running concurrently and
// returns after all of them have settled. A failing or panicking action only
// fails its own task. Tasks not yet started when ctx ends are reported as
// failed with the context error.
//
// The returned error is non-nil only when the batch could not start; in that
// case no task has run.
func Run(ctx context.Context, tasks []Task, opts Options) (*Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = TransferPolicy.Workers(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LogDir == "" {
		return nil, errors.New("batch: log directory is required")
	}

	seen := make(map[string]string, len(tasks))
	for _, t := range tasks {
		name := tasklog.FileName(t.ID)
		if prev, ok := seen[name]; ok {
			if prev == t.ID {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
			}
			return nil, fmt.Errorf("%w: %s and %s share log file %s", ErrDuplicateTask, prev, t.ID, name)
		}
		seen[name] = t.ID
		if t.Action == nil && t.SkipReason == "" {
			return nil, fmt.Errorf("batch: task %s has no action", t.ID)
		}
	}

	result := &Result{
		RunID:    uuid.NewString(),
		Name:     opts.Name,
		Outcomes: make([]Outcome, len(tasks)),
	}
	logger := opts.Logger.With(
		slog.String("batch", opts.Name),
		slog.String("run_id", result.RunID),
	)
	logger.Info("batch started", slog.Int("tasks", len(tasks)), slog.Int("workers", opts.Workers))

	start := time.Now()

	// Worker errors are never returned to the group, so one failure cannot
	// cancel its siblings. Each worker writes only its own outcome slot.
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for i, t := range tasks {
		if t.SkipReason != "" {
			result.Outcomes[i] = Outcome{TaskID: t.ID, State: StateSkipped, Detail: t.SkipReason}
			if opts.Progress != nil {
				opts.Progress.TaskSkipped()
			}
			logger.Info("task skipped", slog.String("task", t.ID), slog.String("reason", t.SkipReason))
			continue
		}

		g.Go(func() error {
			result.Outcomes[i] = runTask(ctx, t, opts, logger)
			return nil
		})
	}

	g.Wait()
	result.Elapsed = time.Since(start)

	s := result.Summary()
	logger.Info("batch finished",
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// runTask executes one task inside a worker.
func runTask(ctx context.Context, t Task, opts Options, logger *slog.Logger) Outcome {
	out := Outcome{TaskID: t.ID, State: StateRunning}

	if err := ctx.Err(); err != nil {
		out.State = StateFailed
		out.Err = &TaskError{TaskID: t.ID, Err: err}
		if opts.Progress != nil {
			opts.Progress.TaskAborted()
		}
		return out
	}

	start := time.Now()
	if opts.Progress != nil {
		opts.Progress.TaskStarted()
	}

	err := execute(ctx, t, opts.LogDir, &out)
	out.Duration = time.Since(start)

	if err != nil {
		out.State = StateFailed
		out.Err = &TaskError{TaskID: t.ID, LogPath: out.LogPath, Err: err}
		if opts.Progress != nil {
			opts.Progress.TaskFailed()
		}
		logger.Error("task failed",
			slog.String("task", t.ID),
			slog.String("log", out.LogPath),
			slog.Duration("duration", out.Duration),
			slog.Any("error", err),
		)
		return out
	}

	out.State = StateSucceeded
	if opts.Progress != nil {
		opts.Progress.TaskCompleted()
	}
	logger.Debug("task succeeded", slog.String("task", t.ID), slog.Duration("duration", out.Duration))
	return out
}

// execute opens the task log, runs the action and always closes the log.
func execute(ctx context.Context, t Task, logDir string, out *Outcome) (err error) {
	log, err := tasklog.Open(logDir, t.ID)
	if err != nil {
		return err
	}
	out.LogPath = log.Path()

	defer func() {
		if err != nil {
			log.Fail(err)
		}
		if closeErr := log.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return invoke(ctx, t.Action, log)
}

// invoke runs the action and converts a panic into an error.
func invoke(ctx context.Context, action Action, log *tasklog.Log) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return action(ctx, log)
}
