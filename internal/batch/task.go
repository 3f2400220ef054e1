package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/ligustah/slcflow/internal/tasklog"
)

// State is the lifecycle state of a task.
type State string

const (
	// StatePending means the task has not been started yet.
	StatePending State = "pending"
	// StateRunning means a worker is executing the task.
	StateRunning State = "running"
	// StateSucceeded means the action returned without error.
	StateSucceeded State = "succeeded"
	// StateSkipped means the task was enumerated as already done.
	StateSkipped State = "skipped"
	// StateFailed means the action failed, panicked, or never started
	// because the batch context ended.
	StateFailed State = "failed"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateSkipped || s == StateFailed
}

// Action performs one task. Progress and error detail go to log; the
// returned error marks the task failed.
type Action func(ctx context.Context, log *tasklog.Log) error

// Task is one independent unit of work. Tasks are not modified after
// enumeration.
type Task struct {
	// ID identifies the task in logs and summaries and names its log file.
	// IDs must be unique within a batch.
	ID string

	// Action is run by a worker unless SkipReason is set.
	Action Action

	// SkipReason marks a task whose output already exists. The executor
	// records it as skipped without opening a log or running Action.
	SkipReason string
}

// Outcome is the settled result of one task.
type Outcome struct {
	TaskID   string
	State    State
	Err      error
	LogPath  string
	Duration time.Duration
	Detail   string
}

// TaskError is the failure of a single task inside a batch.
type TaskError struct {
	TaskID  string
	LogPath string
	Err     error
}

func (e *TaskError) Error() string {
	if e.LogPath != "" {
		return fmt.Sprintf("task %s: %v (log: %s)", e.TaskID, e.Err, e.LogPath)
	}
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
