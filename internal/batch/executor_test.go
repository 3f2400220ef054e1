package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/tasklog"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okAction(msg string) Action {
	return func(ctx context.Context, log *tasklog.Log) error {
		log.Printf("%s", msg)
		return nil
	}
}

func TestPolicySize(t *testing.T) {
	tests := []struct {
		policy    Policy
		available int
		want      int
	}{
		{Policy{Divisor: 4, Min: 2, Max: 8}, 16, 4},
		{Policy{Divisor: 4, Min: 2, Max: 8}, 2, 2},
		{Policy{Divisor: 4, Min: 2, Max: 8}, 64, 8},
		{Policy{Divisor: 4, Min: 2, Max: 8}, 0, 2},
		{Policy{Divisor: 2, Min: 1, Max: 8}, 1, 1},
		{Policy{Divisor: 2, Min: 1, Max: 8}, 12, 6},
		{Policy{Divisor: 0, Min: 0, Max: 0}, 5, 1},
		{Policy{Divisor: 1, Min: 3, Max: 2}, 10, 3},
	}

	for _, tt := range tests {
		if got := tt.policy.Size(tt.available); got != tt.want {
			t.Errorf("%+v.Size(%d) = %d, want %d", tt.policy, tt.available, got, tt.want)
		}
	}
}

func TestPolicyWorkersOverride(t *testing.T) {
	if got := TransferPolicy.Workers(13); got != 13 {
		t.Errorf("expected override 13, got %d", got)
	}
	got := TransferPolicy.Workers(0)
	if got < TransferPolicy.Min || got > TransferPolicy.Max {
		t.Errorf("Workers(0) = %d, outside [%d, %d]", got, TransferPolicy.Min, TransferPolicy.Max)
	}
}

func TestRunOneOutcomePerTask(t *testing.T) {
	dir := t.TempDir()
	var tasks []Task
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("task-%02d", i)
		tasks = append(tasks, Task{ID: id, Action: okAction(id)})
	}

	result, err := Run(context.Background(), tasks, Options{
		Name:    "test",
		Workers: 4,
		LogDir:  dir,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Outcomes) != len(tasks) {
		t.Fatalf("expected %d outcomes, got %d", len(tasks), len(result.Outcomes))
	}
	for i, o := range result.Outcomes {
		if o.TaskID != tasks[i].ID {
			t.Errorf("outcome %d has id %s, want %s", i, o.TaskID, tasks[i].ID)
		}
		if o.State != StateSucceeded {
			t.Errorf("outcome %s state %s, want succeeded", o.TaskID, o.State)
		}
		if o.LogPath != tasklog.Path(dir, o.TaskID) {
			t.Errorf("outcome %s log %s, want %s", o.TaskID, o.LogPath, tasklog.Path(dir, o.TaskID))
		}
		data, err := os.ReadFile(o.LogPath)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		if strings.TrimSpace(string(data)) != o.TaskID {
			t.Errorf("log for %s contains %q", o.TaskID, string(data))
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(tasks) {
		t.Errorf("expected %d log files, got %d", len(tasks), len(entries))
	}

	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if !result.Summary().OK() {
		t.Error("expected OK summary")
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	const workers = 3
	var running, peak atomic.Int32

	var tasks []Task
	for i := 0; i < 20; i++ {
		tasks = append(tasks, Task{
			ID: fmt.Sprintf("t%d", i),
			Action: func(ctx context.Context, log *tasklog.Log) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			},
		})
	}

	_, err := Run(context.Background(), tasks, Options{
		Workers: workers,
		LogDir:  t.TempDir(),
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p := peak.Load(); p > workers {
		t.Errorf("peak concurrency %d exceeds %d workers", p, workers)
	}
	if p := peak.Load(); p < 2 {
		t.Errorf("expected tasks to overlap, peak concurrency %d", p)
	}
}

func TestRunFaultIsolation(t *testing.T) {
	boom := errors.New("connection reset")
	var ran atomic.Int32

	tasks := []Task{
		{ID: "a", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }},
		{ID: "b", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return boom }},
		{ID: "c", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); panic("corrupt archive") }},
		{ID: "d", Action: func(ctx context.Context, log *tasklog.Log) error {
			ran.Add(1)
			time.Sleep(10 * time.Millisecond)
			return ctx.Err()
		}},
	}

	dir := t.TempDir()
	result, err := Run(context.Background(), tasks, Options{
		Name:    "isolation",
		Workers: 2,
		LogDir:  dir,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := ran.Load(); n != 4 {
		t.Errorf("expected all 4 actions to run, got %d", n)
	}

	want := []State{StateSucceeded, StateFailed, StateFailed, StateSucceeded}
	for i, o := range result.Outcomes {
		if o.State != want[i] {
			t.Errorf("task %s: state %s, want %s", o.TaskID, o.State, want[i])
		}
	}

	if !errors.Is(result.Outcomes[1].Err, boom) {
		t.Errorf("expected wrapped task error, got %v", result.Outcomes[1].Err)
	}
	var taskErr *TaskError
	if !errors.As(result.Outcomes[2].Err, &taskErr) {
		t.Fatalf("expected *TaskError, got %T", result.Outcomes[2].Err)
	}
	if taskErr.LogPath != tasklog.Path(dir, "c") {
		t.Errorf("expected log path in error, got %q", taskErr.LogPath)
	}

	data, err := os.ReadFile(tasklog.Path(dir, "c"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "panic: corrupt archive") {
		t.Errorf("panic detail missing from log:\n%s", data)
	}

	s := result.Summary()
	if s.OK() || s.Failed != 2 || s.Succeeded != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRunSkippedTasks(t *testing.T) {
	var ran atomic.Int32
	dir := t.TempDir()
	tasks := []Task{
		{ID: "done", SkipReason: "already extracted"},
		{ID: "todo", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }},
	}

	reporter := progress.NewReporter(progress.Options{TotalTasks: len(tasks), Output: io.Discard})
	result, err := Run(context.Background(), tasks, Options{
		LogDir:   dir,
		Logger:   quietLogger(),
		Progress: reporter,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Outcomes[0].State != StateSkipped || result.Outcomes[0].Detail != "already extracted" {
		t.Errorf("unexpected skipped outcome %+v", result.Outcomes[0])
	}
	if _, err := os.Stat(tasklog.Path(dir, "done")); !os.IsNotExist(err) {
		t.Errorf("expected no log for skipped task, stat err %v", err)
	}
	if ran.Load() != 1 {
		t.Errorf("expected 1 action run, got %d", ran.Load())
	}
	if completed, failed, _, _ := reporter.Snapshot(); completed != 2 || failed != 0 {
		t.Errorf("reporter counted %d completed, %d failed", completed, failed)
	}
	if !result.Summary().OK() {
		t.Error("skipped tasks must not fail the batch")
	}
}

func TestRunDuplicateIDs(t *testing.T) {
	var ran atomic.Int32
	action := func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }

	_, err := Run(context.Background(), []Task{
		{ID: "same", Action: action},
		{ID: "same", Action: action},
	}, Options{LogDir: t.TempDir(), Logger: quietLogger()})

	if !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("expected ErrDuplicateTask, got %v", err)
	}
	if ran.Load() != 0 {
		t.Error("no task may run when the batch is rejected")
	}
}

func TestRunLogFileCollision(t *testing.T) {
	var ran atomic.Int32
	action := func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }
	dir := t.TempDir()

	_, err := Run(context.Background(), []Task{
		{ID: "orbit/a", Action: action},
		{ID: "orbit_a", Action: action},
	}, Options{LogDir: dir, Logger: quietLogger()})

	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
	if !strings.Contains(err.Error(), "orbit_a.log") {
		t.Errorf("error should name the shared log file: %v", err)
	}
	if ran.Load() != 0 {
		t.Error("no task may run when the batch is rejected")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("expected no log files, got %d", len(entries))
	}
}

func TestRunRequiresLogDir(t *testing.T) {
	_, err := Run(context.Background(), []Task{{ID: "a", Action: okAction("a")}}, Options{Logger: quietLogger()})
	if err == nil {
		t.Error("expected error without log directory")
	}
}

func TestRunMissingAction(t *testing.T) {
	_, err := Run(context.Background(), []Task{{ID: "a"}}, Options{LogDir: t.TempDir(), Logger: quietLogger()})
	if err == nil {
		t.Error("expected error for task without action")
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := []Task{
		{ID: "a", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }},
		{ID: "b", Action: func(ctx context.Context, log *tasklog.Log) error { ran.Add(1); return nil }},
	}

	reporter := progress.NewReporter(progress.Options{TotalTasks: len(tasks), Output: io.Discard})
	result, err := Run(ctx, tasks, Options{Workers: 1, LogDir: t.TempDir(), Logger: quietLogger(), Progress: reporter})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran.Load() != 0 {
		t.Errorf("expected no actions after cancellation, got %d", ran.Load())
	}
	if completed, failed, inProgress, pending := reporter.Snapshot(); completed != 0 || failed != 2 || inProgress != 0 || pending != 0 {
		t.Errorf("reporter = completed %d, failed %d, running %d, pending %d; want 0/2/0/0",
			completed, failed, inProgress, pending)
	}
	for _, o := range result.Outcomes {
		if o.State != StateFailed || !errors.Is(o.Err, context.Canceled) {
			t.Errorf("task %s: got %s / %v", o.TaskID, o.State, o.Err)
		}
	}
}

func TestRunLogsThroughSlog(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &buf}, nil))

	_, err := Run(context.Background(), []Task{
		{ID: "bad", Action: func(ctx context.Context, log *tasklog.Log) error { return errors.New("nope") }},
	}, Options{Name: "orbits", LogDir: filepath.Join(t.TempDir(), "logs"), Logger: logger})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	for _, want := range []string{"batch started", "task failed", "task=bad", "batch=orbits", "batch finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
