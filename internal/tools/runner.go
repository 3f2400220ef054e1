package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrToolMissing is returned when an executable is not on PATH.
	ErrToolMissing = errors.New("tool not found")

	// ErrToolFailed is matched by every *ExitError.
	ErrToolFailed = errors.New("tool failed")
)

// Command is one invocation of an external processor.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// LogPath receives stdout and stderr. Empty means the runner's Output.
	LogPath string
}

// String renders the command line with arguments containing spaces quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// ExitError reports a tool that ran and exited with a non-zero status.
type ExitError struct {
	Name    string
	Code    int
	LogPath string
}

func (e *ExitError) Error() string {
	if e.LogPath != "" {
		return fmt.Sprintf("%s exited with status %d (see %s)", e.Name, e.Code, e.LogPath)
	}
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) Is(target error) bool { return target == ErrToolFailed }

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Output receives process output for commands without a LogPath.
	// Default: os.Stderr
	Output io.Writer

	// Logger receives start and finish events. Default: slog.Default().
	Logger *slog.Logger
}

// Run starts the command and waits for it. The process is killed when ctx
// is cancelled.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path, err := exec.LookPath(c.Name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, c.Name)
	}

	var out io.Writer = os.Stderr
	if r.Output != nil {
		out = r.Output
	}
	if c.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogPath), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.Create(c.LogPath)
		if err != nil {
			return fmt.Errorf("create log %s: %w", c.LogPath, err)
		}
		defer f.Close()
		out = f
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = 10 * time.Second

	logger.Info("running tool",
		slog.String("command", c.String()),
		slog.String("dir", c.Dir),
		slog.String("log", c.LogPath),
	)
	start := time.Now()

	err = cmd.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Name: c.Name, Code: exitErr.ExitCode(), LogPath: c.LogPath}
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", c.Name, err)
	}

	logger.Info("tool finished", slog.String("tool", c.Name), slog.Duration("elapsed", time.Since(start)))
	return nil
}
