// Package tasklog writes one log file per task.
//
// A Log is owned by exactly one task for the duration of its execution. File
// names derive only from the task id through FileName, which is not
// injective; callers running tasks together must reject ids with the same
// FileName.
package tasklog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Log is an append-only log file for a single task. It is safe for
// concurrent use, which lets a subprocess write stdout and stderr into it.
type Log struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// FileName returns the log file name for a task id.
func FileName(id string) string {
	return sanitize(id) + ".log"
}

// Path returns the log path for a task id inside dir.
func Path(dir, id string) string {
	return filepath.Join(dir, FileName(id))
}

// Open creates dir if needed and creates or truncates the log for id.
func Open(dir, id string) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("tasklog: create log directory: %w", err)
	}
	path := Path(dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("tasklog: open %s: %w", path, err)
	}
	return &Log{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path of the log.
func (l *Log) Path() string { return l.path }

// Write implements io.Writer.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, os.ErrClosed
	}
	return l.w.Write(p)
}

// Printf appends a formatted line.
func (l *Log) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	l.Write([]byte(line))
}

// Progress appends a "[   i/total] msg" line.
func (l *Log) Progress(i, total int, msg string) {
	l.Printf("\t[%4d/%d] %s", i, total, msg)
}

// Fail appends the error detail.
func (l *Log) Fail(err error) {
	l.Printf("\nERROR %s: %v", time.Now().Format(time.RFC3339), err)
}

// Close flushes and closes the file. Calling Close more than once is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	flushErr := l.w.Flush()
	closeErr := l.f.Close()
	if flushErr != nil {
		return fmt.Errorf("tasklog: flush %s: %w", l.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("tasklog: close %s: %w", l.path, closeErr)
	}
	return nil
}

// sanitize maps an id to a single safe path element.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "task"
	}
	return s
}
