package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Label names the batch in the header, e.g. "unzip" or "orbits".
	Label string

	// TotalTasks is the number of tasks in the batch.
	TotalTasks int

	// Workers is the number of parallel workers.
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 2s
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress information for a task batch.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	completed  atomic.Int32
	failed     atomic.Int32
	inProgress atomic.Int32
	bytes      atomic.Int64
	startTime  time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 2 * time.Second
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start prints the header and begins periodic updates.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.startTime = time.Now()

	fmt.Fprintf(r.opts.Output, "[slcflow] %s: %d tasks | Workers: %d\n",
		r.opts.Label, r.opts.TotalTasks, r.opts.Workers)

	go r.updateLoop()
}

// Stop prints the final status and stops updates. It waits for the final
// line to be written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// TaskStarted marks a task as in progress.
func (r *Reporter) TaskStarted() {
	r.inProgress.Add(1)
}

// TaskCompleted marks a task as completed.
func (r *Reporter) TaskCompleted() {
	r.completed.Add(1)
	r.inProgress.Add(-1)
}

// TaskFailed marks a task as failed.
func (r *Reporter) TaskFailed() {
	r.failed.Add(1)
	r.inProgress.Add(-1)
}

// TaskAborted counts a task that failed without being started.
func (r *Reporter) TaskAborted() {
	r.failed.Add(1)
}

// TaskSkipped counts a task that needed no work.
func (r *Reporter) TaskSkipped() {
	r.completed.Add(1)
}

// AddBytes records transferred or extracted bytes.
func (r *Reporter) AddBytes(n int64) {
	r.bytes.Add(n)
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() (completed, failed, inProgress, pending int) {
	completed = int(r.completed.Load())
	failed = int(r.failed.Load())
	inProgress = int(r.inProgress.Load())
	pending = r.opts.TotalTasks - completed - failed - inProgress
	if pending < 0 {
		pending = 0
	}
	return completed, failed, inProgress, pending
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	completed, failed, inProgress, pending := r.Snapshot()

	var percent float64
	if r.opts.TotalTasks > 0 {
		percent = float64(completed+failed) / float64(r.opts.TotalTasks) * 100
	}

	fmt.Fprintf(r.opts.Output, "[slcflow] Progress: %.1f%% | %d completed | %d failed | %d in-progress | %d pending | %s | %s\n",
		percent,
		completed,
		failed,
		inProgress,
		pending,
		formatBytes(r.bytes.Load()),
		formatDuration(time.Since(r.startTime)),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	completed, failed, _, _ := r.Snapshot()
	duration := time.Since(r.startTime)

	fmt.Fprintf(r.opts.Output, "[slcflow] Done: %d completed | %d failed | %s in %s\n",
		completed,
		failed,
		formatBytes(r.bytes.Load()),
		formatDuration(duration),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// FormatDuration is exported for use by other packages.
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}
