// Package progress provides live progress reporting for task batches.
//
// This package outputs human-readable progress lines to stderr, including
// completed, failed, running and pending task counts and bytes moved.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Label:      "orbits",
//	    TotalTasks: len(tasks),
//	    Workers:    workers,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Update as tasks run
//	reporter.TaskStarted()
//	reporter.TaskCompleted()
//
// # Output Format
//
//	[slcflow] orbits: 24 tasks | Workers: 4
//	[slcflow] Progress: 45.8% | 11 completed | 0 failed | 4 in-progress | 9 pending | 48.20 MB | 12s
//	[slcflow] Done: 24 completed | 0 failed | 105.14 MB in 31s
package progress
