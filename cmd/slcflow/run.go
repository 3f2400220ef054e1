package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/stack"
)

// runSteps executes the generated run files one after another.
func runSteps(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)
	common.registerForce(fs, "Continue when the number of run files differs from -expected-files")
	runFilesDir := fs.String("run-files-dir", "", "Directory containing run_* files (required)")
	cores := fs.Int("cores", 0, "CPU cores passed to run.py (default: clamp(cpus/2, 1, 8))")
	expected := fs.Int("expected-files", 0, "Expected number of run files (default: 16)")
	fs.BoolVar(&common.progress, "progress", false, "Show progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slcflow run [options]

Execute run_01 through run_NN with run.py in order, stopping at the first
failing step. Each step logs to <run-files-dir>/logs/log_runNN.log.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := requireFlags(fs, "run-files-dir"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitFailure
	}
	if *cores < 0 || *expected < 0 {
		return failf("-cores and -expected-files must not be negative")
	}

	cfg, err := common.loadConfig(config.Config{
		Stack: config.StackConfig{
			ExpectedSteps: *expected,
			Cores:         *cores,
		},
	})
	if err != nil {
		return failf("%v", err)
	}

	dir, err := filepath.Abs(*runFilesDir)
	if err != nil {
		return failf("resolve %s: %v", *runFilesDir, err)
	}
	files, err := stack.FindRunFiles(dir)
	if err != nil {
		return failf("%v", err)
	}

	coreCount := cfg.StackCores()
	fmt.Fprintln(os.Stderr, "[slcflow] Stack processing parameters:")
	fmt.Fprintf(os.Stderr, "  Run files directory: %s\n", dir)
	fmt.Fprintf(os.Stderr, "  CPU cores:           %d\n", coreCount)
	fmt.Fprintf(os.Stderr, "  Expected run files:  %d\n", cfg.Stack.ExpectedSteps)
	fmt.Fprintf(os.Stderr, "  Found run files:     %d\n", len(files))

	plan, err := stack.NewPlan(files, cfg.Stack.ExpectedSteps, cfg.Force)
	if errors.Is(err, stack.ErrCountMismatch) {
		fmt.Fprintf(os.Stderr, "[slcflow] Expected %d run files but found %d\n", cfg.Stack.ExpectedSteps, len(files))
		fmt.Fprintln(os.Stderr, "[slcflow] Re-run with -force to process the run files that were found")
		return ExitFailure
	}
	if err != nil {
		return failf("%v", err)
	}
	for _, n := range plan.Missing {
		fmt.Fprintf(os.Stderr, "[slcflow] Warning: %s script not found, skipping\n", stack.StepID(n))
	}

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = filepath.Join(dir, stack.LogsDir)
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return failf("create log directory: %v", err)
	}

	s, err := startSession(cfg, common.verbose)
	if err != nil {
		return failf("%v", err)
	}
	defer s.close()

	reporter := newReporter(cfg, "Running steps", len(plan.Steps), 1)
	res, err := stack.Run(s.ctx, plan, stack.Options{
		Exe:      cfg.Tools.Run,
		Cores:    coreCount,
		LogDir:   logDir,
		Logger:   s.logger,
		Progress: reporter,
	})
	if reporter != nil {
		reporter.Stop()
	}

	res.Print(os.Stderr)
	fmt.Fprintf(os.Stderr, "  Logs directory: %s\n", logDir)

	failed := 0
	if res.Failed != nil {
		failed = 1
	}
	s.tel.RecordTasks(s.ctx, "run", "succeeded", res.Processed)
	s.tel.RecordTasks(s.ctx, "run", "failed", failed)

	if err != nil {
		return failf("%v", err)
	}
	if !res.OK() {
		return ExitFailure
	}
	return ExitSuccess
}
