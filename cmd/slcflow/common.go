package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ligustah/slcflow/internal/batch"
	"github.com/ligustah/slcflow/internal/bbox"
	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/telemetry"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	envFile    string
	logDir     string
	telemetry  bool
	verbose    bool

	workers  int
	progress bool
	force    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.envFile, "env-file", ".env", "Environment file loaded before reading SLCFLOW_* variables")
	fs.StringVar(&c.logDir, "log-dir", "", "Directory for log files (default depends on the command)")
	fs.BoolVar(&c.telemetry, "telemetry", false, "Export logs and task metrics with the OpenTelemetry stdout exporters")
	fs.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *commonFlags) registerBatch(fs *flag.FlagSet) {
	fs.IntVar(&c.workers, "workers", 0, "Number of parallel workers (default: clamp(cpus/4, 2, 8))")
	fs.BoolVar(&c.progress, "progress", false, "Show progress output")
}

func (c *commonFlags) registerForce(fs *flag.FlagSet, usage string) {
	fs.BoolVar(&c.force, "force", false, usage)
}

// loadConfig layers defaults, the config file, the .env file, SLCFLOW_*
// variables and finally the flag values in override.
func (c *commonFlags) loadConfig(override config.Config) (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(c.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override.Workers = c.workers
	override.Progress = c.progress
	override.Force = c.force
	override.Telemetry = c.telemetry
	override.LogDir = c.logDir
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session carries the per-invocation context, logger and telemetry.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	tel    *telemetry.Telemetry
	logger *slog.Logger
}

func startSession(cfg config.Config, verbose bool) (*session, error) {
	tel, err := telemetry.Setup(telemetry.Options{
		Enabled: cfg.Telemetry,
		Verbose: verbose,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[slcflow] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return &session{ctx: ctx, cancel: cancel, tel: tel, logger: tel.Logger}, nil
}

func (s *session) close() {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tel.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[slcflow] telemetry shutdown: %v\n", err)
	}
}

// newReporter starts a progress reporter when progress output is enabled.
// The caller stops it; a nil reporter is valid everywhere it is accepted.
func newReporter(cfg config.Config, label string, total, workers int) *progress.Reporter {
	if !cfg.Progress {
		return nil
	}
	r := progress.NewReporter(progress.Options{
		Label:      label,
		TotalTasks: total,
		Workers:    workers,
	})
	r.Start()
	return r
}

// finishBatch prints and records a batch result and returns the exit code.
func finishBatch(s *session, res *batch.Result) int {
	summary := res.Summary()
	summary.Print(os.Stderr)
	s.tel.RecordSummary(s.ctx, summary)

	if s.ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "[slcflow] Interrupted, re-run to process the remaining tasks")
		return ExitFailure
	}
	if !summary.OK() {
		fmt.Fprintf(os.Stderr, "[slcflow] %d of %d tasks failed, see the task logs in the summary\n", summary.Failed, summary.Total)
		return ExitFailure
	}
	fmt.Fprintf(os.Stderr, "[slcflow] %s finished in %s\n", res.Name, progress.FormatDuration(res.Elapsed))
	return ExitSuccess
}

// parseFlags parses args. ok is false when the command should return code
// immediately, which is the case for -h and for invalid flags.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess, false
		}
		return ExitFailure, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return ExitFailure, false
	}
	return 0, true
}

// requireFlags reports the named flags that were not set on the command line.
func requireFlags(fs *flag.FlagSet, names ...string) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var missing []string
	for _, n := range names {
		if !set[n] {
			missing = append(missing, "-"+n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %v", missing)
	}
	return nil
}

// bboxFlags registers the four bounding box flags.
type bboxFlags struct {
	box bbox.BBox
}

func (b *bboxFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&b.box.LatMin, "lat-min", 0, "Minimum latitude (required)")
	fs.Float64Var(&b.box.LatMax, "lat-max", 0, "Maximum latitude (required)")
	fs.Float64Var(&b.box.LonMin, "lon-min", 0, "Minimum longitude (required)")
	fs.Float64Var(&b.box.LonMax, "lon-max", 0, "Maximum longitude (required)")
}

var bboxFlagNames = []string{"lat-min", "lat-max", "lon-min", "lon-max"}

// defaultLogDir is cfg.LogDir or <dir>/logs.
func defaultLogDir(cfg config.Config, dir string) string {
	if cfg.LogDir != "" {
		return cfg.LogDir
	}
	return filepath.Join(dir, "logs")
}

func failf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return ExitFailure
}
