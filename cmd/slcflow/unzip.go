package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ligustah/slcflow/internal/batch"
	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/slc"
)

// runUnzip extracts every S1*.zip archive into its SAFE directory.
func runUnzip(args []string) int {
	fs := flag.NewFlagSet("unzip", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)
	common.registerBatch(fs)
	dataDir := fs.String("data-dir", "", "Directory containing S1*.zip archives (required)")
	slcDir := fs.String("slc-dir", "", "Target directory for the SAFE directories (required)")
	quiet := fs.Bool("quiet", false, "Do not list the archives found")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slcflow unzip [options]

Extract Sentinel-1 SLC archives in parallel. Archives whose SAFE directory
already exists in -slc-dir are skipped. Each extraction logs to
<log-dir>/unzip_<product>.log (default log dir: <slc-dir>/logs).

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := requireFlags(fs, "data-dir", "slc-dir"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitFailure
	}

	cfg, err := common.loadConfig(config.Config{})
	if err != nil {
		return failf("%v", err)
	}

	archives, err := slc.FindArchives(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No Sentinel-1 zip files found in %s\n", *dataDir)
		fmt.Fprintln(os.Stderr, "Expected file pattern: S1*.zip")
		return ExitFailure
	}

	archives, duplicates := slc.UniqueProducts(archives)
	for _, d := range duplicates {
		fmt.Fprintf(os.Stderr, "[slcflow] Warning: skipping %s, another archive already provides %s\n", filepath.Base(d.Path), d.Product)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "[slcflow] Found %d Sentinel-1 zip files:\n", len(archives))
		for i, a := range archives {
			fmt.Fprintf(os.Stderr, "  %2d. %s\n", i+1, filepath.Base(a.Path))
		}
	}

	if err := os.MkdirAll(*slcDir, 0755); err != nil {
		return failf("create %s: %v", *slcDir, err)
	}

	s, err := startSession(cfg, common.verbose)
	if err != nil {
		return failf("%v", err)
	}
	defer s.close()

	workers := cfg.TransferWorkers()
	reporter := newReporter(cfg, "Extracting archives", len(archives), workers)

	e := &slc.Extractor{TargetDir: *slcDir, Progress: reporter}
	res, err := batch.Run(s.ctx, e.Tasks(archives), batch.Options{
		Name:     "unzip",
		Workers:  workers,
		LogDir:   defaultLogDir(cfg, *slcDir),
		Logger:   s.logger,
		Progress: reporter,
	})
	if reporter != nil {
		reporter.Stop()
	}
	if err != nil {
		return failf("%v", err)
	}
	return finishBatch(s, res)
}
