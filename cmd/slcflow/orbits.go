package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ligustah/slcflow/internal/batch"
	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/discover"
	slchttp "github.com/ligustah/slcflow/internal/http"
	"github.com/ligustah/slcflow/internal/orbit"
	"github.com/ligustah/slcflow/internal/storage"
)

// runOrbits downloads the precise orbit file for every local SLC archive.
func runOrbits(args []string) int {
	fs := flag.NewFlagSet("orbits", flag.ContinueOnError)

	var common commonFlags
	common.register(fs)
	common.registerBatch(fs)
	common.registerForce(fs, "Download orbit files that already exist at the destination")
	slcDir := fs.String("slc-dir", "", "Directory containing S1*.zip archives (required)")
	orbitDir := fs.String("orbit-dir", "", "Destination directory or bucket URL (s3://, gs://, file://) (required)")
	orbitURL := fs.String("orbit-url", "", "Orbit archive listing URL")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slcflow orbits [options]

Download the precise orbit file (valid from the day before to the day after
the acquisition) for every Sentinel-1 archive in -slc-dir. Files already at
the destination are skipped unless -force is given.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := requireFlags(fs, "slc-dir", "orbit-dir"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitFailure
	}

	cfg, err := common.loadConfig(config.Config{OrbitURL: *orbitURL})
	if err != nil {
		return failf("%v", err)
	}

	if err := discover.Dir(*slcDir); err != nil {
		return failf("%v", err)
	}
	acquisitions, ignored, err := orbit.ScanAcquisitions(*slcDir)
	if err != nil {
		return failf("no Sentinel-1 archives in %s: %v", *slcDir, err)
	}

	s, err := startSession(cfg, common.verbose)
	if err != nil {
		return failf("%v", err)
	}
	defer s.close()

	for _, path := range ignored {
		s.logger.Warn("skipping archive with unrecognised name", slog.String("file", filepath.Base(path)))
	}
	if len(acquisitions) == 0 {
		return failf("no archive in %s has a valid SLC product name", *slcDir)
	}
	fmt.Fprintf(os.Stderr, "[slcflow] Found %d SLC archives\n", len(acquisitions))

	client := slchttp.NewClient(cfg.HTTPOptions())
	entries, err := orbit.FetchListing(s.ctx, client, cfg.OrbitURL)
	if err != nil {
		return failf("%v", err)
	}

	matched, unmatched := orbit.Match(acquisitions, entries)
	for _, a := range unmatched {
		s.logger.Warn("no orbit file covers acquisition",
			slog.String("product", a.Product),
			slog.String("date", a.AcquisitionDate().Format("2006-01-02")),
		)
	}

	bucket, err := storage.Open(s.ctx, *orbitDir)
	if err != nil {
		return failf("%v", err)
	}
	defer bucket.Close()

	logDir := cfg.LogDir
	if logDir == "" {
		if local := storage.LocalDir(*orbitDir); local != "" {
			logDir = filepath.Join(local, "logs")
		} else {
			logDir = "logs"
		}
	}

	workers := cfg.TransferWorkers()
	reporter := newReporter(cfg, "Downloading orbits", len(matched), workers)

	d := &orbit.Downloader{
		Client:   client,
		Bucket:   bucket,
		Force:    cfg.Force,
		Progress: reporter,
	}
	tasks, err := d.Tasks(s.ctx, matched)
	if err != nil {
		if reporter != nil {
			reporter.Stop()
		}
		return failf("%v", err)
	}

	res, err := batch.Run(s.ctx, tasks, batch.Options{
		Name:     "orbits",
		Workers:  workers,
		LogDir:   logDir,
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
