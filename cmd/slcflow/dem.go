package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/tools"
)

// runDEM stitches an SRTM DEM for a bounding box widened by one degree.
func runDEM(args []string) int {
	fs := flag.NewFlagSet("dem", flag.ContinueOnError)

	var common commonFlags
	var bf bboxFlags
	common.register(fs)
	bf.register(fs)
	demDir := fs.String("dem-dir", "", "Output directory for the DEM (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slcflow dem [options]

Stitch an SRTM DEM covering the bounding box plus one degree on every side.
dem.py runs in -dem-dir and writes its output to dem.log there.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := requireFlags(fs, append(bboxFlagNames, "dem-dir")...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitFailure
	}

	if err := bf.box.Validate(); err != nil {
		return failf("%v", err)
	}

	cfg, err := common.loadConfig(config.Config{})
	if err != nil {
		return failf("%v", err)
	}

	dir, err := filepath.Abs(*demDir)
	if err != nil {
		return failf("resolve %s: %v", *demDir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failf("create DEM directory: %v", err)
	}

	s, err := startSession(cfg, common.verbose)
	if err != nil {
		return failf("%v", err)
	}
	defer s.close()

	tiles := bf.box.Expand(1)
	fmt.Fprintf(os.Stderr, "[slcflow] DEM bounds: S=%d N=%d W=%d E=%d\n", tiles.South, tiles.North, tiles.West, tiles.East)

	cmd := tools.DEMCommand(cfg.Tools.DEM, bf.box, dir)
	runner := &tools.ExecRunner{Logger: s.logger}
	if err := runner.Run(s.ctx, cmd); err != nil {
		return failf("%v", err)
	}

	dem, err := tools.FindDEM(dir)
	if err != nil {
		return failf("dem.py finished but %v", err)
	}
	fmt.Fprintf(os.Stderr, "[slcflow] DEM written to %s\n", dem)
	return ExitSuccess
}
