package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ligustah/slcflow/internal/config"
	"github.com/ligustah/slcflow/internal/discover"
	"github.com/ligustah/slcflow/internal/stack"
	"github.com/ligustah/slcflow/internal/tools"
)

// runStack generates the interferogram stack run files with stackSentinel.py.
func runStack(args []string) int {
	fs := flag.NewFlagSet("stack", flag.ContinueOnError)

	var common commonFlags
	var bf bboxFlags
	common.register(fs)
	bf.register(fs)
	demDir := fs.String("dem-dir", "", "Directory containing the stitched *.wgs84 DEM (required)")
	auxDir := fs.String("aux-dir", "", "Auxiliary calibration directory (required)")
	slcDir := fs.String("slc-dir", "", "Directory of extracted SAFE directories (required)")
	orbitsDir := fs.String("orbits-dir", "", "Directory of orbit files (required)")
	processDir := fs.String("process-dir", "", "Working directory for stackSentinel.py (required)")
	nalks := fs.Int("nalks", 0, "Number of azimuth looks (required, > 0)")
	nrlks := fs.Int("nrlks", 0, "Number of range looks (required, > 0)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: slcflow stack [options]

Run stackSentinel.py in -process-dir to generate the run files executed by
'slcflow run'. Output goes to <process-dir>/stackSentinel.log.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	required := append(bboxFlagNames, "dem-dir", "aux-dir", "slc-dir", "orbits-dir", "process-dir", "nalks", "nrlks")
	if err := requireFlags(fs, required...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitFailure
	}

	params := tools.StackParams{
		BBox:         bf.box,
		AzimuthLooks: *nalks,
		RangeLooks:   *nrlks,
	}
	if err := params.Validate(); err != nil {
		return failf("%v", err)
	}

	cfg, err := common.loadConfig(config.Config{})
	if err != nil {
		return failf("%v", err)
	}

	for _, dir := range []string{*demDir, *auxDir, *slcDir, *orbitsDir} {
		if err := discover.Dir(dir); err != nil {
			return failf("%v", err)
		}
	}
	dem, err := tools.FindDEM(*demDir)
	if err != nil {
		return failf("%v", err)
	}
	if dems, _ := discover.Files(*demDir, tools.DEMPattern); len(dems) > 1 {
		fmt.Fprintf(os.Stderr, "[slcflow] Warning: %d DEM files in %s, using %s\n", len(dems), *demDir, filepath.Base(dem))
	}

	abs := func(p string) string {
		a, err := filepath.Abs(p)
		if err != nil {
			return p
		}
		return a
	}
	params.DEM = abs(dem)
	params.AuxDir = abs(*auxDir)
	params.SLCDir = abs(*slcDir)
	params.OrbitDir = abs(*orbitsDir)
	params.ProcessDir = abs(*processDir)

	if err := os.MkdirAll(params.ProcessDir, 0755); err != nil {
		return failf("create process directory: %v", err)
	}

	s, err := startSession(cfg, common.verbose)
	if err != nil {
		return failf("%v", err)
	}
	defer s.close()

	cmd := tools.StackSentinelCommand(cfg.Tools.StackSentinel, params)
	fmt.Fprintf(os.Stderr, "[slcflow] %s\n", cmd)

	runner := &tools.ExecRunner{Logger: s.logger}
	if err := runner.Run(s.ctx, cmd); err != nil {
		return failf("%v", err)
	}

	fmt.Fprintf(os.Stderr, "[slcflow] Run files written to %s\n", filepath.Join(params.ProcessDir, stack.RunFilesDir))
	return ExitSuccess
}
