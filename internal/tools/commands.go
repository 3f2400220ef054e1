package tools

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ligustah/slcflow/internal/bbox"
	"github.com/ligustah/slcflow/internal/discover"
)

// Default executable names.
const (
	DefaultDEM           = "dem.py"
	DefaultStackSentinel = "stackSentinel.py"
	DefaultRun           = "run.py"
)

// DEMLogName is the log file written next to the stitched DEM.
const DEMLogName = "dem.log"

// DEMPattern matches the stitched DEM in its output directory.
var DEMPattern = discover.Pattern{Suffix: ".wgs84"}

// DEMCommand stitches an SRTM DEM covering box widened by one degree. The
// tool runs in demDir and logs to demDir/dem.log.
func DEMCommand(exe string, box bbox.BBox, demDir string) Command {
	args := []string{"-a", "stitch", "-b"}
	args = append(args, box.Expand(1).Args()...)
	args = append(args, "-r", "-s", "1", "-c")
	return Command{
		Name:    exe,
		Args:    args,
		Dir:     demDir,
		LogPath: filepath.Join(demDir, DEMLogName),
	}
}

// FindDEM returns the stitched *.wgs84 file in demDir. When several exist
// the first by name wins.
func FindDEM(demDir string) (string, error) {
	files, err := discover.Files(demDir, DEMPattern)
	if err != nil {
		return "", fmt.Errorf("no DEM in %s: %w", demDir, err)
	}
	return files[0], nil
}

// StackParams are the inputs of stackSentinel.py.
type StackParams struct {
	BBox          bbox.BBox
	DEM           string
	AuxDir        string
	SLCDir        string
	OrbitDir      string
	ProcessDir    string
	AzimuthLooks  int
	RangeLooks    int
	Coherence     float64 // default 0.8
	NumConnection int     // default 1
}

// Validate checks the looks factors and the bounding box.
func (p StackParams) Validate() error {
	if p.AzimuthLooks <= 0 {
		return &bbox.ValidationError{Field: "azimuth looks", Reason: "must be greater than 0"}
	}
	if p.RangeLooks <= 0 {
		return &bbox.ValidationError{Field: "range looks", Reason: "must be greater than 0"}
	}
	return p.BBox.Validate()
}

// StackSentinelCommand builds the stackSentinel.py invocation. It runs in
// ProcessDir and logs to ProcessDir/stackSentinel.log.
func StackSentinelCommand(exe string, p StackParams) Command {
	coh := p.Coherence
	if coh == 0 {
		coh = 0.8
	}
	conn := p.NumConnection
	if conn == 0 {
		conn = 1
	}
	return Command{
		Name: exe,
		Args: []string{
			"-b", p.BBox.String(),
			"-d", p.DEM,
			"-a", p.AuxDir,
			"-s", p.SLCDir,
			"-o", p.OrbitDir,
			"-z", strconv.Itoa(p.AzimuthLooks),
			"-r", strconv.Itoa(p.RangeLooks),
			"-f", strconv.FormatFloat(coh, 'f', -1, 64),
			"-c", strconv.Itoa(conn),
		},
		Dir:     p.ProcessDir,
		LogPath: filepath.Join(p.ProcessDir, "stackSentinel.log"),
	}
}

// RunStepCommand runs one generated run file with the given core count.
// The working directory is the run file's directory.
func RunStepCommand(exe, runFile string, cores int, logPath string) Command {
	return Command{
		Name:    exe,
		Args:    []string{"--input", filepath.Base(runFile), "-p", strconv.Itoa(cores)},
		Dir:     filepath.Dir(runFile),
		LogPath: logPath,
	}
}
