package stack

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ligustah/slcflow/internal/discover"
)

// DefaultExpectedSteps is the number of run files stackSentinel.py writes
// for a standard interferogram stack.
const DefaultExpectedSteps = 16

// RunFilesDir is the directory of generated run files inside the process
// directory.
const RunFilesDir = "run_files"

// LogsDir is the step log directory inside the run-files directory.
const LogsDir = "logs"

// ErrCountMismatch is returned by NewPlan when the number of run files
// differs from the expected count and the caller did not force the run.
var ErrCountMismatch = errors.New("unexpected number of run files")

// RunFilePattern matches generated run files.
var RunFilePattern = discover.Pattern{Prefix: "run_"}

// Step is one numbered run file.
type Step struct {
	Number int
	Path   string
}

// ID is the step's short name, "run_NN".
func (s Step) ID() string {
	return StepID(s.Number)
}

// Name is the run file's base name.
func (s Step) Name() string {
	return filepath.Base(s.Path)
}

// LogName is the step's log file name, "log_runNN.log".
func (s Step) LogName() string {
	return fmt.Sprintf("log_run%02d.log", s.Number)
}

// StepID formats a step number as "run_NN".
func StepID(n int) string {
	return fmt.Sprintf("run_%02d", n)
}

// FindRunFiles lists the run_* files in dir, sorted by name.
func FindRunFiles(dir string) ([]string, error) {
	if err := discover.Dir(dir); err != nil {
		return nil, err
	}
	return discover.Files(dir, RunFilePattern)
}

// Plan is the ordered list of steps to execute.
type Plan struct {
	Expected int
	Found    int
	Steps    []Step
	Missing  []int    // expected step numbers without a run file
	Extra    []string // run files not matching any expected step
}

// NewPlan assigns run files to step numbers 1..expected. A file belongs to
// step N when its name is "run_NN" or starts with "run_NN_". When several
// files match one step the first by name is used and the others are extra.
//
// If the number of files differs from expected, NewPlan returns the plan
// together with ErrCountMismatch unless force is set.
func NewPlan(files []string, expected int, force bool) (*Plan, error) {
	if expected <= 0 {
		expected = DefaultExpectedSteps
	}
	p := &Plan{Expected: expected, Found: len(files)}

	used := make(map[string]bool, len(files))
	for n := 1; n <= expected; n++ {
		id := StepID(n)
		var match string
		for _, f := range files {
			name := filepath.Base(f)
			if !used[f] && (name == id || strings.HasPrefix(name, id+"_")) {
				match = f
				break
			}
		}
		if match == "" {
			p.Missing = append(p.Missing, n)
			continue
		}
		used[match] = true
		p.Steps = append(p.Steps, Step{Number: n, Path: match})
	}
	for _, f := range files {
		if !used[f] {
			p.Extra = append(p.Extra, f)
		}
	}

	if len(files) != expected && !force {
		return p, fmt.Errorf("%w: found %d, expected %d", ErrCountMismatch, len(files), expected)
	}
	return p, nil
}
