package batch

import (
	"fmt"
	"io"
	"strings"
)

// Summary is the aggregate of a batch's outcomes.
type Summary struct {
	Name      string
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []Outcome
}

// Summarize counts outcomes. An outcome that is not in a terminal success
// state is counted as failed.
func Summarize(name string, outcomes []Outcome) Summary {
	s := Summary{Name: name, Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.State {
		case StateSucceeded:
			s.Succeeded++
		case StateSkipped:
			s.Skipped++
		default:
			s.Failed++
			s.Failures = append(s.Failures, o)
		}
	}
	return s
}

// OK reports whether every task succeeded or was skipped.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Print writes a human-readable summary.
func (s Summary) Print(w io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s summary:\n", s.Name)
	fmt.Fprintf(w, "  Total tasks: %d\n", s.Total)
	fmt.Fprintf(w, "  Succeeded:   %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Skipped:     %d\n", s.Skipped)
	fmt.Fprintf(w, "  Failed:      %d\n", s.Failed)
	for _, o := range s.Failures {
		fmt.Fprintf(w, "    - %s: %v\n", o.TaskID, o.Err)
	}
	fmt.Fprintln(w, rule)
}
