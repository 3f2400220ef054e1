// Package tools builds and runs the external InSAR processors: dem.py,
// stackSentinel.py and run.py.
//
// Builders return a Command value and never touch the system, so the
// argument layout can be checked without the tools installed. ExecRunner
// runs a Command as a child process with its output captured in the
// command's log file; a missing executable is reported as ErrToolMissing
// and a non-zero exit as *ExitError.
package tools
