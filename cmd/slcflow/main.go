package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitUsage
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "dem":
		return runDEM(cmdArgs)
	case "orbits":
		return runOrbits(cmdArgs)
	case "unzip":
		return runUnzip(cmdArgs)
	case "stack":
		return runStack(cmdArgs)
	case "run":
		return runSteps(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitUsage
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: slcflow <command> [options]

Commands:
  dem     Stitch an SRTM DEM covering a bounding box (dem.py)
  orbits  Download precise orbit files for local SLC archives
  unzip   Extract SLC archives into SAFE directories in parallel
  stack   Generate the interferogram stack run files (stackSentinel.py)
  run     Execute the generated run files in order (run.py)

Typical order: dem, orbits, unzip, stack, run.

Run 'slcflow <command> -h' for command-specific help.`)
}
