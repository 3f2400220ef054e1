package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeRunFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "run_files")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("echo step\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunCommandDispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitUsage},
		{"unknown", []string{"frobnicate"}, ExitUsage},
		{"help", []string{"help"}, ExitSuccess},
		{"subcommand help", []string{"unzip", "-h"}, ExitSuccess},
		{"bad flag", []string{"unzip", "-nope"}, ExitFailure},
		{"stray argument", []string{"run", "-run-files-dir", t.TempDir(), "extra"}, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"dem", []string{"dem", "-dem-dir", t.TempDir()}},
		{"orbits", []string{"orbits", "-slc-dir", t.TempDir()}},
		{"unzip", []string{"unzip", "-data-dir", t.TempDir()}},
		{"stack", []string{"stack", "-lat-min", "1"}},
		{"run", []string{"run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != ExitFailure {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, ExitFailure)
			}
		})
	}
}

func TestDEMInvalidBBoxBeforeIO(t *testing.T) {
	demDir := filepath.Join(t.TempDir(), "dem")
	code := runDEM([]string{
		"-lat-min", "40", "-lat-max", "39",
		"-lon-min", "10", "-lon-max", "11",
		"-dem-dir", demDir,
	})
	if code != ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(demDir); !os.IsNotExist(err) {
		t.Errorf("DEM directory created despite invalid bounding box: %v", err)
	}
}

func TestDEM(t *testing.T) {
	t.Setenv("SLCFLOW_TOOLS_DEM", writeTool(t, `echo "$@"; touch demLat_N38_N42_Lon_E009_E013.dem.wgs84`))

	demDir := filepath.Join(t.TempDir(), "dem")
	code := runDEM([]string{
		"-lat-min", "39.2", "-lat-max", "40.8",
		"-lon-min", "10.1", "-lon-max", "11.9",
		"-dem-dir", demDir,
	})
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, ExitSuccess)
	}

	log, err := os.ReadFile(filepath.Join(demDir, "dem.log"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "-a stitch -b 38 41 9 12 -r -s 1 -c"; !strings.Contains(string(log), want) {
		t.Errorf("dem.log = %q, want args %q", log, want)
	}
}

func TestStackInvalidLooks(t *testing.T) {
	processDir := filepath.Join(t.TempDir(), "process")
	code := runStack([]string{
		"-lat-min", "39", "-lat-max", "40", "-lon-min", "10", "-lon-max", "11",
		"-dem-dir", t.TempDir(), "-aux-dir", t.TempDir(), "-slc-dir", t.TempDir(),
		"-orbits-dir", t.TempDir(), "-process-dir", processDir,
		"-nalks", "0", "-nrlks", "4",
	})
	if code != ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(processDir); !os.IsNotExist(err) {
		t.Errorf("process directory created despite invalid looks: %v", err)
	}
}

func TestStack(t *testing.T) {
	t.Setenv("SLCFLOW_TOOLS_STACK_SENTINEL", writeTool(t, `echo "$@"; mkdir -p run_files; touch run_files/run_01_unpack`))

	demDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(demDir, "dem.dem.wgs84"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	processDir := filepath.Join(t.TempDir(), "process")

	code := runStack([]string{
		"-lat-min", "39", "-lat-max", "40", "-lon-min", "10", "-lon-max", "11",
		"-dem-dir", demDir, "-aux-dir", t.TempDir(), "-slc-dir", t.TempDir(),
		"-orbits-dir", t.TempDir(), "-process-dir", processDir,
		"-nalks", "2", "-nrlks", "8",
	})
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, ExitSuccess)
	}
	if _, err := os.Stat(filepath.Join(processDir, "run_files", "run_01_unpack")); err != nil {
		t.Errorf("run files not generated: %v", err)
	}
	log, err := os.ReadFile(filepath.Join(processDir, "stackSentinel.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "-z 2 -r 8") {
		t.Errorf("stackSentinel.log = %q, want looks arguments", log)
	}
}

func TestRunSteps(t *testing.T) {
	t.Setenv("SLCFLOW_TOOLS_RUN", writeTool(t, `echo "running $2 on $4 cores"`))
	dir := writeRunFiles(t, "run_01_unpack", "run_02_average", "run_03_merge")

	code := runSteps([]string{"-run-files-dir", dir, "-expected-files", "3", "-cores", "2"})
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", code, ExitSuccess)
	}

	for _, name := range []string{"log_run01.log", "log_run02.log", "log_run03.log"} {
		if _, err := os.Stat(filepath.Join(dir, "logs", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	log, err := os.ReadFile(filepath.Join(dir, "logs", "log_run02.log"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "running run_02_average on 2 cores"; !strings.Contains(string(log), want) {
		t.Errorf("log_run02.log = %q, want %q", log, want)
	}
}

func TestRunStepsStopsAtFailure(t *testing.T) {
	t.Setenv("SLCFLOW_TOOLS_RUN", writeTool(t, `case "$2" in run_02*) echo boom; exit 1;; esac; echo ok`))
	dir := writeRunFiles(t, "run_01_unpack", "run_02_average", "run_03_merge")

	code := runSteps([]string{"-run-files-dir", dir, "-expected-files", "3"})
	if code != ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs", "log_run03.log")); !os.IsNotExist(err) {
		t.Errorf("step after the failure ran: %v", err)
	}
}

func TestRunStepsCountMismatch(t *testing.T) {
	t.Setenv("SLCFLOW_TOOLS_RUN", writeTool(t, `echo ok`))
	dir := writeRunFiles(t, "run_01_unpack", "run_02_average")

	if code := runSteps([]string{"-run-files-dir", dir}); code != ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, ExitFailure)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Errorf("steps ran despite the count mismatch: %v", err)
	}

	if code := runSteps([]string{"-run-files-dir", dir, "-force"}); code != ExitSuccess {
		t.Fatalf("forced exit code = %d, want %d", code, ExitSuccess)
	}
	for _, name := range []string{"log_run01.log", "log_run02.log"} {
		if _, err := os.Stat(filepath.Join(dir, "logs", name)); err != nil {
			t.Errorf("forced run missing %s: %v", name, err)
		}
	}
}

func TestUnzipNoArchives(t *testing.T) {
	if code := runUnzip([]string{"-data-dir", t.TempDir(), "-slc-dir", t.TempDir()}); code != ExitFailure {
		t.Errorf("exit code = %d, want %d", code, ExitFailure)
	}
}
