package tools

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ligustah/slcflow/internal/bbox"
	"github.com/ligustah/slcflow/internal/discover"
)

var box = bbox.BBox{LatMin: 34.5, LatMax: 35.8, LonMin: -118.2, LonMax: -117.1}

func TestDEMCommand(t *testing.T) {
	c := DEMCommand("dem.py", box, "/work/DEM")

	want := []string{"-a", "stitch", "-b", "33", "36", "-119", "-116", "-r", "-s", "1", "-c"}
	if !reflect.DeepEqual(c.Args, want) {
		t.Errorf("Args = %v, want %v", c.Args, want)
	}
	if c.Dir != "/work/DEM" || c.LogPath != "/work/DEM/dem.log" {
		t.Errorf("unexpected dir/log %q %q", c.Dir, c.LogPath)
	}
}

func TestStackSentinelCommand(t *testing.T) {
	p := StackParams{
		BBox:         box,
		DEM:          "/work/DEM/demLat_N33_N36_Lon_W119_W116.dem.wgs84",
		AuxDir:       "/work/aux",
		SLCDir:       "/work/SLC",
		OrbitDir:     "/work/orbits",
		ProcessDir:   "/work/process",
		AzimuthLooks: 2,
		RangeLooks:   10,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	c := StackSentinelCommand("stackSentinel.py", p)
	want := []string{
		"-b", "34.5 35.8 -118.2 -117.1",
		"-d", p.DEM,
		"-a", "/work/aux",
		"-s", "/work/SLC",
		"-o", "/work/orbits",
		"-z", "2",
		"-r", "10",
		"-f", "0.8",
		"-c", "1",
	}
	if !reflect.DeepEqual(c.Args, want) {
		t.Errorf("Args = %v, want %v", c.Args, want)
	}
	if c.Dir != "/work/process" {
		t.Errorf("Dir = %q", c.Dir)
	}
	if !strings.Contains(c.String(), `-b "34.5 35.8 -118.2 -117.1"`) {
		t.Errorf("String() = %s", c.String())
	}
}

func TestStackParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    StackParams
	}{
		{"zero azimuth", StackParams{BBox: box, AzimuthLooks: 0, RangeLooks: 1}},
		{"negative range", StackParams{BBox: box, AzimuthLooks: 1, RangeLooks: -3}},
		{"bad box", StackParams{BBox: bbox.BBox{LatMin: 2, LatMax: 1, LonMin: 0, LonMax: 1}, AzimuthLooks: 1, RangeLooks: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); !errors.Is(err, bbox.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRunStepCommand(t *testing.T) {
	c := RunStepCommand("run.py", "/work/process/run_files/run_03_average_baseline", 4, "/work/process/logs/log_run03.log")
	want := []string{"--input", "run_03_average_baseline", "-p", "4"}
	if !reflect.DeepEqual(c.Args, want) {
		t.Errorf("Args = %v, want %v", c.Args, want)
	}
	if c.Dir != "/work/process/run_files" {
		t.Errorf("Dir = %q", c.Dir)
	}
}

func TestFindDEM(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindDEM(dir); !errors.Is(err, discover.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	for _, name := range []string{"demLat.dem.wgs84", "demLat.dem.wgs84.xml", "dem.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := FindDEM(dir)
	if err != nil {
		t.Fatalf("FindDEM: %v", err)
	}
	if filepath.Base(got) != "demLat.dem.wgs84" {
		t.Errorf("FindDEM = %s", got)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietRunner() *ExecRunner {
	return &ExecRunner{Output: io.Discard, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestExecRunnerSuccess(t *testing.T) {
	script := writeScript(t, `echo "args: $@"; pwd; echo oops >&2`)
	workDir := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "logs", "tool.log")

	err := quietRunner().Run(context.Background(), Command{
		Name:    script,
		Args:    []string{"--input", "run_01"},
		Dir:     workDir,
		LogPath: logPath,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	resolved, _ := filepath.EvalSymlinks(workDir)
	for _, want := range []string{"args: --input run_01", "oops"} {
		if !strings.Contains(text, want) {
			t.Errorf("log missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, workDir) && !strings.Contains(text, resolved) {
		t.Errorf("expected working directory %s in log:\n%s", workDir, text)
	}
}

// cancelledAfterStart reports cancellation without ever closing Done, the
// view a caller has when ctx ends right after the process exits.
type cancelledAfterStart struct{ context.Context }

func (cancelledAfterStart) Err() error { return context.Canceled }

func TestExecRunnerSuccessIgnoresLateCancel(t *testing.T) {
	script := writeScript(t, `echo done`)
	logPath := filepath.Join(t.TempDir(), "tool.log")

	err := quietRunner().Run(cancelledAfterStart{context.Background()}, Command{Name: script, LogPath: logPath})
	if err != nil {
		t.Fatalf("successful command reported %v", err)
	}
}

func TestExecRunnerOutputWithoutLog(t *testing.T) {
	script := writeScript(t, `echo hello`)
	var buf bytes.Buffer
	r := quietRunner()
	r.Output = &buf

	if err := r.Run(context.Background(), Command{Name: script}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "hello" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	script := writeScript(t, `echo failing; exit 3`)
	logPath := filepath.Join(t.TempDir(), "tool.log")

	err := quietRunner().Run(context.Background(), Command{Name: script, LogPath: logPath})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 3 || exitErr.LogPath != logPath {
		t.Errorf("unexpected exit error %+v", exitErr)
	}
	if !errors.Is(err, ErrToolFailed) {
		t.Error("ExitError should match ErrToolFailed")
	}
}

func TestExecRunnerMissingTool(t *testing.T) {
	err := quietRunner().Run(context.Background(), Command{Name: "slcflow-no-such-tool"})
	if !errors.Is(err, ErrToolMissing) {
		t.Errorf("expected ErrToolMissing, got %v", err)
	}
}

func TestExecRunnerCancel(t *testing.T) {
	script := writeScript(t, `exec sleep 30`)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := quietRunner().Run(ctx, Command{Name: script})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 15*time.Second {
		t.Error("cancellation did not stop the tool")
	}
}
