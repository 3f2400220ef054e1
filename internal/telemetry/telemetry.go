// Package telemetry sets up logging and task metrics for the CLI.
//
// By default log records go to a slog text handler. With Enabled set, the
// logger is bridged into an OpenTelemetry log provider and task counters are
// recorded on an OpenTelemetry meter provider, both exporting to the output
// writer in the stdout exporters' JSON format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/ligustah/slcflow/internal/batch"
)

const instrumentationName = "github.com/ligustah/slcflow"

// TasksMetric counts settled tasks by batch and state.
const TasksMetric = "slcflow.tasks"

// Options configures Setup.
type Options struct {
	// Enabled exports logs and metrics through OpenTelemetry.
	Enabled bool

	// Verbose lowers the log level to debug.
	Verbose bool

	// Output receives log records and exported telemetry. Default: os.Stderr
	Output io.Writer
}

// Telemetry holds the configured logger and instruments.
type Telemetry struct {
	Logger *slog.Logger

	tasks    metric.Int64Counter
	shutdown []func(context.Context) error
}

// Setup builds the logger and, when enabled, the OpenTelemetry providers.
// Call Shutdown before exiting to flush exporters.
func Setup(opts Options) (*Telemetry, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	t := &Telemetry{}

	if !opts.Enabled {
		t.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
		// The global meter provider is a no-op until one is installed.
		if err := t.initInstruments(otel.Meter(instrumentationName)); err != nil {
			return nil, err
		}
		return t, nil
	}

	logExporter, err := stdoutlog.New(stdoutlog.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewSimpleProcessor(logExporter)),
	)
	global.SetLoggerProvider(lp)
	t.shutdown = append(t.shutdown, lp.Shutdown)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create metric exporter: %w", err), t.Shutdown(context.Background()))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	otel.SetMeterProvider(mp)
	t.shutdown = append(t.shutdown, mp.Shutdown)

	t.Logger = slog.New(&levelHandler{
		level: level,
		Handler: otelslog.NewHandler(instrumentationName,
			otelslog.WithLoggerProvider(lp),
		),
	})
	if err := t.initInstruments(mp.Meter(instrumentationName)); err != nil {
		return nil, errors.Join(err, t.Shutdown(context.Background()))
	}
	return t, nil
}

func (t *Telemetry) initInstruments(meter metric.Meter) error {
	tasks, err := meter.Int64Counter(TasksMetric,
		metric.WithDescription("Settled tasks by batch and state"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return fmt.Errorf("create %s counter: %w", TasksMetric, err)
	}
	t.tasks = tasks
	return nil
}

// RecordTasks adds n settled tasks of the given batch and state.
func (t *Telemetry) RecordTasks(ctx context.Context, batchName, state string, n int) {
	if n <= 0 {
		return
	}
	t.tasks.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("batch", batchName),
		attribute.String("state", state),
	))
}

// RecordSummary records every state count of a batch summary.
func (t *Telemetry) RecordSummary(ctx context.Context, s batch.Summary) {
	t.RecordTasks(ctx, s.Name, string(batch.StateSucceeded), s.Succeeded)
	t.RecordTasks(ctx, s.Name, string(batch.StateSkipped), s.Skipped)
	t.RecordTasks(ctx, s.Name, string(batch.StateFailed), s.Failed)
}

// Shutdown flushes and stops the providers in reverse order of creation.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		if err := t.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

// levelHandler drops records below level before they reach the bridge.
type levelHandler struct {
	slog.Handler
	level slog.Level
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level && h.Handler.Enabled(ctx, l)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
