package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	psotel "github.com/petal-labs/petalstream/otel"
	"github.com/petal-labs/petalstream/runtime"
)

const instrumentationName = "github.com/petal-labs/petalstream"

// session holds the logging and telemetry configured by the global flags
// for one command invocation.
type session struct {
	logger  *slog.Logger
	handler runtime.EventHandler

	reader   *sdkmetric.ManualReader
	meters   *sdkmetric.MeterProvider
	tracers  *sdktrace.TracerProvider
	errOut   io.Writer
	handlers []runtime.EventHandler
}

func newSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	withMetrics, _ := cmd.Flags().GetBool("metrics")

	if verbose && quiet {
		return nil, exitError(exitUsage, "--verbose and --quiet are mutually exclusive")
	}
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}

	s := &session{
		logger: slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})),
		errOut: cmd.ErrOrStderr(),
	}

	var tracing *psotel.TracingHandler
	if endpoint != "" {
		exp, err := otlptracehttp.New(cmd.Context(), otlptracehttp.WithEndpointURL(endpoint))
		if err != nil {
			return nil, exitError(exitUsage, "configuring OTLP exporter: %v", err)
		}
		s.tracers = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		gotel.SetTracerProvider(s.tracers)
		tracing = psotel.NewTracingHandler(s.tracers.Tracer(instrumentationName))
		s.handlers = append(s.handlers, tracing.Handle)
	}

	if withMetrics {
		s.reader = sdkmetric.NewManualReader()
		s.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.reader))
		mh, err := psotel.NewMetricsHandler(s.meters.Meter(instrumentationName))
		if err != nil {
			return nil, exitError(exitRuntime, "creating metrics: %v", err)
		}
		s.handlers = append(s.handlers, mh.Handle)
	}

	if verbose {
		debug := func(e runtime.Event) {
			s.logger.Debug("event "+e.Kind.String(),
				"stream", e.Stream,
				"subscription", e.SubscriptionID,
				"seq", e.Seq,
				"demand", e.Demand,
				"value", e.Value,
				"trace_id", e.TraceID,
			)
		}
		if tracing != nil {
			debug = psotel.EnrichHandler(debug, tracing)
		}
		s.handlers = append(s.handlers, debug)
	}

	if len(s.handlers) > 0 {
		s.handler = runtime.MultiEventHandler(s.handlers...)
	}
	return s, nil
}

// close flushes spans and prints the metrics summary.
func (s *session) close(ctx context.Context) {
	if s.tracers != nil {
		if err := s.tracers.Shutdown(ctx); err != nil {
			s.logger.Error("shutting down tracer provider", "error", err)
		}
	}
	if s.reader == nil {
		return
	}
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		s.logger.Error("collecting metrics", "error", err)
		return
	}
	writeMetrics(s.errOut, rm)
	_ = s.meters.Shutdown(ctx)
}

func writeMetrics(w io.Writer, rm metricdata.ResourceMetrics) {
	fmt.Fprintln(w, "=== Metrics ===")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fmt.Fprintf(w, "  %s: %d\n", m.Name, total)
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				fmt.Fprintf(w, "  %s: count=%d sum=%.6f%s\n", m.Name, count, sum, m.Unit)
			}
		}
	}
}
