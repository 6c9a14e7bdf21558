//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
	psotel "github.com/petal-labs/petalstream/otel"
)

func TestOTLP_ExportSubscriptionSpans(t *testing.T) {
	endpoint := otlpEndpoint(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		t.Fatalf("creating exporter: %v", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracing := psotel.NewTracingHandler(tp.Tracer("integration"))
	p := petalstream.Instrument(
		petalstream.Reduce(petalstream.Sequence(1, 2, 3), 0, func(a, b int) int { return a + b }),
		"integration-sum",
		tracing.Handle,
	)

	done := make(chan core.Completion, 1)
	var got int
	petalstream.Sink(p, func(c core.Completion) { done <- c }, func(v int) { got = v })
	waitCompletion(t, done, time.Second)
	if got != 6 {
		t.Errorf("got %d, want 6", got)
	}

	if err := tp.ForceFlush(ctx); err != nil {
		t.Fatalf("flushing spans to %s: %v", endpoint, err)
	}
}
