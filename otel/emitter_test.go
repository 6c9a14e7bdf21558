package otel_test

import (
	"testing"
	"time"

	petalotel "github.com/petal-labs/petalstream/otel"
	"github.com/petal-labs/petalstream/runtime"
)

func TestEnrichHandler_PopulatesTraceFields(t *testing.T) {
	_, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(runtime.Event{Kind: runtime.EventSubscribed, Stream: "s", SubscriptionID: "sub-1", Time: now})

	expectedSC := h.ActiveSpanContext("sub-1")
	if !expectedSC.IsValid() {
		t.Fatal("expected valid span context")
	}

	var received runtime.Event
	enriched := petalotel.EnrichHandler(func(e runtime.Event) { received = e }, h)
	enriched(runtime.Event{Kind: runtime.EventValue, Stream: "s", SubscriptionID: "sub-1", Value: 1})

	if received.TraceID != expectedSC.TraceID().String() {
		t.Errorf("TraceID: got %q, want %q", received.TraceID, expectedSC.TraceID().String())
	}
	if received.SpanID != expectedSC.SpanID().String() {
		t.Errorf("SpanID: got %q, want %q", received.SpanID, expectedSC.SpanID().String())
	}
}

func TestEnrichHandler_NoActiveSpan(t *testing.T) {
	_, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	var received runtime.Event
	decorate := petalotel.Enricher(h)
	decorate(func(e runtime.Event) { received = e })(runtime.Event{
		Kind:           runtime.EventValue,
		SubscriptionID: "unknown",
	})

	if received.TraceID != "" || received.SpanID != "" {
		t.Errorf("expected empty trace fields, got %q/%q", received.TraceID, received.SpanID)
	}
	if received.Kind != runtime.EventValue {
		t.Errorf("expected event to pass through, got kind %v", received.Kind)
	}
}
