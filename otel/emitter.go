package otel

import (
	"github.com/petal-labs/petalstream/runtime"
)

// EnrichHandler wraps an EventHandler with OpenTelemetry trace context.
// When an event is handled, it looks up the subscription's active span from
// the TracingHandler and populates the TraceID and SpanID fields. When no
// span is active, the event passes through unchanged.
func EnrichHandler(handle runtime.EventHandler, tracing *TracingHandler) runtime.EventHandler {
	return func(e runtime.Event) {
		if e.SubscriptionID != "" {
			sc := tracing.ActiveSpanContext(e.SubscriptionID)
			if sc.IsValid() {
				e.TraceID = sc.TraceID().String()
				e.SpanID = sc.SpanID().String()
			}
		}
		handle(e)
	}
}

// Enricher returns EnrichHandler as a decorator.
func Enricher(tracing *TracingHandler) runtime.EventEmitterDecorator {
	return func(next runtime.EventHandler) runtime.EventHandler {
		return EnrichHandler(next, tracing)
	}
}
