// Package otel provides OpenTelemetry integration for PetalStream
// subscription events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/petalstream/runtime"
)

// TracingHandler translates subscription events into OpenTelemetry spans:
// one span per subscription, from subscription.started to the terminal
// event. Demand requests are recorded as span events.
type TracingHandler struct {
	tracer trace.Tracer

	mu    sync.RWMutex
	spans map[string]*activeSpan // subscriptionID -> span
}

type activeSpan struct {
	span   trace.Span
	values int64
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from runtime events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer: tracer,
		spans:  make(map[string]*activeSpan),
	}
}

// Handle processes a runtime event and creates or ends spans accordingly.
// It has the runtime.EventHandler signature.
func (h *TracingHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventSubscribed:
		h.handleSubscribed(e)
	case runtime.EventRequested:
		h.handleRequested(e)
	case runtime.EventValue:
		h.handleValue(e)
	case runtime.EventFinished, runtime.EventFailed, runtime.EventCancelled:
		h.handleTerminal(e)
	}
}

func (h *TracingHandler) handleSubscribed(e runtime.Event) {
	_, span := h.tracer.Start(context.Background(), "stream:"+e.Stream,
		trace.WithAttributes(
			attribute.String("petalstream.stream", e.Stream),
			attribute.String("petalstream.subscription_id", e.SubscriptionID),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.spans[e.SubscriptionID] = &activeSpan{span: span}
	h.mu.Unlock()
}

func (h *TracingHandler) handleRequested(e runtime.Event) {
	h.mu.RLock()
	as, ok := h.spans[e.SubscriptionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	as.span.AddEvent(string(e.Kind),
		trace.WithTimestamp(e.Time),
		trace.WithAttributes(attribute.String("petalstream.demand", e.Demand)),
	)
}

func (h *TracingHandler) handleValue(e runtime.Event) {
	h.mu.Lock()
	if as, ok := h.spans[e.SubscriptionID]; ok {
		as.values++
	}
	h.mu.Unlock()
}

// handleTerminal ends the subscription span with a status matching the kind.
func (h *TracingHandler) handleTerminal(e runtime.Event) {
	h.mu.Lock()
	as, ok := h.spans[e.SubscriptionID]
	if ok {
		delete(h.spans, e.SubscriptionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	as.span.SetAttributes(
		attribute.Int64("petalstream.values", as.values),
		attribute.String("petalstream.duration", e.Elapsed.String()),
		attribute.String("petalstream.outcome", outcome(e.Kind)),
	)
	if e.Kind == runtime.EventFailed {
		errMsg := "unknown error"
		if e.Err != nil {
			errMsg = e.Err.Error()
		}
		as.span.SetStatus(codes.Error, errMsg)
		as.span.RecordError(spanError(errMsg), trace.WithTimestamp(e.Time))
	} else {
		as.span.SetStatus(codes.Ok, "")
	}
	as.span.End(trace.WithTimestamp(e.Time))
}

// ActiveSpanContext returns the SpanContext of the live span for the given
// subscription. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSpanContext(subscriptionID string) trace.SpanContext {
	h.mu.RLock()
	as, ok := h.spans[subscriptionID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return as.span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
