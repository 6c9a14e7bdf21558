package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/petalstream/runtime"
)

// MetricsHandler translates PetalStream subscription events into
// OpenTelemetry metrics. It counts subscriptions, delivered values, failures
// and cancellations, and records how long each subscription lived.
type MetricsHandler struct {
	subscriptions metric.Int64Counter
	values        metric.Int64Counter
	failures      metric.Int64Counter
	cancellations metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create its instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	subs, err := meter.Int64Counter("petalstream.subscriptions",
		metric.WithDescription("Number of subscriptions started"),
	)
	if err != nil {
		return nil, err
	}

	values, err := meter.Int64Counter("petalstream.values",
		metric.WithDescription("Number of values delivered to subscribers"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("petalstream.failures",
		metric.WithDescription("Number of subscriptions terminated by a failure"),
	)
	if err != nil {
		return nil, err
	}

	cancels, err := meter.Int64Counter("petalstream.cancellations",
		metric.WithDescription("Number of subscriptions cancelled by the subscriber"),
	)
	if err != nil {
		return nil, err
	}

	dur, err := meter.Float64Histogram("petalstream.subscription.duration",
		metric.WithDescription("Lifetime of a subscription in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		subscriptions: subs,
		values:        values,
		failures:      failures,
		cancellations: cancels,
		duration:      dur,
	}, nil
}

// Handle processes a runtime event and records the appropriate metrics.
// It has the runtime.EventHandler signature.
func (h *MetricsHandler) Handle(e runtime.Event) {
	ctx := context.Background()
	stream := metric.WithAttributes(attribute.String("stream", e.Stream))

	switch e.Kind {
	case runtime.EventSubscribed:
		h.subscriptions.Add(ctx, 1, stream)
	case runtime.EventValue:
		h.values.Add(ctx, 1, stream)
	case runtime.EventFailed:
		h.failures.Add(ctx, 1, stream)
	case runtime.EventCancelled:
		h.cancellations.Add(ctx, 1, stream)
	}

	if e.Kind.Terminal() {
		h.duration.Record(ctx, e.Elapsed.Seconds(), metric.WithAttributes(
			attribute.String("stream", e.Stream),
			attribute.String("outcome", outcome(e.Kind)),
		))
	}
}

// outcome maps a terminal kind to a short label.
func outcome(k runtime.EventKind) string {
	switch k {
	case runtime.EventFailed:
		return "failed"
	case runtime.EventCancelled:
		return "cancelled"
	default:
		return "finished"
	}
}
