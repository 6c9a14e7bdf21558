// Package runtime provides the lifecycle event model for PetalStream
// subscriptions. Instrumented streams emit Events that handlers can log,
// count, trace, or forward.
package runtime

import (
	"log/slog"
	"time"
)

// EventKind identifies the type of lifecycle event.
type EventKind string

const (
	// EventSubscribed is emitted when a subscriber receives its subscription.
	EventSubscribed EventKind = "subscription.started"

	// EventRequested is emitted when the subscriber requests demand.
	EventRequested EventKind = "subscription.request"

	// EventValue is emitted for every value delivered downstream.
	EventValue EventKind = "subscription.value"

	// EventFinished is emitted when the stream completes successfully.
	EventFinished EventKind = "subscription.finished"

	// EventFailed is emitted when the stream terminates with a failure.
	EventFailed EventKind = "subscription.failed"

	// EventCancelled is emitted when the subscriber cancels.
	EventCancelled EventKind = "subscription.cancelled"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Terminal reports whether the kind ends a subscription.
func (k EventKind) Terminal() bool {
	return k == EventFinished || k == EventFailed || k == EventCancelled
}

// Event is a structured record of one step in a subscription's lifecycle.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// Stream is the name given to the instrumented stream.
	Stream string

	// SubscriptionID uniquely identifies one subscription of the stream.
	SubscriptionID string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the subscription started.
	Elapsed time.Duration

	// Seq is a monotonic sequence number per subscription (1-indexed).
	Seq uint64

	// Demand is the requested or returned demand, formatted ("max(3)").
	Demand string

	// Value is the delivered value for EventValue.
	Value any

	// Err is the failure for EventFailed.
	Err error

	// TraceID is the OpenTelemetry trace ID (hex-encoded, empty when OTel inactive).
	TraceID string

	// SpanID is the OpenTelemetry span ID (hex-encoded, empty when OTel inactive).
	SpanID string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, stream, subscriptionID string) Event {
	return Event{
		Kind:           kind,
		Stream:         stream,
		SubscriptionID: subscriptionID,
		Time:           time.Now(),
	}
}

// WithValue sets the delivered value on the event.
func (e Event) WithValue(v any) Event {
	e.Value = v
	return e
}

// WithDemand sets the formatted demand on the event.
func (e Event) WithDemand(d string) Event {
	e.Demand = d
	return e
}

// WithErr sets the failure on the event.
func (e Event) WithErr(err error) Event {
	e.Err = err
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// EventEmitterDecorator wraps a handler to add cross-cutting behavior,
// for example enriching events with trace metadata.
type EventEmitterDecorator func(EventHandler) EventHandler

// EventHandler is a function type for handling events.
// Implementations can log, count, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// The channel should have sufficient buffer to avoid blocking.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full
		}
	}
}

// LogHandler returns a handler that writes every event to logger at Info
// level. A nil logger uses slog.Default().
func LogHandler(logger *slog.Logger, prefix string) EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e Event) {
		attrs := []any{
			"stream", e.Stream,
			"subscription", e.SubscriptionID,
			"seq", e.Seq,
		}
		switch e.Kind {
		case EventRequested:
			attrs = append(attrs, "demand", e.Demand)
		case EventValue:
			attrs = append(attrs, "value", e.Value)
		case EventFailed:
			attrs = append(attrs, "error", e.Err)
		}
		msg := e.Kind.String()
		if prefix != "" {
			msg = prefix + ": " + msg
		}
		logger.Info(msg, attrs...)
	}
}
