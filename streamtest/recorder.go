// Package streamtest provides recording subscribers for tests.
package streamtest

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/runtime"
)

// Recorder is a subscriber that records everything it receives.
//
// It requests initial demand when subscribed and returns each from every
// Receive. Recorder is safe for concurrent use.
type Recorder[T any] struct {
	initial core.Demand
	each    core.Demand

	mu         sync.Mutex
	sub        core.Subscription
	values     []T
	completion *core.Completion
	subscribes int
}

// NewRecorder constructs a Recorder requesting initial on subscription and
// each after every received value.
func NewRecorder[T any](initial, each core.Demand) *Recorder[T] {
	return &Recorder[T]{initial: initial, each: each}
}

// Unlimited constructs a Recorder that requests everything up front.
func Unlimited[T any]() *Recorder[T] {
	return NewRecorder[T](core.Unlimited, core.None)
}

// ReceiveSubscription implements core.Subscriber.
func (r *Recorder[T]) ReceiveSubscription(s core.Subscription) {
	r.mu.Lock()
	r.sub = s
	r.subscribes++
	r.mu.Unlock()
	if !r.initial.IsZero() {
		s.Request(r.initial)
	}
}

// Receive implements core.Subscriber.
func (r *Recorder[T]) Receive(v T) core.Demand {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	return r.each
}

// ReceiveCompletion implements core.Subscriber.
func (r *Recorder[T]) ReceiveCompletion(c core.Completion) {
	r.mu.Lock()
	if r.completion == nil {
		r.completion = &c
	}
	r.mu.Unlock()
}

// Request asks the current subscription for d more values.
func (r *Recorder[T]) Request(d core.Demand) {
	if s := r.Subscription(); s != nil {
		s.Request(d)
	}
}

// Cancel cancels the current subscription.
func (r *Recorder[T]) Cancel() {
	if s := r.Subscription(); s != nil {
		s.Cancel()
	}
}

// Subscription returns the last subscription received, or nil.
func (r *Recorder[T]) Subscription() core.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

// Subscribes returns how many subscriptions were received.
func (r *Recorder[T]) Subscribes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribes
}

// Values returns a snapshot copy of the received values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]T, len(r.values))
	copy(cp, r.values)
	return cp
}

// Completion returns the terminal signal, if one arrived.
func (r *Recorder[T]) Completion() (core.Completion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completion == nil {
		return core.Completion{}, false
	}
	return *r.completion, true
}

// Finished reports whether the stream finished successfully.
func (r *Recorder[T]) Finished() bool {
	c, ok := r.Completion()
	return ok && c.IsFinished()
}

// Reset clears recorded values and the terminal signal.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.values = nil
	r.completion = nil
	r.mu.Unlock()
}

// EventRecorder records runtime events. It is safe under concurrent Handle
// calls.
type EventRecorder struct {
	mu     sync.Mutex
	events []runtime.Event
}

// NewEventRecorder constructs an EventRecorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Handle appends e. It has the runtime.EventHandler signature.
func (r *EventRecorder) Handle(e runtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of recorded events.
func (r *EventRecorder) Events() []runtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]runtime.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Kinds returns the kinds of the recorded events in order.
func (r *EventRecorder) Kinds() []runtime.EventKind {
	evs := r.Events()
	out := make([]runtime.EventKind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

// Count returns how many recorded events have kind k.
func (r *EventRecorder) Count(k runtime.EventKind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind == k {
			n++
		}
	}
	return n
}
