package petalstream

import (
	"log/slog"

	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/runtime"
)

// Hooks are optional callbacks run by HandleEvents as each signal passes.
type Hooks[T any] struct {
	OnSubscription func()
	OnRequest      func(core.Demand)
	OnValue        func(T)
	OnCompletion   func(core.Completion)
	OnCancel       func()
}

// HandleEvents runs hooks for every signal of every subscription without
// altering the stream.
func HandleEvents[T any](up core.Publisher[T], hooks Hooks[T]) core.Publisher[T] {
	return operatorPublisher[T, T]{
		up: up,
		build: func(down core.Subscriber[T]) core.Subscriber[T] {
			return &hookSubscriber[T]{
				link:  link[T]{down: down},
				hooks: hooks,
			}
		},
	}
}

// Instrument emits runtime lifecycle events for every subscription of up to
// handler. Each subscription gets its own ID and sequence numbers.
func Instrument[T any](up core.Publisher[T], name string, handler runtime.EventHandler) core.Publisher[T] {
	return operatorPublisher[T, T]{
		up: up,
		build: func(down core.Subscriber[T]) core.Subscriber[T] {
			tr := runtime.NewTracker(name, handler)
			return &hookSubscriber[T]{
				link:  link[T]{down: down},
				hooks: trackerHooks[T](tr),
			}
		},
	}
}

// Print logs every lifecycle event of up at Info level, prefixed with
// prefix. A nil logger uses slog.Default().
func Print[T any](up core.Publisher[T], prefix string, logger *slog.Logger) core.Publisher[T] {
	return Instrument(up, prefix, runtime.LogHandler(logger, prefix))
}

func trackerHooks[T any](tr *runtime.Tracker) Hooks[T] {
	return Hooks[T]{
		OnSubscription: func() {
			tr.Emit(runtime.Event{Kind: runtime.EventSubscribed})
		},
		OnRequest: func(d core.Demand) {
			tr.Emit(runtime.Event{Kind: runtime.EventRequested, Demand: d.String()})
		},
		OnValue: func(v T) {
			tr.Emit(runtime.Event{Kind: runtime.EventValue, Value: v})
		},
		OnCompletion: func(c core.Completion) {
			if c.IsFinished() {
				tr.Emit(runtime.Event{Kind: runtime.EventFinished})
				return
			}
			tr.Emit(runtime.Event{Kind: runtime.EventFailed, Err: c.Err})
		},
		OnCancel: func() {
			tr.Emit(runtime.Event{Kind: runtime.EventCancelled})
		},
	}
}

type hookSubscriber[T any] struct {
	link[T]
	hooks Hooks[T]
}

func (h *hookSubscriber[T]) ReceiveSubscription(s core.Subscription) {
	if h.hooks.OnSubscription != nil && h.open() {
		h.hooks.OnSubscription()
	}
	h.subscribed(h, s)
}

func (h *hookSubscriber[T]) Receive(v T) core.Demand {
	if !h.open() {
		return core.None
	}
	if h.hooks.OnValue != nil {
		h.hooks.OnValue(v)
	}
	more, _ := h.send(v)
	if h.hooks.OnRequest != nil && !more.IsZero() {
		h.hooks.OnRequest(more)
	}
	return more
}

func (h *hookSubscriber[T]) ReceiveCompletion(c core.Completion) {
	if !h.open() {
		return
	}
	if h.hooks.OnCompletion != nil {
		h.hooks.OnCompletion(c)
	}
	h.finish(c)
}

func (h *hookSubscriber[T]) Request(d core.Demand) {
	if h.hooks.OnRequest != nil && h.open() {
		h.hooks.OnRequest(d)
	}
	h.link.Request(d)
}

func (h *hookSubscriber[T]) Cancel() {
	if h.hooks.OnCancel != nil && h.open() {
		h.hooks.OnCancel()
	}
	h.link.Cancel()
}
