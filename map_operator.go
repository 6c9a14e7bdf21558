package petalstream

import "github.com/petal-labs/petalstream/core"

// Map transforms every value of up with transform. Demand and completion
// pass through unchanged.
func Map[T, U any](up core.Publisher[T], transform func(T) U) core.Publisher[U] {
	return operatorPublisher[T, U]{
		up: up,
		build: func(down core.Subscriber[U]) core.Subscriber[T] {
			return &mapSubscriber[T, U]{
				link: link[U]{down: down},
				transform: func(v T) (U, error) {
					return transform(v), nil
				},
			}
		},
	}
}

// TryMap is Map with a fallible transform. The first error cancels upstream
// and terminates the stream with that error as failure.
func TryMap[T, U any](up core.Publisher[T], transform func(T) (U, error)) core.Publisher[U] {
	return operatorPublisher[T, U]{
		up: up,
		build: func(down core.Subscriber[U]) core.Subscriber[T] {
			return &mapSubscriber[T, U]{
				link:      link[U]{down: down},
				transform: transform,
			}
		},
	}
}

// Scan emits combine(accumulator, value) for every upstream value, starting
// from initial, and keeps the result as the next accumulator.
func Scan[T, A any](up core.Publisher[T], initial A, combine func(A, T) A) core.Publisher[A] {
	return operatorPublisher[T, A]{
		up: up,
		build: func(down core.Subscriber[A]) core.Subscriber[T] {
			acc := initial
			return &mapSubscriber[T, A]{
				link: link[A]{down: down},
				transform: func(v T) (A, error) {
					acc = combine(acc, v)
					return acc, nil
				},
			}
		},
	}
}

// ReplaceNil emits def in place of every nil element.
func ReplaceNil[T any](up core.Publisher[*T], def T) core.Publisher[T] {
	return Map(up, func(v *T) T {
		if v == nil {
			return def
		}
		return *v
	})
}

type mapSubscriber[T, U any] struct {
	link[U]
	transform func(T) (U, error)
}

func (m *mapSubscriber[T, U]) ReceiveSubscription(s core.Subscription) {
	m.subscribed(m, s)
}

func (m *mapSubscriber[T, U]) Receive(v T) core.Demand {
	if !m.open() {
		return core.None
	}
	out, err := m.transform(v)
	if err != nil {
		m.cancelUpstream()
		m.finish(core.Failure(err))
		return core.None
	}
	more, _ := m.send(out)
	return more
}

func (m *mapSubscriber[T, U]) ReceiveCompletion(c core.Completion) {
	m.finish(c)
}

// ReplaceEmpty emits def followed by Finished when up finishes without
// having emitted anything. Failures pass through.
func ReplaceEmpty[T any](up core.Publisher[T], def T) core.Publisher[T] {
	return operatorPublisher[T, T]{
		up: up,
		build: func(down core.Subscriber[T]) core.Subscriber[T] {
			return &replaceEmptySubscriber[T]{
				link: link[T]{down: down},
				def:  def,
			}
		},
	}
}

type replaceEmptySubscriber[T any] struct {
	link[T]
	def  T
	seen bool
}

func (r *replaceEmptySubscriber[T]) ReceiveSubscription(s core.Subscription) {
	r.subscribed(r, s)
}

func (r *replaceEmptySubscriber[T]) Receive(v T) core.Demand {
	if !r.open() {
		return core.None
	}
	r.seen = true
	more, _ := r.send(v)
	return more
}

func (r *replaceEmptySubscriber[T]) ReceiveCompletion(c core.Completion) {
	if c.IsFinished() && !r.seen {
		r.finishWith(r.def)
		return
	}
	r.finish(c)
}
