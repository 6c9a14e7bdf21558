package petalstream

import (
	"cmp"
	"sync/atomic"

	"github.com/petal-labs/petalstream/core"
)

// accumulator folds a whole upstream sequence into at most one result.
// add reports true when the result is settled and upstream can be dropped.
type accumulator[In, Out any] interface {
	add(v In) (stop bool)
	result() (Out, bool)
}

// reduceOperator wires an accumulator between up and each subscriber. A
// fresh accumulator is created per subscription.
func reduceOperator[In, Out any](up core.Publisher[In], newAcc func() accumulator[In, Out]) core.Publisher[Out] {
	return operatorPublisher[In, Out]{
		up: up,
		build: func(down core.Subscriber[Out]) core.Subscriber[In] {
			return &reduceSubscriber[In, Out]{
				link: link[Out]{down: down},
				acc:  newAcc(),
			}
		},
	}
}

// reduceSubscriber requests unlimited demand from upstream on the first
// downstream request and emits the accumulator's result at most once.
type reduceSubscriber[In, Out any] struct {
	link[Out]
	acc    accumulator[In, Out]
	primed atomic.Bool
}

func (r *reduceSubscriber[In, Out]) ReceiveSubscription(s core.Subscription) {
	r.subscribed(r, s)
}

func (r *reduceSubscriber[In, Out]) Request(d core.Demand) {
	r.grant(d)
	if d.IsZero() || !r.primed.CompareAndSwap(false, true) {
		return
	}
	if up := r.upstream(); up != nil {
		up.Request(core.Unlimited)
	}
}

func (r *reduceSubscriber[In, Out]) Receive(v In) core.Demand {
	if !r.open() {
		return core.None
	}
	if r.acc.add(v) {
		r.cancelUpstream()
		r.emit()
	}
	return core.None
}

func (r *reduceSubscriber[In, Out]) ReceiveCompletion(c core.Completion) {
	if !r.open() {
		return
	}
	if !c.IsFinished() {
		r.finish(c)
		return
	}
	r.emit()
}

func (r *reduceSubscriber[In, Out]) emit() {
	if v, ok := r.acc.result(); ok {
		r.finishWith(v)
		return
	}
	r.finish(core.Finished)
}

// Min emits the smallest value of up once it finishes; nothing if empty.
func Min[T cmp.Ordered](up core.Publisher[T]) core.Publisher[T] {
	return MinBy(up, cmp.Less[T])
}

// MinBy is Min with a custom ordering. less(a, b) reports a < b. Among equal
// values the first one wins.
func MinBy[T any](up core.Publisher[T], less func(a, b T) bool) core.Publisher[T] {
	return reduceOperator(up, func() accumulator[T, T] {
		return &extremum[T]{better: less}
	})
}

// Max emits the largest value of up once it finishes; nothing if empty.
func Max[T cmp.Ordered](up core.Publisher[T]) core.Publisher[T] {
	return MaxBy(up, cmp.Less[T])
}

// MaxBy is Max with a custom ordering. less(a, b) reports a < b. Among equal
// values the first one wins.
func MaxBy[T any](up core.Publisher[T], less func(a, b T) bool) core.Publisher[T] {
	return reduceOperator(up, func() accumulator[T, T] {
		return &extremum[T]{better: func(a, b T) bool { return less(b, a) }}
	})
}

type extremum[T any] struct {
	better func(candidate, best T) bool
	best   T
	has    bool
}

func (e *extremum[T]) add(v T) bool {
	if !e.has || e.better(v, e.best) {
		e.best = v
		e.has = true
	}
	return false
}

func (e *extremum[T]) result() (T, bool) { return e.best, e.has }

// First emits the first value of up and cancels upstream.
func First[T any](up core.Publisher[T]) core.Publisher[T] {
	return FirstWhere(up, nil)
}

// FirstWhere emits the first value matching predicate and cancels upstream.
// A nil predicate matches everything.
func FirstWhere[T any](up core.Publisher[T], predicate func(T) bool) core.Publisher[T] {
	return reduceOperator(up, func() accumulator[T, T] {
		return &firstMatch[T]{match: predicate}
	})
}

type firstMatch[T any] struct {
	match func(T) bool
	v     T
	has   bool
}

func (f *firstMatch[T]) add(v T) bool {
	if f.match != nil && !f.match(v) {
		return false
	}
	f.v = v
	f.has = true
	return true
}

func (f *firstMatch[T]) result() (T, bool) { return f.v, f.has }

// Last emits the final value of up once it finishes.
func Last[T any](up core.Publisher[T]) core.Publisher[T] {
	return reduceOperator(up, func() accumulator[T, T] {
		return &lastValue[T]{}
	})
}

type lastValue[T any] struct {
	v   T
	has bool
}

func (l *lastValue[T]) add(v T) bool {
	l.v = v
	l.has = true
	return false
}

func (l *lastValue[T]) result() (T, bool) { return l.v, l.has }

// OutputAt emits the value at the zero-based index and cancels upstream.
// If up finishes first, nothing is emitted.
func OutputAt[T any](up core.Publisher[T], index int) core.Publisher[T] {
	if index < 0 {
		return Fail[T](ErrInvalidCount)
	}
	return reduceOperator(up, func() accumulator[T, T] {
		return &valueAt[T]{index: index}
	})
}

type valueAt[T any] struct {
	index int
	seen  int
	v     T
	has   bool
}

func (a *valueAt[T]) add(v T) bool {
	if a.seen == a.index {
		a.v = v
		a.has = true
		return true
	}
	a.seen++
	return false
}

func (a *valueAt[T]) result() (T, bool) { return a.v, a.has }

// Count emits the number of values of up once it finishes.
func Count[T any](up core.Publisher[T]) core.Publisher[int] {
	return reduceOperator(up, func() accumulator[T, int] {
		return &counter[T]{}
	})
}

type counter[T any] struct {
	n int
}

func (c *counter[T]) add(T) bool {
	c.n++
	return false
}

func (c *counter[T]) result() (int, bool) { return c.n, true }

// Contains emits true as soon as up emits v (cancelling upstream), or false
// once up finishes without it.
func Contains[T comparable](up core.Publisher[T], v T) core.Publisher[bool] {
	return ContainsWhere(up, func(x T) bool { return x == v })
}

// ContainsWhere emits true at the first value matching predicate
// (cancelling upstream), or false once up finishes without a match.
func ContainsWhere[T any](up core.Publisher[T], predicate func(T) bool) core.Publisher[bool] {
	return reduceOperator(up, func() accumulator[T, bool] {
		return &anyMatch[T]{match: predicate}
	})
}

type anyMatch[T any] struct {
	match func(T) bool
	found bool
}

func (a *anyMatch[T]) add(v T) bool {
	if a.match(v) {
		a.found = true
		return true
	}
	return false
}

func (a *anyMatch[T]) result() (bool, bool) { return a.found, true }

// AllSatisfy emits false at the first value failing predicate (cancelling
// upstream), or true once up finishes. An empty upstream yields true.
func AllSatisfy[T any](up core.Publisher[T], predicate func(T) bool) core.Publisher[bool] {
	return reduceOperator(up, func() accumulator[T, bool] {
		return &allMatch[T]{match: predicate, ok: true}
	})
}

type allMatch[T any] struct {
	match func(T) bool
	ok    bool
}

func (a *allMatch[T]) add(v T) bool {
	if !a.match(v) {
		a.ok = false
		return true
	}
	return false
}

func (a *allMatch[T]) result() (bool, bool) { return a.ok, true }

// Reduce folds up with combine starting from initial and emits only the
// final accumulator once up finishes.
func Reduce[T, A any](up core.Publisher[T], initial A, combine func(A, T) A) core.Publisher[A] {
	return reduceOperator(up, func() accumulator[T, A] {
		return &fold[T, A]{acc: initial, combine: combine}
	})
}

type fold[T, A any] struct {
	acc     A
	combine func(A, T) A
}

func (f *fold[T, A]) add(v T) bool {
	f.acc = f.combine(f.acc, v)
	return false
}

func (f *fold[T, A]) result() (A, bool) { return f.acc, true }
