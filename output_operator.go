package petalstream

import "github.com/petal-labs/petalstream/core"

// OutputIn emits the values whose zero-based index lies in the closed range
// [lo, hi], in order. Once index hi has been emitted upstream is cancelled
// and the stream finishes.
func OutputIn[T any](up core.Publisher[T], lo, hi int) core.Publisher[T] {
	if lo < 0 {
		return Fail[T](ErrInvalidCount)
	}
	if lo > hi {
		return Fail[T](ErrInvalidRange)
	}
	return operatorPublisher[T, T]{
		up: up,
		build: func(down core.Subscriber[T]) core.Subscriber[T] {
			return &outputInSubscriber[T]{
				link: link[T]{down: down},
				lo:   lo,
				hi:   hi,
			}
		},
	}
}

type outputInSubscriber[T any] struct {
	link[T]
	lo, hi int
	index  int
}

func (o *outputInSubscriber[T]) ReceiveSubscription(s core.Subscription) {
	o.subscribed(o, s)
}

func (o *outputInSubscriber[T]) Receive(v T) core.Demand {
	if !o.open() {
		return core.None
	}
	i := o.index
	o.index++
	if i < o.lo {
		// Skipped values do not use up downstream demand.
		return core.Max(1)
	}
	more, _ := o.send(v)
	if i >= o.hi {
		o.cancelUpstream()
		o.finish(core.Finished)
		return core.None
	}
	return more
}

func (o *outputInSubscriber[T]) ReceiveCompletion(c core.Completion) {
	o.finish(c)
}
