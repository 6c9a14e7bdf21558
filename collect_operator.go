package petalstream

import "github.com/petal-labs/petalstream/core"

// Collect gathers values of up into batches of size and emits each full
// batch. When up finishes, a partial batch is emitted before Finished; a
// failure discards it. Each unit of downstream demand requests size values
// from upstream.
func Collect[T any](up core.Publisher[T], size int) core.Publisher[[]T] {
	if size <= 0 {
		return Fail[[]T](ErrInvalidCount)
	}
	return operatorPublisher[T, []T]{
		up: up,
		build: func(down core.Subscriber[[]T]) core.Subscriber[T] {
			return &collectSubscriber[T]{
				link: link[[]T]{down: down},
				size: size,
			}
		},
	}
}

type collectSubscriber[T any] struct {
	link[[]T]
	size int
	buf  []T
}

func (c *collectSubscriber[T]) ReceiveSubscription(s core.Subscription) {
	c.subscribed(c, s)
}

func (c *collectSubscriber[T]) Request(d core.Demand) {
	c.grant(d)
	if up := c.upstream(); up != nil {
		up.Request(d.Multiply(c.size))
	}
}

func (c *collectSubscriber[T]) Receive(v T) core.Demand {
	if !c.open() {
		return core.None
	}
	c.buf = append(c.buf, v)
	if len(c.buf) < c.size {
		return core.None
	}
	batch := c.buf
	c.buf = make([]T, 0, c.size)
	more, _ := c.send(batch)
	return more.Multiply(c.size)
}

func (c *collectSubscriber[T]) ReceiveCompletion(comp core.Completion) {
	if !c.open() {
		return
	}
	if comp.IsFinished() && len(c.buf) > 0 {
		batch := c.buf
		c.buf = nil
		c.finishWith(batch)
		return
	}
	c.buf = nil
	c.finish(comp)
}
