package petalstream

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
)

// FlatMap maps every value of up to an inner publisher and merges the inner
// values into one stream in arrival order.
//
// At most maxConcurrent inner publishers are subscribed at a time; further
// upstream values wait in a FIFO queue and are admitted, in order, whenever an
// inner publisher finishes. The merged stream finishes once up and every
// admitted inner publisher have finished. Any failure terminates the whole
// stream and cancels everything still running.
func FlatMap[T, U any](up core.Publisher[T], maxConcurrent core.Demand, transform func(T) core.Publisher[U]) core.Publisher[U] {
	if maxConcurrent.IsZero() {
		return Fail[U](ErrInvalidCount)
	}
	return operatorPublisher[T, U]{
		up: up,
		build: func(down core.Subscriber[U]) core.Subscriber[T] {
			return &flatMapSubscriber[T, U]{
				down:      down,
				limit:     maxConcurrent,
				transform: transform,
				inners:    make(map[*flatMapInner[T, U]]struct{}),
			}
		},
	}
}

type flatMapSubscriber[T, U any] struct {
	transform func(T) core.Publisher[U]
	limit     core.Demand

	mu        sync.Mutex
	down      core.Subscriber[U]
	up        core.Subscription
	demand    core.Demand
	queue     []T // outer values waiting for a slot
	active    int
	inners    map[*flatMapInner[T, U]]struct{}
	buffer    []U // inner values waiting for downstream demand
	upDone    bool
	done      bool
	admitting bool
	draining  bool
}

func (f *flatMapSubscriber[T, U]) ReceiveSubscription(s core.Subscription) {
	f.mu.Lock()
	if f.up != nil || f.done {
		f.mu.Unlock()
		s.Cancel()
		return
	}
	f.up = s
	down := f.down
	f.mu.Unlock()

	down.ReceiveSubscription(f)
	// Outer values are queued rather than refused, so upstream is drained.
	s.Request(core.Unlimited)
}

func (f *flatMapSubscriber[T, U]) Receive(v T) core.Demand {
	f.mu.Lock()
	if f.done || f.upDone {
		f.mu.Unlock()
		return core.None
	}
	f.queue = append(f.queue, v)
	f.mu.Unlock()

	f.admit()
	return core.None
}

func (f *flatMapSubscriber[T, U]) ReceiveCompletion(c core.Completion) {
	if !c.IsFinished() {
		f.fail(c)
		return
	}
	f.mu.Lock()
	f.upDone = true
	f.up = nil
	f.mu.Unlock()
	f.drain()
}

// hasSlot reports whether another inner publisher may be admitted.
// Callers hold f.mu.
func (f *flatMapSubscriber[T, U]) hasSlot() bool {
	n, bounded := f.limit.Max()
	return !bounded || f.active < n
}

// admit subscribes queued outer values while slots are free. Inner
// publishers that finish synchronously during admission free their slot for
// the same loop.
func (f *flatMapSubscriber[T, U]) admit() {
	f.mu.Lock()
	if f.admitting {
		f.mu.Unlock()
		return
	}
	f.admitting = true
	for !f.done && len(f.queue) > 0 && f.hasSlot() {
		v := f.queue[0]
		var zero T
		f.queue[0] = zero
		f.queue = f.queue[1:]
		f.active++
		inner := &flatMapInner[T, U]{parent: f}
		f.inners[inner] = struct{}{}
		f.mu.Unlock()

		f.transform(v).Subscribe(inner)

		f.mu.Lock()
	}
	f.admitting = false
	f.mu.Unlock()

	f.drain()
}

// enqueue buffers an inner value and delivers what downstream demand allows.
func (f *flatMapSubscriber[T, U]) enqueue(v U) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.buffer = append(f.buffer, v)
	f.mu.Unlock()
	f.drain()
}

func (f *flatMapSubscriber[T, U]) innerFinished(inner *flatMapInner[T, U]) {
	f.mu.Lock()
	if _, ok := f.inners[inner]; !ok || f.done {
		f.mu.Unlock()
		return
	}
	delete(f.inners, inner)
	f.active--
	f.mu.Unlock()

	f.admit()
}

// drain delivers buffered values within demand, then finishes the stream
// when nothing can produce more values.
func (f *flatMapSubscriber[T, U]) drain() {
	f.mu.Lock()
	if f.draining || f.done {
		f.mu.Unlock()
		return
	}
	f.draining = true
	for !f.done && len(f.buffer) > 0 && !f.demand.IsZero() {
		v := f.buffer[0]
		var zero U
		f.buffer[0] = zero
		f.buffer = f.buffer[1:]
		f.demand = f.demand.Subtract(1)
		down := f.down
		f.mu.Unlock()

		more := down.Receive(v)

		f.mu.Lock()
		if !f.done {
			f.demand = f.demand.Add(more)
		}
	}
	f.draining = false
	finished := !f.done && f.upDone && f.active == 0 && len(f.queue) == 0 && len(f.buffer) == 0
	var down core.Subscriber[U]
	if finished {
		f.done = true
		down = f.down
		f.down = nil
	}
	f.mu.Unlock()

	if finished {
		down.ReceiveCompletion(core.Finished)
	}
}

// teardown marks the stream done and returns everything left to cancel.
// Callers hold f.mu.
func (f *flatMapSubscriber[T, U]) teardown() (core.Subscription, []core.Subscription) {
	f.done = true
	up := f.up
	f.up = nil
	subs := make([]core.Subscription, 0, len(f.inners))
	for inner := range f.inners {
		if inner.sub != nil {
			subs = append(subs, inner.sub)
		}
	}
	f.inners = nil
	f.queue = nil
	f.buffer = nil
	return up, subs
}

func (f *flatMapSubscriber[T, U]) fail(c core.Completion) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	up, subs := f.teardown()
	down := f.down
	f.down = nil
	f.mu.Unlock()

	if up != nil {
		up.Cancel()
	}
	for _, s := range subs {
		s.Cancel()
	}
	down.ReceiveCompletion(c)
}

// Request implements core.Subscription for the downstream subscriber.
func (f *flatMapSubscriber[T, U]) Request(d core.Demand) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.demand = f.demand.Add(d)
	f.mu.Unlock()
	f.drain()
}

// Cancel implements core.Subscription for the downstream subscriber.
func (f *flatMapSubscriber[T, U]) Cancel() {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	up, subs := f.teardown()
	f.down = nil
	f.mu.Unlock()

	if up != nil {
		up.Cancel()
	}
	for _, s := range subs {
		s.Cancel()
	}
}

// flatMapInner subscribes to one inner publisher on behalf of the parent.
// Its fields are guarded by the parent's mutex.
type flatMapInner[T, U any] struct {
	parent *flatMapSubscriber[T, U]
	sub    core.Subscription
}

func (in *flatMapInner[T, U]) ReceiveSubscription(s core.Subscription) {
	p := in.parent
	p.mu.Lock()
	if _, live := p.inners[in]; !live || p.done || in.sub != nil {
		p.mu.Unlock()
		s.Cancel()
		return
	}
	in.sub = s
	p.mu.Unlock()
	s.Request(core.Unlimited)
}

func (in *flatMapInner[T, U]) Receive(v U) core.Demand {
	in.parent.enqueue(v)
	return core.None
}

func (in *flatMapInner[T, U]) ReceiveCompletion(c core.Completion) {
	if !c.IsFinished() {
		in.parent.fail(c)
		return
	}
	in.parent.innerFinished(in)
}
