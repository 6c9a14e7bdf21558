package petalstream

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
)

// PublisherFunc adapts a subscribe function to core.Publisher.
type PublisherFunc[T any] func(s core.Subscriber[T])

// Subscribe implements core.Publisher.
func (f PublisherFunc[T]) Subscribe(s core.Subscriber[T]) {
	f(s)
}

// AnyPublisher hides a concrete publisher (typically an operator chain)
// behind the plain Subscribe capability.
type AnyPublisher[T any] struct {
	inner core.Publisher[T]
}

// Erase wraps p in an AnyPublisher. Erasing an AnyPublisher returns it as is.
func Erase[T any](p core.Publisher[T]) AnyPublisher[T] {
	if a, ok := p.(AnyPublisher[T]); ok {
		return a
	}
	return AnyPublisher[T]{inner: p}
}

// Subscribe implements core.Publisher.
func (a AnyPublisher[T]) Subscribe(s core.Subscriber[T]) {
	if a.inner == nil {
		s.ReceiveSubscription(core.EmptySubscription)
		s.ReceiveCompletion(core.Finished)
		return
	}
	a.inner.Subscribe(s)
}

// Sequence publishes values in order and then finishes.
// Each subscriber receives the whole sequence independently.
func Sequence[T any](values ...T) core.Publisher[T] {
	return FromSlice(values)
}

// FromSlice publishes the elements of values in order and then finishes.
// The slice is copied.
func FromSlice[T any](values []T) core.Publisher[T] {
	cp := make([]T, len(values))
	copy(cp, values)
	return sequencePublisher[T]{values: cp}
}

// Just publishes a single value and then finishes.
func Just[T any](v T) core.Publisher[T] {
	return sequencePublisher[T]{values: []T{v}}
}

// Empty finishes immediately without publishing anything.
func Empty[T any]() core.Publisher[T] {
	return sequencePublisher[T]{}
}

// Fail terminates every subscriber immediately with err.
func Fail[T any](err error) core.Publisher[T] {
	return PublisherFunc[T](func(s core.Subscriber[T]) {
		s.ReceiveSubscription(core.EmptySubscription)
		s.ReceiveCompletion(core.Failure(err))
	})
}

type sequencePublisher[T any] struct {
	values []T
}

func (p sequencePublisher[T]) Subscribe(s core.Subscriber[T]) {
	sub := &sequenceSubscription[T]{values: p.values, down: s}
	s.ReceiveSubscription(sub)
	// Completes an empty sequence that was never requested.
	sub.Request(core.None)
}

// sequenceSubscription walks a slice, delivering within demand.
type sequenceSubscription[T any] struct {
	mu       sync.Mutex
	values   []T
	next     int
	demand   core.Demand
	down     core.Subscriber[T] // nil once cancelled or finished
	emitting bool
}

func (s *sequenceSubscription[T]) Request(d core.Demand) {
	s.mu.Lock()
	if s.down == nil {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(d)
	if s.emitting {
		// The running loop below picks up the new demand.
		s.mu.Unlock()
		return
	}
	s.emitting = true
	for s.down != nil {
		if s.next >= len(s.values) {
			down := s.down
			s.down = nil
			s.emitting = false
			s.mu.Unlock()
			down.ReceiveCompletion(core.Finished)
			return
		}
		if s.demand.IsZero() {
			break
		}
		v := s.values[s.next]
		s.next++
		s.demand = s.demand.Subtract(1)
		down := s.down
		s.mu.Unlock()

		more := down.Receive(v)

		s.mu.Lock()
		if s.down != nil {
			s.demand = s.demand.Add(more)
		}
	}
	s.emitting = false
	s.mu.Unlock()
}

func (s *sequenceSubscription[T]) Cancel() {
	s.mu.Lock()
	s.down = nil
	s.values = nil
	s.mu.Unlock()
}

// FuturePublisher eventually produces a single value or a failure and
// replays that outcome to every subscriber.
type FuturePublisher[T any] struct {
	mu       sync.Mutex
	resolved bool
	value    T
	err      error
	waiting  []*futureSubscription[T]
}

// Future runs produce once, immediately, handing it a promise. The first call
// to the promise resolves the future; later calls are ignored. Subscribers
// receive the outcome once they have demand (failures need none).
func Future[T any](produce func(promise func(T, error))) *FuturePublisher[T] {
	f := &FuturePublisher[T]{}
	produce(f.resolve)
	return f
}

func (f *FuturePublisher[T]) resolve(v T, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.value = v
	f.err = err
	waiting := f.waiting
	f.waiting = nil
	f.mu.Unlock()

	for _, s := range waiting {
		s.deliver(v, err)
	}
}

// Subscribe implements core.Publisher.
func (f *FuturePublisher[T]) Subscribe(s core.Subscriber[T]) {
	sub := &futureSubscription[T]{down: s}
	s.ReceiveSubscription(sub)

	f.mu.Lock()
	if !f.resolved {
		f.waiting = append(f.waiting, sub)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	sub.deliver(v, err)
}

type futureSubscription[T any] struct {
	mu       sync.Mutex
	down     core.Subscriber[T]
	demand   core.Demand
	resolved bool
	value    T
	err      error
}

// deliver records the outcome and emits it if demand allows.
func (s *futureSubscription[T]) deliver(v T, err error) {
	s.mu.Lock()
	s.resolved = true
	s.value = v
	s.err = err
	s.mu.Unlock()
	s.flush()
}

func (s *futureSubscription[T]) flush() {
	s.mu.Lock()
	if s.down == nil || !s.resolved {
		s.mu.Unlock()
		return
	}
	down := s.down
	if s.err != nil {
		s.down = nil
		err := s.err
		s.mu.Unlock()
		down.ReceiveCompletion(core.Failure(err))
		return
	}
	if s.demand.IsZero() {
		s.mu.Unlock()
		return
	}
	s.down = nil
	v := s.value
	s.mu.Unlock()

	down.Receive(v)
	down.ReceiveCompletion(core.Finished)
}

func (s *futureSubscription[T]) Request(d core.Demand) {
	s.mu.Lock()
	if s.down == nil {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(d)
	s.mu.Unlock()
	s.flush()
}

func (s *futureSubscription[T]) Cancel() {
	s.mu.Lock()
	s.down = nil
	s.mu.Unlock()
}
