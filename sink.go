package petalstream

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
)

// SinkSubscriber is a subscriber built from two callbacks. It requests
// unlimited demand as soon as it is subscribed.
type SinkSubscriber[T any] struct {
	onCompletion func(core.Completion)
	onValue      func(T)

	mu        sync.Mutex
	sub       core.Subscription
	cancelled bool
	done      bool
}

// NewSinkSubscriber creates a callback subscriber. Either callback may be nil.
func NewSinkSubscriber[T any](onCompletion func(core.Completion), onValue func(T)) *SinkSubscriber[T] {
	return &SinkSubscriber[T]{
		onCompletion: onCompletion,
		onValue:      onValue,
	}
}

// ReceiveSubscription implements core.Subscriber.
func (s *SinkSubscriber[T]) ReceiveSubscription(sub core.Subscription) {
	s.mu.Lock()
	if s.sub != nil || s.cancelled || s.done {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()
	sub.Request(core.Unlimited)
}

// Receive implements core.Subscriber.
func (s *SinkSubscriber[T]) Receive(v T) core.Demand {
	s.mu.Lock()
	live := !s.cancelled && !s.done
	s.mu.Unlock()
	if live && s.onValue != nil {
		s.onValue(v)
	}
	return core.None
}

// ReceiveCompletion implements core.Subscriber.
func (s *SinkSubscriber[T]) ReceiveCompletion(c core.Completion) {
	s.mu.Lock()
	if s.cancelled || s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.sub = nil
	s.mu.Unlock()
	if s.onCompletion != nil {
		s.onCompletion(c)
	}
}

// Cancel cancels the subscription. No callbacks run afterwards.
func (s *SinkSubscriber[T]) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Sink subscribes to p with callbacks and unlimited demand, returning the
// handle that cancels the subscription.
func Sink[T any](p core.Publisher[T], onCompletion func(core.Completion), onValue func(T)) core.Cancellable {
	s := NewSinkSubscriber(onCompletion, onValue)
	p.Subscribe(s)
	return s
}

// SinkValues is Sink without a completion callback.
func SinkValues[T any](p core.Publisher[T], onValue func(T)) core.Cancellable {
	return Sink(p, nil, onValue)
}

// Assign writes every value of p through set, for example into a field of a
// caller-owned object.
func Assign[T any](p core.Publisher[T], set func(T)) core.Cancellable {
	return Sink(p, nil, set)
}
