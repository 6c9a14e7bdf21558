package petalstream

import "github.com/petal-labs/petalstream/core"

// CurrentValueSubject is a PassthroughSubject that remembers the latest value
// and hands it to each new subscriber once the subscriber has demand.
type CurrentValueSubject[T any] struct {
	f fanout[T]
}

// NewCurrentValueSubject creates a subject holding initial.
func NewCurrentValueSubject[T any](initial T) *CurrentValueSubject[T] {
	s := &CurrentValueSubject[T]{}
	s.f.replay = true
	s.f.current = initial
	s.f.hasCurrent = true
	return s
}

// Subscribe implements core.Publisher. The current value is delivered on the
// subscriber's first non-zero request and consumes one unit of demand.
// Subscribing after completion delivers only the terminal signal.
func (s *CurrentValueSubject[T]) Subscribe(sub core.Subscriber[T]) {
	s.f.subscribe(sub)
}

// Send updates the current value and multicasts it.
// After completion the value is no longer updated.
func (s *CurrentValueSubject[T]) Send(v T) {
	s.f.send(v)
}

// SendCompletion implements Subject.
func (s *CurrentValueSubject[T]) SendCompletion(c core.Completion) {
	s.f.sendCompletion(c)
}

// Value returns the current value.
func (s *CurrentValueSubject[T]) Value() T {
	v, _ := s.f.currentValue()
	return v
}

// SetValue is equivalent to Send.
func (s *CurrentValueSubject[T]) SetValue(v T) {
	s.f.send(v)
}

// Close releases the subject: every subscription is cancelled without a
// terminal signal and later sends are ignored.
func (s *CurrentValueSubject[T]) Close() {
	s.f.close()
}

// Connections returns the live subscriptions in subscription order.
func (s *CurrentValueSubject[T]) Connections() []ConnectionInfo {
	return s.f.connections()
}

var _ Subject[int] = (*CurrentValueSubject[int])(nil)
