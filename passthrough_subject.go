package petalstream

import "github.com/petal-labs/petalstream/core"

// PassthroughSubject multicasts sent values to its current subscribers
// without buffering. A subscriber with no outstanding demand misses the
// value.
type PassthroughSubject[T any] struct {
	f fanout[T]
}

// NewPassthroughSubject creates an empty PassthroughSubject.
func NewPassthroughSubject[T any]() *PassthroughSubject[T] {
	return &PassthroughSubject[T]{}
}

// Subscribe implements core.Publisher. Subscribing after completion delivers
// only the terminal signal.
func (s *PassthroughSubject[T]) Subscribe(sub core.Subscriber[T]) {
	s.f.subscribe(sub)
}

// Send implements Subject.
func (s *PassthroughSubject[T]) Send(v T) {
	s.f.send(v)
}

// SendCompletion implements Subject.
func (s *PassthroughSubject[T]) SendCompletion(c core.Completion) {
	s.f.sendCompletion(c)
}

// Close releases the subject: every subscription is cancelled without a
// terminal signal and later sends are ignored.
func (s *PassthroughSubject[T]) Close() {
	s.f.close()
}

// Connections returns the live subscriptions in subscription order.
func (s *PassthroughSubject[T]) Connections() []ConnectionInfo {
	return s.f.connections()
}

var _ Subject[int] = (*PassthroughSubject[int])(nil)
