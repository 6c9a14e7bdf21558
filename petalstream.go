// Package petalstream is a push-based reactive-streams engine with
// demand-based backpressure.
//
// # Model
//
// A core.Publisher describes how to produce a sequence of values terminated
// by a core.Completion. A core.Subscriber attaches with Subscribe, receives a
// core.Subscription, and requests core.Demand on it; no value is delivered
// before demand exists, and never more values than the cumulative demand.
// The demand returned from Subscriber.Receive is added to the outstanding
// demand. Completion is delivered at most once and may arrive regardless of
// demand.
//
// # Sources and subjects
//
// Sequence, Just, Empty, Fail and Future build finite publishers.
// PassthroughSubject and CurrentValueSubject are fed imperatively with Send
// and multicast to every current subscriber in subscription order.
//
// # Operators
//
// Operators are generic functions wrapping an upstream publisher: Map,
// TryMap, Scan, Collect, FlatMap, ReplaceNil, ReplaceEmpty, and the sequence
// reducers Min, Max, First, Last, OutputAt, OutputIn, Count, Contains,
// AllSatisfy and Reduce. Instrument, Print and HandleEvents observe a stream
// without changing it.
//
// # Concurrency
//
// Delivery is synchronous on the calling goroutine. Internal state is guarded
// by mutexes that are never held while calling into a subscriber, so a
// subscriber may Request, Cancel or Send re-entrantly from its callbacks.
package petalstream

import "errors"

var (
	// ErrInvalidCount is returned (as a failure) by operators given a
	// non-positive batch size or a negative index.
	ErrInvalidCount = errors.New("petalstream: count must be positive")

	// ErrInvalidRange is the failure of OutputIn when lo > hi.
	ErrInvalidRange = errors.New("petalstream: invalid index range")
)
