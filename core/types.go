// Package core provides the foundational types and interfaces for PetalStream.
//
// This package contains:
//   - Demand: how many values a subscriber is willing to receive next
//   - Completion: the terminal signal of a stream (finished or failed)
//   - Interfaces: Publisher, Subscriber, Subscription, Cancellable
package core

import (
	"fmt"
	"math"
	"sync"
)

// Demand is the number of values a subscriber permits a publisher to deliver.
// It is either unlimited or a non-negative bounded count.
// The zero value is a bounded demand of zero (None).
type Demand struct {
	max       int
	unlimited bool
}

var (
	// None is a bounded demand of zero.
	None = Demand{}

	// Unlimited permits any number of values.
	Unlimited = Demand{unlimited: true}
)

// Max returns a bounded demand of n values. Negative n is clamped to zero.
func Max(n int) Demand {
	if n < 0 {
		n = 0
	}
	return Demand{max: n}
}

// IsUnlimited reports whether d is unlimited.
func (d Demand) IsUnlimited() bool {
	return d.unlimited
}

// IsZero reports whether d permits no further values.
func (d Demand) IsZero() bool {
	return !d.unlimited && d.max == 0
}

// Max returns the bounded count and true, or (0, false) for unlimited demand.
func (d Demand) Max() (int, bool) {
	if d.unlimited {
		return 0, false
	}
	return d.max, true
}

// Add returns the sum of d and o. Unlimited absorbs everything, and bounded
// sums that would overflow saturate to Unlimited.
func (d Demand) Add(o Demand) Demand {
	if d.unlimited || o.unlimited {
		return Unlimited
	}
	if d.max > math.MaxInt-o.max {
		return Unlimited
	}
	return Demand{max: d.max + o.max}
}

// Subtract consumes n values from d, clamping at zero.
// Unlimited minus any finite n stays Unlimited.
func (d Demand) Subtract(n int) Demand {
	if d.unlimited || n <= 0 {
		return d
	}
	if n >= d.max {
		return None
	}
	return Demand{max: d.max - n}
}

// Min returns the smaller of d and o.
func (d Demand) Min(o Demand) Demand {
	switch {
	case d.unlimited:
		return o
	case o.unlimited:
		return d
	case o.max < d.max:
		return o
	default:
		return d
	}
}

// Multiply scales a bounded demand by n, saturating to Unlimited on overflow.
func (d Demand) Multiply(n int) Demand {
	if d.unlimited {
		return d
	}
	if n <= 0 || d.max == 0 {
		return None
	}
	if d.max > math.MaxInt/n {
		return Unlimited
	}
	return Demand{max: d.max * n}
}

// String returns "unlimited", "none" or "max(n)".
func (d Demand) String() string {
	switch {
	case d.unlimited:
		return "unlimited"
	case d.max == 0:
		return "none"
	default:
		return fmt.Sprintf("max(%d)", d.max)
	}
}

// Completion is the terminal signal of a stream.
// The zero value is Finished; a non-nil Err marks a failure.
type Completion struct {
	Err error
}

// Finished is the successful completion.
var Finished = Completion{}

// Failure returns a completion carrying err.
// A nil err yields Finished.
func Failure(err error) Completion {
	return Completion{Err: err}
}

// IsFinished reports whether c is a successful completion.
func (c Completion) IsFinished() bool {
	return c.Err == nil
}

// String returns "finished" or "failure(<err>)".
func (c Completion) String() string {
	if c.Err == nil {
		return "finished"
	}
	return "failure(" + c.Err.Error() + ")"
}

// Cancellable is anything that can stop an activity.
// Cancel must be idempotent.
type Cancellable interface {
	Cancel()
}

// Subscription is the live link and demand ledger between one publisher and
// one subscriber.
type Subscription interface {
	Cancellable

	// Request adds d to the outstanding demand. It may synchronously deliver
	// values before returning. Requests after cancellation are ignored.
	Request(d Demand)
}

// Subscriber consumes a stream. It receives exactly one subscription, then
// values (never more than requested), then at most one completion.
type Subscriber[T any] interface {
	// ReceiveSubscription hands the subscriber its subscription. No values
	// flow until the subscriber requests demand on it.
	ReceiveSubscription(s Subscription)

	// Receive delivers one value. The returned demand is added to the
	// outstanding demand.
	Receive(v T) Demand

	// ReceiveCompletion delivers the terminal signal.
	ReceiveCompletion(c Completion)
}

// Publisher is a source of a sequence of values terminated by a Completion.
// Subscribe may be called many times; each call starts an independent
// subscription.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// CancelFunc adapts a function to Cancellable. Use OnceCancellable when the
// function is not idempotent.
type CancelFunc func()

// Cancel implements Cancellable.
func (f CancelFunc) Cancel() {
	if f != nil {
		f()
	}
}

// OnceCancellable wraps f so that it runs at most once across goroutines.
func OnceCancellable(f func()) Cancellable {
	var once sync.Once
	return CancelFunc(func() {
		once.Do(f)
	})
}

// emptySubscription ignores every call.
type emptySubscription struct{}

func (emptySubscription) Request(Demand) {}
func (emptySubscription) Cancel()        {}

// EmptySubscription is an inert subscription for publishers that terminate
// immediately.
var EmptySubscription Subscription = emptySubscription{}
