// Package bus provides a named notification center on top of PetalStream
// subjects. Posters and observers are decoupled by notification name, and
// every name is exposed as an ordinary core.Publisher so it can be composed
// with the stream operators.
package bus

import "time"

// Notification is one posted message.
type Notification struct {
	// Name identifies the channel the notification was posted on.
	Name string

	// Object is the optional payload.
	Object any

	// Time is when the notification was posted.
	Time time.Time
}

// Subscription receives notifications over a channel.
type Subscription interface {
	// Events returns the channel of notifications for this subscription.
	// It is closed when the subscription or the center closes.
	Events() <-chan Notification

	// Close unsubscribes and releases resources.
	Close() error
}
