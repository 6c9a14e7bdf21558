package bus

import (
	"sync"
	"time"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
)

// CenterConfig configures a notification center.
type CenterConfig struct {
	// SubscriberBufferSize is the channel buffer size per channel
	// subscription (default: 256).
	SubscriberBufferSize int

	// Now stamps posted notifications (default: time.Now).
	Now func() time.Time
}

// Center routes notifications by name to in-process observers.
type Center struct {
	mu       sync.Mutex
	subjects map[string]*petalstream.PassthroughSubject[Notification]
	bufSize  int
	now      func() time.Time
	closed   bool
}

// NewCenter creates a notification center with the given configuration.
func NewCenter(config CenterConfig) *Center {
	bufSize := config.SubscriberBufferSize
	if bufSize <= 0 {
		bufSize = 256
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Center{
		subjects: make(map[string]*petalstream.PassthroughSubject[Notification]),
		bufSize:  bufSize,
		now:      now,
	}
}

// subject returns the subject for name, creating it on first use. It
// returns nil once the center is closed.
func (c *Center) subject(name string) *petalstream.PassthroughSubject[Notification] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	s, ok := c.subjects[name]
	if !ok {
		s = petalstream.NewPassthroughSubject[Notification]()
		c.subjects[name] = s
	}
	return s
}

// Publisher returns a publisher of every notification posted under name
// after subscription. It never finishes unless the center is closed.
func (c *Center) Publisher(name string) core.Publisher[Notification] {
	return petalstream.PublisherFunc[Notification](func(sub core.Subscriber[Notification]) {
		s := c.subject(name)
		if s == nil {
			petalstream.Empty[Notification]().Subscribe(sub)
			return
		}
		s.Subscribe(sub)
	})
}

// Post delivers a notification to the observers of name that have demand.
// Posting to a closed center is a no-op.
func (c *Center) Post(name string, object any) {
	c.mu.Lock()
	s, ok := c.subjects[name]
	closed := c.closed
	c.mu.Unlock()

	if closed || !ok {
		return
	}
	s.Send(Notification{Name: name, Object: object, Time: c.now()})
}

// AddObserver calls fn for every notification posted under name until the
// returned handle is cancelled.
func (c *Center) AddObserver(name string, fn func(Notification)) core.Cancellable {
	return petalstream.SinkValues(c.Publisher(name), fn)
}

// Subscribe returns a channel subscription for name. Notifications that
// arrive while the buffer is full are dropped.
func (c *Center) Subscribe(name string) Subscription {
	sub := newChanSub(c.bufSize)
	sub.sink = petalstream.NewSinkSubscriber(
		func(core.Completion) { sub.close() },
		sub.send,
	)
	c.Publisher(name).Subscribe(sub.sink)
	return sub
}

// Observers returns the number of live observers of name.
func (c *Center) Observers(name string) int {
	c.mu.Lock()
	s, ok := c.subjects[name]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return len(s.Connections())
}

// Close finishes every observer and closes all channel subscriptions.
// Later posts are dropped and later observers finish immediately.
func (c *Center) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subjects := c.subjects
	c.subjects = nil
	c.mu.Unlock()

	for _, s := range subjects {
		s.SendCompletion(core.Finished)
	}
	return nil
}

// chanSub forwards notifications into a buffered channel.
type chanSub struct {
	ch     chan Notification
	sink   *petalstream.SinkSubscriber[Notification]
	mu     sync.Mutex
	closed bool
}

func newChanSub(bufSize int) *chanSub {
	return &chanSub{
		ch: make(chan Notification, bufSize),
	}
}

// Events returns the channel of notifications for this subscription.
func (s *chanSub) Events() <-chan Notification {
	return s.ch
}

// Close unsubscribes and closes the channel.
func (s *chanSub) Close() error {
	s.sink.Cancel()
	s.close()
	return nil
}

// close performs the actual channel close, guarded against double-close.
func (s *chanSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// send delivers a notification to the channel.
// If the channel is full or the subscription is closed, it is dropped.
func (s *chanSub) send(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- n:
	default:
		// Drop if channel full.
	}
}

var _ Subscription = (*chanSub)(nil)
