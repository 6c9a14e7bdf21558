package petalstream

import (
	"sync"

	"github.com/petal-labs/petalstream/core"
)

// link is the downstream half shared by operators: it holds the downstream
// subscriber, the upstream subscription and the outstanding downstream
// demand. Embedders implement Receive/ReceiveCompletion and usually Request.
type link[Out any] struct {
	mu     sync.Mutex
	down   core.Subscriber[Out]
	up     core.Subscription
	demand core.Demand
	done   bool // downstream terminated or cancelled
	cut    bool // upstream terminated or cancelled
	held   *Out // final value waiting for downstream demand
}

// operatorPublisher subscribes a fresh operator subscriber to upstream for
// every downstream subscriber.
type operatorPublisher[In, Out any] struct {
	up    core.Publisher[In]
	build func(down core.Subscriber[Out]) core.Subscriber[In]
}

func (p operatorPublisher[In, Out]) Subscribe(down core.Subscriber[Out]) {
	p.up.Subscribe(p.build(down))
}

// attach stores the upstream subscription. It reports false (and cancels s)
// when the link already has one or is closed.
func (l *link[Out]) attach(s core.Subscription) bool {
	l.mu.Lock()
	if l.up != nil || l.done || l.cut {
		l.mu.Unlock()
		s.Cancel()
		return false
	}
	l.up = s
	l.mu.Unlock()
	return true
}

// subscribed attaches s and hands self to the downstream subscriber.
func (l *link[Out]) subscribed(self core.Subscription, s core.Subscription) {
	if !l.attach(s) {
		return
	}
	l.mu.Lock()
	down := l.down
	l.mu.Unlock()
	if down != nil {
		down.ReceiveSubscription(self)
	}
}

// upstream returns the upstream subscription, or nil once cut.
func (l *link[Out]) upstream() core.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done || l.cut {
		return nil
	}
	return l.up
}

// open reports whether upstream values should still be processed.
func (l *link[Out]) open() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.done && !l.cut
}

// grant records downstream demand and flushes a held final value.
func (l *link[Out]) grant(d core.Demand) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.demand = l.demand.Add(d)
	held := l.held
	l.held = nil
	l.mu.Unlock()

	if held != nil {
		l.finishWith(*held)
	}
}

// send delivers v within downstream demand and returns the demand the
// subscriber added. ok is false when v was dropped.
func (l *link[Out]) send(v Out) (more core.Demand, ok bool) {
	l.mu.Lock()
	if l.done || l.demand.IsZero() {
		l.mu.Unlock()
		return core.None, false
	}
	l.demand = l.demand.Subtract(1)
	down := l.down
	l.mu.Unlock()

	more = down.Receive(v)

	l.mu.Lock()
	if !l.done {
		l.demand = l.demand.Add(more)
	}
	l.mu.Unlock()
	return more, true
}

// hasDemand reports whether downstream can take another value.
func (l *link[Out]) hasDemand() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.done && !l.demand.IsZero()
}

// finish delivers the terminal signal once.
func (l *link[Out]) finish(c core.Completion) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.cut = true
	down := l.down
	l.down = nil
	l.up = nil
	l.held = nil
	l.mu.Unlock()

	down.ReceiveCompletion(c)
}

// finishWith delivers v followed by Finished. With no downstream demand, v
// is held until the next grant.
func (l *link[Out]) finishWith(v Out) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.cut = true
	l.up = nil
	if l.demand.IsZero() {
		l.held = &v
		l.mu.Unlock()
		return
	}
	l.demand = l.demand.Subtract(1)
	l.done = true
	down := l.down
	l.down = nil
	l.mu.Unlock()

	down.Receive(v)
	down.ReceiveCompletion(core.Finished)
}

// cancelUpstream cuts the link from upstream without touching downstream.
func (l *link[Out]) cancelUpstream() {
	l.mu.Lock()
	up := l.up
	l.up = nil
	l.cut = true
	l.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

// Cancel implements core.Subscription for the downstream subscriber.
func (l *link[Out]) Cancel() {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.cut = true
	up := l.up
	l.up = nil
	l.down = nil
	l.held = nil
	l.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

// Request forwards demand unchanged; operators with other demand policies
// override it.
func (l *link[Out]) Request(d core.Demand) {
	l.grant(d)
	if up := l.upstream(); up != nil {
		up.Request(d)
	}
}
