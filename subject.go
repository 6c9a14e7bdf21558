package petalstream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/petal-labs/petalstream/core"
)

// Subject is a publisher that can also be fed imperatively.
type Subject[T any] interface {
	core.Publisher[T]

	// Send delivers v to every current subscriber that has demand.
	Send(v T)

	// SendCompletion terminates every current subscriber. Later sends are
	// ignored.
	SendCompletion(c core.Completion)
}

// ConnectionInfo describes one live subscription of a subject.
type ConnectionInfo struct {
	ID     string
	Demand core.Demand
}

// fanout is the multicast state shared by both subject kinds.
// Send is not serialized across goroutines; feed a subject from one
// goroutine at a time.
type fanout[T any] struct {
	mu         sync.Mutex
	conns      []*subjectConn[T] // subscription order
	completion *core.Completion
	closed     bool

	// current-value mode
	replay     bool
	hasCurrent bool
	current    T
}

func (f *fanout[T]) subscribe(s core.Subscriber[T]) {
	f.mu.Lock()
	if f.completion != nil {
		c := *f.completion
		f.mu.Unlock()
		s.ReceiveSubscription(core.EmptySubscription)
		s.ReceiveCompletion(c)
		return
	}
	if f.closed {
		f.mu.Unlock()
		s.ReceiveSubscription(core.EmptySubscription)
		return
	}
	conn := &subjectConn[T]{
		id:     uuid.New(),
		owner:  f,
		down:   s,
		replay: f.replay,
	}
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	s.ReceiveSubscription(conn)
}

func (f *fanout[T]) send(v T) {
	f.mu.Lock()
	if f.completion != nil || f.closed {
		f.mu.Unlock()
		return
	}
	if f.replay {
		f.current = v
		f.hasCurrent = true
	}
	conns := make([]*subjectConn[T], len(f.conns))
	copy(conns, f.conns)
	f.mu.Unlock()

	for _, c := range conns {
		c.offer(v)
	}
}

func (f *fanout[T]) sendCompletion(c core.Completion) {
	f.mu.Lock()
	if f.completion != nil || f.closed {
		f.mu.Unlock()
		return
	}
	f.completion = &c
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()

	for _, conn := range conns {
		conn.terminate(c)
	}
}

// close cancels every connection without a terminal signal.
func (f *fanout[T]) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()

	for _, conn := range conns {
		conn.detach()
	}
}

func (f *fanout[T]) remove(c *subjectConn[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, conn := range f.conns {
		if conn == c {
			f.conns = append(f.conns[:i:i], f.conns[i+1:]...)
			return
		}
	}
}

func (f *fanout[T]) currentValue() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.hasCurrent
}

func (f *fanout[T]) connections() []ConnectionInfo {
	f.mu.Lock()
	conns := make([]*subjectConn[T], len(f.conns))
	copy(conns, f.conns)
	f.mu.Unlock()

	infos := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		c.mu.Lock()
		if c.down != nil {
			infos = append(infos, ConnectionInfo{ID: c.id.String(), Demand: c.demand})
		}
		c.mu.Unlock()
	}
	return infos
}

// subjectConn is one subscriber's link to a subject.
type subjectConn[T any] struct {
	id    uuid.UUID
	owner *fanout[T]

	mu     sync.Mutex
	down   core.Subscriber[T] // nil once cancelled or terminated
	demand core.Demand
	replay bool // the current value is still owed
}

// offer delivers v if the connection has demand; otherwise v is dropped.
func (c *subjectConn[T]) offer(v T) {
	c.mu.Lock()
	if c.down == nil || c.demand.IsZero() {
		c.mu.Unlock()
		return
	}
	c.replay = false
	c.demand = c.demand.Subtract(1)
	down := c.down
	c.mu.Unlock()

	more := down.Receive(v)

	c.mu.Lock()
	if c.down != nil {
		c.demand = c.demand.Add(more)
	}
	c.mu.Unlock()
}

func (c *subjectConn[T]) terminate(comp core.Completion) {
	c.mu.Lock()
	down := c.down
	c.down = nil
	c.mu.Unlock()
	if down != nil {
		down.ReceiveCompletion(comp)
	}
}

func (c *subjectConn[T]) detach() {
	c.mu.Lock()
	c.down = nil
	c.mu.Unlock()
}

func (c *subjectConn[T]) Request(d core.Demand) {
	c.mu.Lock()
	if c.down == nil {
		c.mu.Unlock()
		return
	}
	c.demand = c.demand.Add(d)
	owed := c.replay && !c.demand.IsZero()
	if owed {
		c.replay = false
	}
	c.mu.Unlock()

	if !owed {
		return
	}
	if v, ok := c.owner.currentValue(); ok {
		c.offer(v)
	}
}

func (c *subjectConn[T]) Cancel() {
	c.mu.Lock()
	if c.down == nil {
		c.mu.Unlock()
		return
	}
	c.down = nil
	c.mu.Unlock()
	c.owner.remove(c)
}
