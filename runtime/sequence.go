package runtime

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// seqGen produces monotonically increasing sequence numbers for a single
// subscription.
type seqGen struct {
	counter atomic.Uint64
}

func newSeqGen() *seqGen {
	return &seqGen{}
}

// Next returns the next sequence number (1-indexed).
func (s *seqGen) Next() uint64 {
	return s.counter.Add(1)
}

// Tracker stamps the events of one subscription with a shared identity,
// a sequence number and the elapsed time since the tracker was created.
type Tracker struct {
	stream  string
	id      string
	started time.Time
	seq     *seqGen
	handler EventHandler
	now     func() time.Time
}

// NewTracker creates a tracker for a new subscription of stream.
// Events are delivered to handler; a nil handler discards them.
func NewTracker(stream string, handler EventHandler) *Tracker {
	return &Tracker{
		stream:  stream,
		id:      uuid.NewString(),
		started: time.Now(),
		seq:     newSeqGen(),
		handler: handler,
		now:     time.Now,
	}
}

// ID returns the subscription identifier.
func (t *Tracker) ID() string {
	return t.id
}

// Emit stamps e with the tracker's identity and forwards it to the handler.
func (t *Tracker) Emit(e Event) {
	if t.handler == nil {
		return
	}
	now := t.now()
	e.Stream = t.stream
	e.SubscriptionID = t.id
	e.Seq = t.seq.Next()
	e.Time = now
	e.Elapsed = now.Sub(t.started)
	t.handler(e)
}
