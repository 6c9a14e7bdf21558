package bus

import (
	"sync"
	"time"

	"github.com/petal-labs/petalstream/runtime"
)

// ThrottleConfig controls the behavior of ThrottledHandler.
type ThrottleConfig struct {
	// CoalesceInterval is how often to flush coalesced value events.
	// Default: 100ms
	CoalesceInterval time.Duration
}

// ThrottledHandler wraps a runtime.EventHandler and coalesces high-frequency
// subscription.value events. Value events are coalesced per subscription:
// only the latest one is kept within each interval. Other events pass
// through immediately, after the subscription's pending value, so a
// terminal event is never reported before the value that preceded it.
// The wrapped handler must not call Handle with a non-value event.
type ThrottledHandler struct {
	handle   runtime.EventHandler
	interval time.Duration

	// delivery serializes calls into handle that carry flushed values, so a
	// flush in progress finishes before any later non-value event.
	delivery sync.Mutex

	mu      sync.Mutex
	pending map[string]runtime.Event // subscriptionID -> latest value event
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewThrottledHandler creates a ThrottledHandler forwarding to handle and
// starts its background flusher. Call Close to stop it.
func NewThrottledHandler(handle runtime.EventHandler, cfg ThrottleConfig) *ThrottledHandler {
	interval := cfg.CoalesceInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	th := &ThrottledHandler{
		handle:   handle,
		interval: interval,
		pending:  make(map[string]runtime.Event),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go th.run()

	return th
}

// Handle has the runtime.EventHandler signature.
func (th *ThrottledHandler) Handle(e runtime.Event) {
	if e.Kind == runtime.EventValue {
		th.mu.Lock()
		if !th.closed {
			th.pending[e.SubscriptionID] = e
		}
		th.mu.Unlock()
		return
	}

	th.delivery.Lock()
	defer th.delivery.Unlock()

	th.mu.Lock()
	prev, ok := th.pending[e.SubscriptionID]
	delete(th.pending, e.SubscriptionID)
	th.mu.Unlock()

	if ok {
		th.handle(prev)
	}
	th.handle(e)
}

// Close flushes any pending value events and stops the background ticker.
// It is safe to call Close multiple times.
func (th *ThrottledHandler) Close() {
	th.mu.Lock()
	if th.closed {
		th.mu.Unlock()
		return
	}
	th.closed = true
	th.mu.Unlock()

	close(th.stopCh)
	<-th.doneCh
}

func (th *ThrottledHandler) run() {
	defer close(th.doneCh)

	ticker := time.NewTicker(th.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			th.flush()
		case <-th.stopCh:
			th.flush()
			return
		}
	}
}

// flush sends all pending coalesced events and clears the pending map.
func (th *ThrottledHandler) flush() {
	th.delivery.Lock()
	defer th.delivery.Unlock()

	th.mu.Lock()
	if len(th.pending) == 0 {
		th.mu.Unlock()
		return
	}

	// Swap out the pending map so we can release the lock during delivery.
	toFlush := th.pending
	th.pending = make(map[string]runtime.Event)
	th.mu.Unlock()

	for _, e := range toFlush {
		th.handle(e)
	}
}
