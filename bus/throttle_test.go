package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/petal-labs/petalstream/runtime"
)

type eventLog struct {
	mu     sync.Mutex
	events []runtime.Event
}

func (l *eventLog) handle(e runtime.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []runtime.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]runtime.Event(nil), l.events...)
}

func valueEvent(subID string, v any) runtime.Event {
	return runtime.NewEvent(runtime.EventValue, "stream", subID).WithValue(v)
}

func TestThrottle_NonValuePassThrough(t *testing.T) {
	var log eventLog
	th := NewThrottledHandler(log.handle, ThrottleConfig{
		CoalesceInterval: 10 * time.Second,
	})
	defer th.Close()

	th.Handle(runtime.NewEvent(runtime.EventSubscribed, "stream", "sub-1"))
	th.Handle(runtime.NewEvent(runtime.EventRequested, "stream", "sub-1").WithDemand("max(1)"))
	th.Handle(runtime.NewEvent(runtime.EventCancelled, "stream", "sub-1"))

	got := log.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[2].Kind != runtime.EventCancelled {
		t.Errorf("event 2: got kind %v, want %v", got[2].Kind, runtime.EventCancelled)
	}
}

func TestThrottle_ValueCoalescing(t *testing.T) {
	var log eventLog
	th := NewThrottledHandler(log.handle, ThrottleConfig{
		CoalesceInterval: 100 * time.Millisecond,
	})
	defer th.Close()

	for i := 0; i < 10; i++ {
		th.Handle(valueEvent("sub-1", i))
	}
	if n := len(log.snapshot()); n != 0 {
		t.Errorf("expected 0 events before flush, got %d", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(log.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	got := log.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 coalesced event, got %d", len(got))
	}
	if got[0].Value != 9 {
		t.Errorf("expected last value 9, got %v", got[0].Value)
	}
}

func TestThrottle_ValueCoalescingPerSubscription(t *testing.T) {
	var log eventLog
	th := NewThrottledHandler(log.handle, ThrottleConfig{
		CoalesceInterval: 10 * time.Second,
	})

	for i := 0; i < 5; i++ {
		th.Handle(valueEvent("sub-a", "a"+string(rune('0'+i))))
		th.Handle(valueEvent("sub-b", "b"+string(rune('0'+i))))
	}
	th.Close()

	got := log.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 coalesced events, got %d", len(got))
	}
	vals := make(map[string]any)
	for _, e := range got {
		vals[e.SubscriptionID] = e.Value
	}
	if vals["sub-a"] != "a4" {
		t.Errorf("sub-a: got %v, want %q", vals["sub-a"], "a4")
	}
	if vals["sub-b"] != "b4" {
		t.Errorf("sub-b: got %v, want %q", vals["sub-b"], "b4")
	}
}

func TestThrottle_TerminalFlushesPendingValue(t *testing.T) {
	var log eventLog
	th := NewThrottledHandler(log.handle, ThrottleConfig{
		CoalesceInterval: 10 * time.Second,
	})
	defer th.Close()

	th.Handle(valueEvent("sub-1", 1))
	th.Handle(valueEvent("sub-1", 2))
	th.Handle(runtime.NewEvent(runtime.EventFinished, "stream", "sub-1"))

	got := log.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != runtime.EventValue || got[0].Value != 2 {
		t.Errorf("event 0: got %v %v, want value 2", got[0].Kind, got[0].Value)
	}
	if got[1].Kind != runtime.EventFinished {
		t.Errorf("event 1: got kind %v, want %v", got[1].Kind, runtime.EventFinished)
	}
}

func TestThrottle_CloseIdempotent(t *testing.T) {
	var log eventLog
	th := NewThrottledHandler(log.handle, ThrottleConfig{})
	th.Close()
	th.Close()

	th.Handle(valueEvent("sub-1", 1))
	th.Handle(runtime.NewEvent(runtime.EventFinished, "stream", "sub-1"))
	got := log.snapshot()
	if len(got) != 1 || got[0].Kind != runtime.EventFinished {
		t.Errorf("got %v, want only the finished event after close", got)
	}
}

func TestThrottle_TerminalWaitsForInFlightFlush(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var log eventLog
	var once sync.Once
	handle := func(e runtime.Event) {
		if e.Kind == runtime.EventValue {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		log.handle(e)
	}

	th := NewThrottledHandler(handle, ThrottleConfig{CoalesceInterval: 5 * time.Millisecond})
	defer th.Close()

	th.Handle(valueEvent("sub-1", 1))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("value was never flushed")
	}

	finished := make(chan struct{})
	go func() {
		th.Handle(runtime.NewEvent(runtime.EventFinished, "stream", "sub-1"))
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("terminal event delivered while a flushed value was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-finished

	got := log.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(got), got)
	}
	if got[0].Kind != runtime.EventValue || got[1].Kind != runtime.EventFinished {
		t.Errorf("got order [%v %v], want [%v %v]", got[0].Kind, got[1].Kind, runtime.EventValue, runtime.EventFinished)
	}
}
