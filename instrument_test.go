package petalstream

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/runtime"
	"github.com/petal-labs/petalstream/streamtest"
)

func TestInstrument(t *testing.T) {
	t.Run("lifecycle", func(t *testing.T) {
		events := streamtest.NewEventRecorder()
		rec := streamtest.Unlimited[int]()
		Instrument(Sequence(1, 2), "numbers", events.Handle).Subscribe(rec)

		want := []runtime.EventKind{
			runtime.EventSubscribed,
			runtime.EventRequested,
			runtime.EventValue,
			runtime.EventValue,
			runtime.EventFinished,
		}
		if diff := cmp.Diff(want, events.Kinds()); diff != "" {
			t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
		}

		evs := events.Events()
		id := evs[0].SubscriptionID
		if id == "" {
			t.Fatal("expected a subscription ID")
		}
		for i, e := range evs {
			if e.Stream != "numbers" {
				t.Errorf("event %d: got stream %q, want %q", i, e.Stream, "numbers")
			}
			if e.SubscriptionID != id {
				t.Errorf("event %d: got subscription %q, want %q", i, e.SubscriptionID, id)
			}
			if e.Seq != uint64(i+1) {
				t.Errorf("event %d: got seq %d, want %d", i, e.Seq, i+1)
			}
		}
		if evs[1].Demand != "unlimited" {
			t.Errorf("got demand %q, want %q", evs[1].Demand, "unlimited")
		}
		if evs[3].Value != 2 {
			t.Errorf("got value %v, want 2", evs[3].Value)
		}
	})

	t.Run("separate subscriptions", func(t *testing.T) {
		events := streamtest.NewEventRecorder()
		p := Instrument(Just("x"), "just", events.Handle)
		p.Subscribe(streamtest.Unlimited[string]())
		p.Subscribe(streamtest.Unlimited[string]())

		ids := map[string]bool{}
		for _, e := range events.Events() {
			ids[e.SubscriptionID] = true
		}
		if len(ids) != 2 {
			t.Errorf("got %d subscription IDs, want 2", len(ids))
		}
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		events := streamtest.NewEventRecorder()
		Instrument(Fail[int](boom), "failing", events.Handle).Subscribe(streamtest.Unlimited[int]())

		evs := events.Events()
		last := evs[len(evs)-1]
		if last.Kind != runtime.EventFailed {
			t.Fatalf("got kind %v, want %v", last.Kind, runtime.EventFailed)
		}
		if !errors.Is(last.Err, boom) {
			t.Errorf("got %v, want %v", last.Err, boom)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		events := streamtest.NewEventRecorder()
		s := NewPassthroughSubject[int]()
		rec := streamtest.Unlimited[int]()
		Instrument[int](s, "subject", events.Handle).Subscribe(rec)
		s.Send(1)
		rec.Cancel()
		rec.Cancel()
		s.Send(2)

		if got := events.Count(runtime.EventCancelled); got != 1 {
			t.Errorf("got %d cancel events, want 1", got)
		}
		if got := events.Count(runtime.EventValue); got != 1 {
			t.Errorf("got %d value events, want 1", got)
		}
	})
}

func TestHandleEvents(t *testing.T) {
	var log []string
	hooks := Hooks[int]{
		OnSubscription: func() { log = append(log, "subscribe") },
		OnRequest:      func(d core.Demand) { log = append(log, "request "+d.String()) },
		OnValue:        func(int) { log = append(log, "value") },
		OnCompletion:   func(c core.Completion) { log = append(log, "completion "+c.String()) },
	}
	rec := streamtest.NewRecorder[int](core.Max(1), core.Max(1))
	HandleEvents(Sequence(7, 8), hooks).Subscribe(rec)

	want := []string{
		"subscribe",
		"request max(1)",
		"value",
		"request max(1)",
		"value",
		"request max(1)",
		"completion finished",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("hooks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{7, 8}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := streamtest.Unlimited[string]()
	Print(Sequence("a"), "publisher", logger).Subscribe(rec)

	out := buf.String()
	for _, want := range []string{
		"publisher: subscription.started",
		"publisher: subscription.request",
		"publisher: subscription.value",
		"value=a",
		"publisher: subscription.finished",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}
