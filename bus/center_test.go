package bus

import (
	"testing"
	"time"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/core"
)

func TestCenter_PostObserve(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewCenter(CenterConfig{Now: func() time.Time { return at }})
	defer c.Close()

	var got []Notification
	obs := c.AddObserver("MyNotification", func(n Notification) { got = append(got, n) })

	c.Post("MyNotification", 42)
	c.Post("Other", "ignored")

	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if got[0].Name != "MyNotification" {
		t.Errorf("got name %q, want %q", got[0].Name, "MyNotification")
	}
	if got[0].Object != 42 {
		t.Errorf("got object %v, want 42", got[0].Object)
	}
	if !got[0].Time.Equal(at) {
		t.Errorf("got time %v, want %v", got[0].Time, at)
	}

	obs.Cancel()
	c.Post("MyNotification", 43)
	if len(got) != 1 {
		t.Errorf("got %d notifications after cancel, want 1", len(got))
	}
	if n := c.Observers("MyNotification"); n != 0 {
		t.Errorf("got %d observers, want 0", n)
	}
}

func TestCenter_PublisherComposes(t *testing.T) {
	c := NewCenter(CenterConfig{})
	defer c.Close()

	var got []int
	petalstream.SinkValues(
		petalstream.Map(c.Publisher("numbers"), func(n Notification) int { return n.Object.(int) * 2 }),
		func(v int) { got = append(got, v) },
	)
	c.Post("numbers", 1)
	c.Post("numbers", 2)

	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("got %v, want [2 4]", got)
	}
}

func TestCenter_FanOut(t *testing.T) {
	c := NewCenter(CenterConfig{})
	defer c.Close()

	var order []string
	c.AddObserver("n", func(Notification) { order = append(order, "a") })
	c.AddObserver("n", func(Notification) { order = append(order, "b") })
	c.Post("n", nil)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("got %v, want [a b]", order)
	}
}

func TestCenter_Subscribe(t *testing.T) {
	c := NewCenter(CenterConfig{SubscriberBufferSize: 2})

	sub := c.Subscribe("events")
	c.Post("events", 1)
	c.Post("events", 2)
	c.Post("events", 3) // dropped, buffer full

	for _, want := range []int{1, 2} {
		select {
		case n := <-sub.Events():
			if n.Object != want {
				t.Errorf("got %v, want %d", n.Object, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected channel closed after center close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
	if err := sub.Close(); err != nil {
		t.Errorf("Close subscription: %v", err)
	}
}

func TestCenter_SubscriptionClose(t *testing.T) {
	c := NewCenter(CenterConfig{})
	defer c.Close()

	sub := c.Subscribe("events")
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	c.Post("events", 1)
	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel")
	}
	if n := c.Observers("events"); n != 0 {
		t.Errorf("got %d observers, want 0", n)
	}
}

func TestCenter_Close(t *testing.T) {
	c := NewCenter(CenterConfig{})

	var completions []core.Completion
	petalstream.Sink(c.Publisher("n"), func(comp core.Completion) {
		completions = append(completions, comp)
	}, nil)

	c.Close()
	c.Close()
	c.Post("n", 1)

	if len(completions) != 1 || !completions[0].IsFinished() {
		t.Errorf("got %v, want one finished completion", completions)
	}

	var late []core.Completion
	petalstream.Sink(c.Publisher("n"), func(comp core.Completion) {
		late = append(late, comp)
	}, nil)
	if len(late) != 1 {
		t.Errorf("expected late observer to finish immediately, got %v", late)
	}
}
