package petalstream

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/petalstream/core"
)

func TestSink(t *testing.T) {
	t.Run("values then completion", func(t *testing.T) {
		var got []string
		var done []core.Completion
		Sink(Sequence("a", "b"),
			func(c core.Completion) { done = append(done, c) },
			func(v string) { got = append(got, v) },
		)

		if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
		if len(done) != 1 || !done[0].IsFinished() {
			t.Errorf("got completions %v, want one finished", done)
		}
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		var got error
		Sink(Fail[int](boom), func(c core.Completion) { got = c.Err }, nil)
		if !errors.Is(got, boom) {
			t.Errorf("got %v, want %v", got, boom)
		}
	})

	t.Run("cancel silences callbacks", func(t *testing.T) {
		s := NewPassthroughSubject[int]()
		calls := 0
		c := Sink[int](s, func(core.Completion) { calls++ }, func(int) { calls++ })
		c.Cancel()
		s.Send(1)
		s.SendCompletion(core.Finished)
		if calls != 0 {
			t.Errorf("got %d callbacks after cancel, want 0", calls)
		}
	})
}

func TestAssign(t *testing.T) {
	type label struct{ text string }
	l := &label{}
	s := NewCurrentValueSubject("initial")
	c := Assign[string](s, func(v string) { l.text = v })
	defer c.Cancel()

	if l.text != "initial" {
		t.Errorf("got %q, want %q", l.text, "initial")
	}
	s.Send("updated")
	if l.text != "updated" {
		t.Errorf("got %q, want %q", l.text, "updated")
	}
}
