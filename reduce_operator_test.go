package petalstream

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/streamtest"
)

// single subscribes with unlimited demand and returns the recorder.
func single[T any](t *testing.T, p core.Publisher[T]) *streamtest.Recorder[T] {
	t.Helper()
	rec := streamtest.Unlimited[T]()
	p.Subscribe(rec)
	if !rec.Finished() {
		c, _ := rec.Completion()
		t.Fatalf("expected finished, got %v", c)
	}
	return rec
}

func TestMinMax(t *testing.T) {
	tests := []struct {
		name string
		p    core.Publisher[int]
		want []int
	}{
		{name: "min", p: Min(Sequence(1, -50, 246, 0)), want: []int{-50}},
		{name: "max", p: Max(Sequence(1, -50, 246, 0)), want: []int{246}},
		{name: "min empty", p: Min(Empty[int]()), want: []int{}},
		{name: "max empty", p: Max(Empty[int]()), want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := single(t, tt.p)
			if diff := cmp.Diff(tt.want, rec.Values()); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMinByMaxBy(t *testing.T) {
	byLen := func(a, b string) bool { return len(a) < len(b) }
	words := Sequence("12345", "ab", "cd", "hello world", "hello earth")

	if diff := cmp.Diff([]string{"ab"}, single(t, MinBy(words, byLen)).Values()); diff != "" {
		t.Errorf("MinBy mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hello world"}, single(t, MaxBy(words, byLen)).Values()); diff != "" {
		t.Errorf("MaxBy mismatch (-want +got):\n%s", diff)
	}
}

func TestFirst(t *testing.T) {
	rec := single(t, First(Sequence("A", "B", "C")))
	if diff := cmp.Diff([]string{"A"}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstWhere(t *testing.T) {
	var seen []string
	up := HandleEvents(Sequence("J", "O", "H", "N"), Hooks[string]{
		OnValue: func(v string) { seen = append(seen, v) },
	})
	inHello := func(v string) bool {
		return strings.Contains(strings.ToLower("Hello World"), strings.ToLower(v))
	}

	rec := single(t, FirstWhere(up, inHello))
	if diff := cmp.Diff([]string{"O"}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"J", "O"}, seen); diff != "" {
		t.Errorf("upstream consumed past the match (-want +got):\n%s", diff)
	}
}

func TestLast(t *testing.T) {
	rec := single(t, Last(Sequence("A", "B", "C")))
	if diff := cmp.Diff([]string{"C"}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestLastWaitsForCompletion(t *testing.T) {
	s := NewPassthroughSubject[string]()
	rec := streamtest.Unlimited[string]()
	Last[string](s).Subscribe(rec)
	s.Send("A")
	s.Send("B")
	if len(rec.Values()) != 0 {
		t.Fatalf("expected nothing before completion, got %v", rec.Values())
	}
	s.SendCompletion(core.Finished)
	if diff := cmp.Diff([]string{"B"}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputAt(t *testing.T) {
	t.Run("in range", func(t *testing.T) {
		rec := single(t, OutputAt(Sequence("A", "B", "C"), 1))
		if diff := cmp.Diff([]string{"B"}, rec.Values()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		rec := single(t, OutputAt(Sequence("A", "B", "C"), 5))
		if len(rec.Values()) != 0 {
			t.Errorf("expected no values, got %v", rec.Values())
		}
	})

	t.Run("negative index", func(t *testing.T) {
		rec := streamtest.Unlimited[string]()
		OutputAt(Sequence("A"), -1).Subscribe(rec)
		c, _ := rec.Completion()
		if !errors.Is(c.Err, ErrInvalidCount) {
			t.Errorf("got %v, want %v", c.Err, ErrInvalidCount)
		}
	})
}

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		p    core.Publisher[string]
		want int
	}{
		{name: "three", p: Sequence("A", "B", "C"), want: 3},
		{name: "empty", p: Empty[string](), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := single(t, Count(tt.p))
			if diff := cmp.Diff([]int{tt.want}, rec.Values()); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContains(t *testing.T) {
	letters := Sequence("A", "B", "C", "D", "E")
	tests := []struct {
		name string
		p    core.Publisher[bool]
		want bool
	}{
		{name: "present", p: Contains(letters, "C"), want: true},
		{name: "absent", p: Contains(letters, "Z"), want: false},
		{name: "where", p: ContainsWhere(letters, func(s string) bool { return s > "D" }), want: true},
		{name: "empty", p: Contains(Empty[string](), "A"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := single(t, tt.p)
			if diff := cmp.Diff([]bool{tt.want}, rec.Values()); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllSatisfy(t *testing.T) {
	isEven := func(v int) bool { return v%2 == 0 }

	t.Run("stops at first failure", func(t *testing.T) {
		var seen []int
		cancelled := false
		up := HandleEvents(Sequence(0, 1, 2, 3, 4, 5), Hooks[int]{
			OnValue:  func(v int) { seen = append(seen, v) },
			OnCancel: func() { cancelled = true },
		})

		rec := single(t, AllSatisfy(up, isEven))
		if diff := cmp.Diff([]bool{false}, rec.Values()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{0, 1}, seen); diff != "" {
			t.Errorf("upstream consumed past the failure (-want +got):\n%s", diff)
		}
		if !cancelled {
			t.Error("expected upstream to be cancelled")
		}
	})

	t.Run("all even", func(t *testing.T) {
		rec := single(t, AllSatisfy(Sequence(0, 2, 4), isEven))
		if diff := cmp.Diff([]bool{true}, rec.Values()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty", func(t *testing.T) {
		rec := single(t, AllSatisfy(Empty[int](), isEven))
		if diff := cmp.Diff([]bool{true}, rec.Values()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestReduce(t *testing.T) {
	rec := single(t, Reduce(Sequence("Hel", "lo", " ", "Wor", "ld", "!"), "", func(acc, v string) string {
		return acc + v
	}))
	if diff := cmp.Diff([]string{"Hello World!"}, rec.Values()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestReducerDemand(t *testing.T) {
	t.Run("requests unlimited on first demand", func(t *testing.T) {
		var requested []core.Demand
		up := HandleEvents(Sequence(3, 1, 2), Hooks[int]{
			OnRequest: func(d core.Demand) { requested = append(requested, d) },
		})
		rec := streamtest.NewRecorder[int](core.None, core.None)
		Min(up).Subscribe(rec)
		if len(requested) != 0 {
			t.Fatalf("expected no upstream request before demand, got %v", requested)
		}

		rec.Request(core.Max(1))
		if len(requested) != 1 || !requested[0].IsUnlimited() {
			t.Errorf("got upstream requests %v, want [unlimited]", requested)
		}
		if diff := cmp.Diff([]int{1}, rec.Values()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failure passes through", func(t *testing.T) {
		boom := errors.New("boom")
		rec := streamtest.Unlimited[int]()
		Reduce(Fail[int](boom), 0, func(a, v int) int { return a + v }).Subscribe(rec)
		if len(rec.Values()) != 0 {
			t.Errorf("expected no values, got %v", rec.Values())
		}
		c, _ := rec.Completion()
		if !errors.Is(c.Err, boom) {
			t.Errorf("got %v, want %v", c.Err, boom)
		}
	})
}
