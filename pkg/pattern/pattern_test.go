package pattern

import (
	"testing"

	"github.com/justyntemme/synthgo/pkg/rational"
)

func fullCycles(n int64) rational.Span {
	return rational.NewSpan(rational.Zero(), rational.FromInt(n))
}

func values(events []Event) []Value {
	out := make([]Value, len(events))
	for i, e := range events {
		out[i] = e.Value
	}
	return out
}

func TestFastOneIsIdentity(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c", "d"})
	got := Fast(p, rational.FromInt(1)).Query(fullCycles(1))
	want := p.Query(fullCycles(1))
	if len(got) != len(want) {
		t.Fatalf("fast(1) changed event count: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Part.Begin.Cmp(want[i].Part.Begin) != 0 || got[i].Value != want[i].Value {
			t.Errorf("event %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestSlowFastRoundTrip(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c", "d"})
	k := rational.FromInt(3)
	roundTripped := Slow(Fast(p, k), k)
	got := roundTripped.Query(fullCycles(2))
	want := p.Query(fullCycles(2))
	if len(got) != len(want) {
		t.Fatalf("slow(k)(fast(k)(p)) event count = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Part.Begin.Cmp(want[i].Part.Begin) != 0 {
			t.Errorf("event %d begin = %s, want %s", i, got[i].Part.Begin, want[i].Part.Begin)
		}
		if got[i].Value != want[i].Value {
			t.Errorf("event %d value = %v, want %v", i, got[i].Value, want[i].Value)
		}
	}
}

func TestRevRevIsIdentity(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c"})
	got := Rev(Rev(p)).Query(fullCycles(1))
	want := p.Query(fullCycles(1))
	if len(got) != len(want) {
		t.Fatalf("rev(rev(p)) event count = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Value != want[i].Value {
			t.Errorf("event %d value = %v, want %v", i, got[i].Value, want[i].Value)
		}
	}
}

func TestRevReversesOrderWithinCycle(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c"})
	got := values(Rev(p).Query(fullCycles(1)))
	want := []Value{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDegradeByZeroIsIdentity(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c", "d", "e", "f", "g", "h"})
	got := DegradeBy(p, 0).Query(fullCycles(1))
	want := p.Query(fullCycles(1))
	if len(got) != len(want) {
		t.Fatalf("degrade_by(0) dropped events: got %d want %d", len(got), len(want))
	}
}

func TestDegradeByOneIsSilent(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c", "d"})
	got := DegradeBy(p, 1).Query(fullCycles(4))
	if len(got) != 0 {
		t.Fatalf("degrade_by(1) should drop everything, got %d events", len(got))
	}
}

func TestDegradeDeterministic(t *testing.T) {
	p := FromSeq([]Value{"a", "b", "c", "d", "e", "f", "g", "h"})
	d := DegradeSeed(p, 42, 0.5)
	first := values(d.Query(fullCycles(4)))
	second := values(d.Query(fullCycles(4)))
	if len(first) != len(second) {
		t.Fatalf("repeated query of same span gave different counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d differs between queries: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestSplitQueryEquivalence(t *testing.T) {
	p := Fast(FromSeq([]Value{"a", "b", "c"}), rational.FromInt(2))
	whole := p.Query(rational.NewSpan(rational.Zero(), rational.FromInt(3)))
	var split []Event
	split = append(split, p.Query(rational.NewSpan(rational.Zero(), rational.FromInt(1)))...)
	split = append(split, p.Query(rational.NewSpan(rational.FromInt(1), rational.FromInt(2)))...)
	split = append(split, p.Query(rational.NewSpan(rational.FromInt(2), rational.FromInt(3)))...)
	if len(whole) != len(split) {
		t.Fatalf("querying [0,3) directly vs in three [n,n+1) pieces gave %d vs %d events", len(whole), len(split))
	}
	for i := range whole {
		if whole[i].Value != split[i].Value {
			t.Errorf("event %d value mismatch: %v vs %v", i, whole[i].Value, split[i].Value)
		}
	}
}

func TestEuclidPulseCount(t *testing.T) {
	p := Pure("x")
	got := Euclid(p, 3, 8).Query(fullCycles(1))
	if len(got) != 3 {
		t.Fatalf("euclid(3,8) should fire 3 times, got %d", len(got))
	}
}

func TestEuclidKGreaterEqualNIsAllPulses(t *testing.T) {
	p := Pure("x")
	got := Euclid(p, 8, 8).Query(fullCycles(1))
	if len(got) != 8 {
		t.Fatalf("euclid(8,8) should fire every step, got %d", len(got))
	}
}

func TestRangeMapsUnitIntervalEndpoints(t *testing.T) {
	p := Pure(-1.0)
	events := Range(p, 20, 2000).Query(fullCycles(1))
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	got := events[0].Value.(float64)
	if got != 20 {
		t.Errorf("range(-1,1->20,2000) at -1 = %v, want 20", got)
	}
}

func TestQuantizeSnapsToSteps(t *testing.T) {
	p := Pure(0.37)
	got := Quantize(p, 4).Query(fullCycles(1))[0].Value.(float64)
	if got != 0.25 {
		t.Errorf("quantize(4) of 0.37 = %v, want 0.25", got)
	}
}

func TestStackUnion(t *testing.T) {
	a := Pure("a")
	b := Pure("b")
	got := Stack(a, b).Query(fullCycles(1))
	if len(got) != 2 {
		t.Fatalf("stack should union both patterns' events, got %d", len(got))
	}
}

func TestEveryAppliesOnMatchingCycleOnly(t *testing.T) {
	p := Pure("x")
	rev := func(q Pattern) Pattern { return Pure("y") }
	pat := Every(p, 3, rev)
	c0 := pat.Query(fullCycles(1))
	c1 := pat.Query(rational.NewSpan(rational.FromInt(1), rational.FromInt(2)))
	if c0[0].Value != "y" {
		t.Errorf("cycle 0 (0 mod 3) should be transformed, got %v", c0[0].Value)
	}
	if c1[0].Value != "x" {
		t.Errorf("cycle 1 should be untransformed, got %v", c1[0].Value)
	}
}
