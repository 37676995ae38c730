package rational

import "testing"

func TestAddExact(t *testing.T) {
	// 1/3 cycle advanced three times must land exactly on 1, never 0.999999...
	step := New(1, 3)
	sum := Zero()
	for i := 0; i < 3; i++ {
		sum = sum.Add(step)
	}
	if sum.Cmp(FromInt(1)) != 0 {
		t.Fatalf("sum = %s, want 1", sum)
	}
}

func TestFloorAndFrac(t *testing.T) {
	tests := []struct {
		num, den int64
		floor    int64
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{0, 1, 0},
		{4, 2, 2},
	}
	for _, tt := range tests {
		c := New(tt.num, tt.den)
		if got := c.Floor(); got != tt.floor {
			t.Errorf("New(%d,%d).Floor() = %d, want %d", tt.num, tt.den, got, tt.floor)
		}
		frac := c.Frac()
		if frac.Lt(Zero()) || frac.Gte(FromInt(1)) {
			t.Errorf("Frac() = %s, want in [0,1)", frac)
		}
	}
}

func TestSpanIntersect(t *testing.T) {
	a := NewSpan(FromInt(0), FromInt(2))
	b := NewSpan(FromInt(1), FromInt(3))
	got, ok := a.Intersect(b)
	if !ok {
		t.Fatal("expected overlap")
	}
	if got.Begin.Cmp(FromInt(1)) != 0 || got.End.Cmp(FromInt(2)) != 0 {
		t.Errorf("intersect = [%s,%s), want [1,2)", got.Begin, got.End)
	}

	c := NewSpan(FromInt(2), FromInt(3))
	if _, ok := a.Intersect(c); ok {
		t.Error("half-open spans [0,2) and [2,3) must not overlap")
	}
}

func TestCmpOrdering(t *testing.T) {
	if !New(1, 2).Lt(New(2, 3)) {
		t.Error("1/2 should be less than 2/3")
	}
	if !New(3, 3).Gte(FromInt(1)) {
		t.Error("3/3 should equal 1")
	}
}

func TestNumeratorDenominatorExposeReducedFraction(t *testing.T) {
	c := New(4, 8) // reduces to 1/2
	if c.Numerator() != 1 || c.Denominator() != 2 {
		t.Errorf("got %d/%d, want 1/2", c.Numerator(), c.Denominator())
	}
}
