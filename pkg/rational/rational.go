// Package rational provides exact cycle-position arithmetic for the engine.
//
// Floating-point cycle arithmetic drifts roughly 1ppm/hour across a long
// session; a Cycle value never does, because it is backed by math/big.Rat
// and only ever reduced, added, and compared exactly (see DESIGN.md for
// why this stays on the standard library rather than a third-party
// rational type).
package rational

import "math/big"

// Cycle is an exact rational position or duration measured in cycles.
type Cycle struct {
	r *big.Rat
}

// Zero is the additive identity.
func Zero() Cycle {
	return Cycle{r: new(big.Rat)}
}

// FromInt builds a whole-cycle count.
func FromInt(n int64) Cycle {
	return Cycle{r: new(big.Rat).SetInt64(n)}
}

// New builds num/den, reduced.
func New(num, den int64) Cycle {
	return Cycle{r: new(big.Rat).SetFrac64(num, den)}
}

// FromFloat approximates a float64 as a rational; used only at the
// boundary where a host supplies sample rate/tempo as floats.
func FromFloat(f float64) Cycle {
	r := new(big.Rat)
	r.SetFloat64(f)
	if r == nil {
		return Zero()
	}
	return Cycle{r: r}
}

func (c Cycle) rat() *big.Rat {
	if c.r == nil {
		return new(big.Rat)
	}
	return c.r
}

// Add returns c + other.
func (c Cycle) Add(other Cycle) Cycle {
	return Cycle{r: new(big.Rat).Add(c.rat(), other.rat())}
}

// Sub returns c - other.
func (c Cycle) Sub(other Cycle) Cycle {
	return Cycle{r: new(big.Rat).Sub(c.rat(), other.rat())}
}

// Mul returns c * other.
func (c Cycle) Mul(other Cycle) Cycle {
	return Cycle{r: new(big.Rat).Mul(c.rat(), other.rat())}
}

// Quo returns c / other. Panics if other is zero, matching big.Rat.Quo.
func (c Cycle) Quo(other Cycle) Cycle {
	return Cycle{r: new(big.Rat).Quo(c.rat(), other.rat())}
}

// Neg returns -c.
func (c Cycle) Neg() Cycle {
	return Cycle{r: new(big.Rat).Neg(c.rat())}
}

// Cmp returns -1, 0, or +1 as c is <, ==, or > other.
func (c Cycle) Cmp(other Cycle) int {
	return c.rat().Cmp(other.rat())
}

// Lt, Lte, Gt, Gte are Cmp convenience wrappers.
func (c Cycle) Lt(other Cycle) bool  { return c.Cmp(other) < 0 }
func (c Cycle) Lte(other Cycle) bool { return c.Cmp(other) <= 0 }
func (c Cycle) Gt(other Cycle) bool  { return c.Cmp(other) > 0 }
func (c Cycle) Gte(other Cycle) bool { return c.Cmp(other) >= 0 }

// IsZero reports whether c is exactly zero.
func (c Cycle) IsZero() bool {
	return c.rat().Sign() == 0
}

// Float64 converts to a float64, only for the per-sample phase computation
// or display — never for accumulation, which must stay exact.
func (c Cycle) Float64() float64 {
	f, _ := c.rat().Float64()
	return f
}

// Floor returns the greatest whole-cycle count <= c, i.e. the cycle index.
func (c Cycle) Floor() int64 {
	q := new(big.Int)
	r := new(big.Int)
	num := c.rat().Num()
	den := c.rat().Denom()
	q.QuoRem(num, den, r)
	if r.Sign() != 0 && num.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return q.Int64()
}

// Frac returns c - Floor(c), always in [0, 1).
func (c Cycle) Frac() Cycle {
	return c.Sub(FromInt(c.Floor()))
}

// String renders num/den for logs and tests.
func (c Cycle) String() string {
	return c.rat().RatString()
}

// Numerator and Denominator expose the reduced fraction's components, for
// callers that need to publish a cycle position as a lock-free snapshot
// (two int64 atomics) rather than share the big.Rat itself across threads.
func (c Cycle) Numerator() int64 {
	return c.rat().Num().Int64()
}

func (c Cycle) Denominator() int64 {
	return c.rat().Denom().Int64()
}

// Span is a half-open cycle-time interval [Begin, End).
type Span struct {
	Begin Cycle
	End   Cycle
}

// NewSpan builds a span, no ordering check (callers may build degenerate
// spans deliberately, e.g. zero-width queries).
func NewSpan(begin, end Cycle) Span {
	return Span{Begin: begin, End: end}
}

// Duration returns End - Begin.
func (s Span) Duration() Cycle {
	return s.End.Sub(s.Begin)
}

// Intersect returns the overlap of s and other, and whether it is non-empty.
func (s Span) Intersect(other Span) (Span, bool) {
	begin := s.Begin
	if other.Begin.Gt(begin) {
		begin = other.Begin
	}
	end := s.End
	if other.End.Lt(end) {
		end = other.End
	}
	if begin.Gte(end) {
		return Span{}, false
	}
	return Span{Begin: begin, End: end}, true
}

// Contains reports whether t lies in [Begin, End).
func (s Span) Contains(t Cycle) bool {
	return t.Gte(s.Begin) && t.Lt(s.End)
}

// WithTime returns a span shifted so Begin/End are offset by delta.
func (s Span) WithTime(delta Cycle) Span {
	return Span{Begin: s.Begin.Add(delta), End: s.End.Add(delta)}
}
