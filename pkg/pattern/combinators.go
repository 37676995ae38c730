package pattern

import (
	"hash/fnv"
	"math"

	"github.com/justyntemme/synthgo/pkg/rational"
)

// Fast plays k cycles of p per one outer cycle.
func Fast(p Pattern, k rational.Cycle) Pattern {
	if k.IsZero() {
		return Silent()
	}
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		inner := rational.NewSpan(span.Begin.Mul(k), span.End.Mul(k))
		var out []Event
		for _, ev := range p.Query(inner) {
			out = append(out, scaleEvent(ev, k, true))
		}
		return out
	}
	return pat
}

// Slow plays 1/k cycles of p per one outer cycle.
func Slow(p Pattern, k rational.Cycle) Pattern {
	if k.IsZero() {
		return Silent()
	}
	return Fast(p, rational.FromInt(1).Quo(k))
}

// scaleEvent divides an event's Part and Whole by k; Fast queries the inner
// pattern at span*k and uses this to bring results back to outer time. The
// bool argument is ignored: the span is always divided, never multiplied.
func scaleEvent(ev Event, k rational.Cycle, _ bool) Event {
	part := rational.NewSpan(ev.Part.Begin.Quo(k), ev.Part.End.Quo(k))
	ev.Part = part
	if ev.Whole != nil {
		w := rational.NewSpan(ev.Whole.Begin.Quo(k), ev.Whole.End.Quo(k))
		ev.Whole = &w
	}
	return ev
}

// Rev mirrors each cycle around its midpoint; events come back in time order.
func Rev(p Pattern) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			cycleStart := rational.FromInt(cycleIdx)
			cycleEnd := cycleStart.Add(rational.FromInt(1))
			mirror := func(t rational.Cycle) rational.Cycle {
				return cycleStart.Add(cycleEnd).Sub(t)
			}
			mirroredSpan := rational.NewSpan(mirror(sub.End), mirror(sub.Begin))
			evs := p.Query(mirroredSpan)
			for i := len(evs) - 1; i >= 0; i-- {
				ev := evs[i]
				part := rational.NewSpan(mirror(ev.Part.End), mirror(ev.Part.Begin))
				ev.Part = part
				if ev.Whole != nil {
					w := rational.NewSpan(mirror(ev.Whole.End), mirror(ev.Whole.Begin))
					ev.Whole = &w
				}
				out = append(out, ev)
			}
		}
		return out
	}
	return pat
}

// CycleFunc transforms p differently depending on the current cycle index.
type CycleFunc func(p Pattern) Pattern

// perCycle queries p cycle by cycle, calling pick(cycleIdx) to choose which
// transform of p applies to that cycle. This underlies every(), whenmod(),
// palindrome(), and focus().
func perCycle(p Pattern, pick func(cycleIdx int64) Pattern) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			out = append(out, pick(cycleIdx).Query(sub)...)
		}
		return out
	}
	return pat
}

// Every applies f on cycles where cycle % n == 0, identity otherwise.
func Every(p Pattern, n int64, f CycleFunc) Pattern {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	return perCycle(p, func(cycleIdx int64) Pattern {
		if mod(cycleIdx, n) == 0 {
			return transformed
		}
		return p
	})
}

// Whenmod applies f on cycles where (cycle - offset) % n == 0.
func Whenmod(p Pattern, n, offset int64, f CycleFunc) Pattern {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	return perCycle(p, func(cycleIdx int64) Pattern {
		if mod(cycleIdx-offset, n) == 0 {
			return transformed
		}
		return p
	})
}

func mod(a, n int64) int64 {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// stableHash derives a deterministic float in [0,1) from a seed and a
// cycle-time, used to make degrade_by reproducible per event start time
// rather than per call.
func stableHash(seed int64, t rational.Cycle) float64 {
	h := fnv.New64a()
	var buf [16]byte
	u := uint64(seed)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	f := t.Float64()
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(bits >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	sum := h.Sum64()
	// Top 53 bits give a uniform float64 in [0,1).
	return float64(sum>>11) / float64(uint64(1)<<53)
}

// DegradeSeed drops each event with probability p, the decision seeded by a
// stable hash of the event's own start time and the given seed, so repeated
// queries of the same span are deterministic.
func DegradeSeed(p Pattern, seed int64, prob float64) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		events := p.Query(span)
		out := events[:0:0]
		for _, ev := range events {
			if stableHash(seed, ev.Part.Begin) >= prob {
				out = append(out, ev)
			}
		}
		return out
	}
	return pat
}

// DegradeBy is DegradeSeed with a fixed default seed.
func DegradeBy(p Pattern, prob float64) Pattern {
	return DegradeSeed(p, 0, prob)
}

// Undegrade is identity, present only so combinator chains that alternate
// degrade_by/undegrade for readability type-check symmetrically.
func Undegrade(p Pattern) Pattern {
	return p
}

// SometimesBy applies f to prob of events and leaves the rest untouched.
// Events are split by stable hash of their start time so the two halves
// partition the set instead of overlapping or double-counting.
func SometimesBy(p Pattern, prob float64, f CycleFunc) Pattern {
	untouched := DegradeSeed(p, 1, prob)     // hash >= prob survive as-is
	transformed := f(keepBelow(p, 1, prob))  // hash < prob get transformed
	return Stack(untouched, transformed)
}

// keepBelow is DegradeSeed's complement: keeps events whose stable hash is
// strictly less than prob.
func keepBelow(p Pattern, seed int64, prob float64) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		events := p.Query(span)
		out := events[:0:0]
		for _, ev := range events {
			if stableHash(seed, ev.Part.Begin) < prob {
				out = append(out, ev)
			}
		}
		return out
	}
	return pat
}

// Sometimes applies f to half of events (probability 0.5).
func Sometimes(p Pattern, f CycleFunc) Pattern { return SometimesBy(p, 0.5, f) }

// Often applies f to 75% of events.
func Often(p Pattern, f CycleFunc) Pattern { return SometimesBy(p, 0.75, f) }

// Rarely applies f to 25% of events.
func Rarely(p Pattern, f CycleFunc) Pattern { return SometimesBy(p, 0.25, f) }

// Always applies f unconditionally.
func Always(p Pattern, f CycleFunc) Pattern { return f(p) }

// AlmostAlways applies f to 90% of events.
func AlmostAlways(p Pattern, f CycleFunc) Pattern { return SometimesBy(p, 0.9, f) }

// AlmostNever applies f to 10% of events.
func AlmostNever(p Pattern, f CycleFunc) Pattern { return SometimesBy(p, 0.1, f) }

// Superimpose stacks p with f(p).
func Superimpose(p Pattern, f CycleFunc) Pattern {
	return Stack(p, f(p))
}

// Chunk splits each cycle into n chunks and applies f to whichever chunk
// index equals cycle % n, leaving the rest of the cycle untouched.
func Chunk(p Pattern, n int64, f CycleFunc) Pattern {
	if n <= 0 {
		return p
	}
	transformed := f(p)
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			activeChunk := mod(cycleIdx, n)
			cycleStart := rational.FromInt(cycleIdx)
			width := rational.New(1, n)
			chunkBegin := cycleStart.Add(width.Mul(rational.FromInt(activeChunk)))
			chunkEnd := chunkBegin.Add(width)
			chunkSpan := rational.NewSpan(chunkBegin, chunkEnd)

			if part, ok := sub.Intersect(chunkSpan); ok {
				out = append(out, transformed.Query(part)...)
			}
			if before, ok := sub.Intersect(rational.NewSpan(cycleStart, chunkBegin)); ok {
				out = append(out, p.Query(before)...)
			}
			if after, ok := sub.Intersect(rational.NewSpan(chunkEnd, cycleStart.Add(rational.FromInt(1)))); ok {
				out = append(out, p.Query(after)...)
			}
		}
		return out
	}
	return pat
}

// Stutter repeats each event n times within its own original arc.
func Stutter(p Pattern, n int64) Pattern {
	if n <= 1 {
		return p
	}
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, ev := range p.Query(span) {
			whole := ev.Part
			if ev.Whole != nil {
				whole = *ev.Whole
			}
			width := whole.Duration().Quo(rational.FromInt(n))
			for i := int64(0); i < n; i++ {
				subBegin := whole.Begin.Add(width.Mul(rational.FromInt(i)))
				subEnd := subBegin.Add(width)
				subWhole := rational.NewSpan(subBegin, subEnd)
				if part, ok := subWhole.Intersect(span); ok {
					out = append(out, Event{Whole: &subWhole, Part: part, Value: ev.Value})
				}
			}
		}
		return out
	}
	return pat
}

// Palindrome alternates between p and Rev(p) on successive cycles.
func Palindrome(p Pattern) Pattern {
	reversed := Rev(p)
	return perCycle(p, func(cycleIdx int64) Pattern {
		if mod(cycleIdx, 2) == 0 {
			return p
		}
		return reversed
	})
}

// Loopback plays p forward then reversed within each cycle (first half
// forward at double speed, second half the mirror of the first).
func Loopback(p Pattern) Pattern {
	fwd := Fast(p, rational.FromInt(2))
	rev := Rev(fwd)
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			cycleStart := rational.FromInt(cycleIdx)
			mid := cycleStart.Add(rational.New(1, 2))
			cycleEnd := cycleStart.Add(rational.FromInt(1))
			if part, ok := sub.Intersect(rational.NewSpan(cycleStart, mid)); ok {
				out = append(out, fwd.Query(part)...)
			}
			if part, ok := sub.Intersect(rational.NewSpan(mid, cycleEnd)); ok {
				shifted := rational.NewSpan(part.Begin.Sub(rational.New(1, 2)), part.End.Sub(rational.New(1, 2)))
				for _, ev := range rev.Query(shifted) {
					out = append(out, ev.shiftedBy(rational.New(1, 2)))
				}
			}
		}
		return out
	}
	return pat
}

// Euclid plays p on the k out of n equally-spaced steps per cycle that
// Bjorklund's algorithm marks as pulses; each pulse carries the value p has
// at the start of its step.
func Euclid(p Pattern, k, n int) Pattern {
	steps := FromSeq(boolsToValues(bjorklund(k, n)))
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, te := range steps.Query(span) {
			if !asBool(te.Value) {
				continue
			}
			for _, ev := range p.Query(te.Part) {
				if ev.Part.Contains(te.Part.Begin) {
					out = append(out, Event{Whole: te.Whole, Part: te.Part, Value: ev.Value})
					break
				}
			}
		}
		return out
	}
	return pat
}

func boolsToValues(bs []bool) []Value {
	out := make([]Value, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

// Binary drops steps where the corresponding bit of mask (LSB = step 0) is
// 0, out of the given number of steps per cycle.
func Binary(p Pattern, mask uint64, steps int) Pattern {
	bits := make([]bool, steps)
	for i := 0; i < steps; i++ {
		bits[i] = (mask>>uint(i))&1 == 1
	}
	trigger := FromSeq(boolsToValues(bits))
	return maskByTrigger(p, trigger)
}

// maskByTrigger keeps events of p only where the boolean trigger pattern is
// true at that event's start.
func maskByTrigger(p, trigger Pattern) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		triggerEvents := trigger.Query(span)
		var out []Event
		for _, ev := range p.Query(span) {
			for _, te := range triggerEvents {
				if te.Part.Contains(ev.Part.Begin) && asBool(te.Value) {
					out = append(out, ev)
					break
				}
			}
		}
		return out
	}
	return pat
}

func asBool(v Value) bool {
	switch b := v.(type) {
	case bool:
		return b
	default:
		return false
	}
}

// Range maps numeric pattern values from [-1, 1] to [lo, hi].
func Range(p Pattern, lo, hi float64) Pattern {
	return mapNumeric(p, func(v float64) float64 {
		return lo + (v+1)/2*(hi-lo)
	})
}

// Quantize rounds numeric values to the nearest 1/steps.
func Quantize(p Pattern, steps int) Pattern {
	if steps <= 0 {
		return p
	}
	s := float64(steps)
	return mapNumeric(p, func(v float64) float64 {
		return math.Round(v*s) / s
	})
}

func mapNumeric(p Pattern, f func(float64) float64) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		events := p.Query(span)
		out := make([]Event, len(events))
		for i, ev := range events {
			if v, ok := asFloat(ev.Value); ok {
				ev.Value = f(v)
			}
			out[i] = ev
		}
		return out
	}
	return pat
}

func asFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Smooth exponentially interpolates between successive numeric values
// rather than stepping discretely; amt in (0,1), 0 = no smoothing.
func Smooth(p Pattern, amt float64) Pattern {
	pat := Pattern{discrete: false}
	pat.query = func(span rational.Span) []Event {
		events := p.Query(span)
		if len(events) == 0 {
			return nil
		}
		out := make([]Event, len(events))
		var prev float64
		havePrev := false
		for i, ev := range events {
			v, ok := asFloat(ev.Value)
			if !ok {
				out[i] = ev
				continue
			}
			if havePrev {
				v = prev + (v-prev)*(1-amt)
			}
			prev = v
			havePrev = true
			ev.Value = v
			out[i] = ev
		}
		return out
	}
	return pat
}

// Focus only plays cycles [a, b) of the inner pattern; outside that window
// the result is silent.
func Focus(p Pattern, a, b int64) Pattern {
	return perCycle(p, func(cycleIdx int64) Pattern {
		if cycleIdx >= a && cycleIdx < b {
			return p
		}
		return Silent()
	})
}

// Trim restricts the query to the [a, b) portion of every cycle.
func Trim(p Pattern, a, b rational.Cycle) Pattern {
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			cycleStart := rational.FromInt(cycleIdx)
			window := rational.NewSpan(cycleStart.Add(a), cycleStart.Add(b))
			if part, ok := sub.Intersect(window); ok {
				out = append(out, p.Query(part)...)
			}
		}
		return out
	}
	return pat
}

// Accelerate warps time within the query quadratically: t maps to t*(1+rate*t).
func Accelerate(p Pattern, rate float64) Pattern {
	warp := func(t rational.Cycle) rational.Cycle {
		tf := t.Float64()
		return rational.FromFloat(tf * (1 + rate*tf))
	}
	pat := Pattern{discrete: p.discrete}
	pat.query = func(span rational.Span) []Event {
		warped := rational.NewSpan(warp(span.Begin), warp(span.End))
		return p.Query(warped)
	}
	return pat
}
