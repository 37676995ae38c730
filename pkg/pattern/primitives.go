package pattern

import (
	"github.com/justyntemme/synthgo/pkg/rational"
)

// Silent produces no events for any query.
func Silent() Pattern {
	return newPattern(func(span rational.Span) []Event {
		return nil
	})
}

// Pure emits one event spanning each whole cycle the query overlaps, with
// the clipped Part restricted to that cycle's overlap with the query.
func Pure(v Value) Pattern {
	return newPattern(func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleStart := rational.FromInt(sub.Begin.Floor())
			whole := rational.NewSpan(cycleStart, cycleStart.Add(rational.FromInt(1)))
			out = append(out, Event{Whole: &whole, Part: sub, Value: v})
		}
		return out
	})
}

// FromSeq divides each cycle into len(values) equal arcs and plays the i-th
// value in the i-th arc.
func FromSeq(values []Value) Pattern {
	n := int64(len(values))
	if n == 0 {
		return Silent()
	}
	return newPattern(func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			cycleStart := rational.FromInt(cycleIdx)
			step := rational.New(1, n)
			for i := int64(0); i < n; i++ {
				stepBegin := cycleStart.Add(step.Mul(rational.FromInt(i)))
				stepEnd := stepBegin.Add(step)
				stepSpan := rational.NewSpan(stepBegin, stepEnd)
				part, ok := stepSpan.Intersect(sub)
				if !ok {
					continue
				}
				out = append(out, Event{Whole: &stepSpan, Part: part, Value: values[i]})
			}
		}
		return out
	})
}

// Stack plays all sub-patterns simultaneously: the union of their events.
func Stack(patterns ...Pattern) Pattern {
	discrete := true
	for _, p := range patterns {
		discrete = discrete && p.discrete
	}
	p := Pattern{discrete: discrete}
	p.query = func(span rational.Span) []Event {
		var out []Event
		for _, sub := range patterns {
			out = append(out, sub.Query(span)...)
		}
		return out
	}
	return p
}

// Alternate plays pattern index (cycle mod n) on outer cycle `cycle`,
// re-timed so the chosen sub-pattern's own cycle 0 lands on the outer cycle.
func Alternate(patterns ...Pattern) Pattern {
	n := int64(len(patterns))
	if n == 0 {
		return Silent()
	}
	return newPattern(func(span rational.Span) []Event {
		var out []Event
		for _, sub := range splitCycles(span) {
			cycleIdx := sub.Begin.Floor()
			which := ((cycleIdx % n) + n) % n
			delta := rational.FromInt(cycleIdx)
			innerSpan := rational.NewSpan(sub.Begin.Sub(delta), sub.End.Sub(delta))
			for _, ev := range patterns[which].Query(innerSpan) {
				out = append(out, ev.shiftedBy(delta))
			}
		}
		return out
	})
}
