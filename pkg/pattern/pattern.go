// Package pattern implements the lazy rhythmic pattern algebra: values that
// are semantically functions from a half-open cycle-time span to a list of
// timed events, composed through combinators (fast, slow, euclid, degrade,
// ...). Patterns are queried at the block processor's temporal resolution —
// once per audio buffer — so construction builds a small closure tree and
// every Query call walks it, never materializing an unbounded event list.
//
// Edge cases (degenerate ranges, seed derivation) that aren't obvious from
// the combinator names alone are documented in DESIGN.md.
package pattern

import (
	"github.com/justyntemme/synthgo/pkg/rational"
)

// Value is the payload type a pattern emits. The engine mostly needs
// float64 (signal gate/CV patterns) and string (note-name / sample-token
// patterns); both satisfy Value without constraint since Go generics don't
// need a sealed union here.
type Value any

// Event is one occurrence a pattern produces for a query span: Whole is the
// event's full extent if known (a query can clip an event that started
// before or ends after the query window), Part is the clipped portion
// actually reported, Value is the payload.
type Event struct {
	Whole *rational.Span
	Part  rational.Span
	Value Value
}

// withPart returns a copy of e with Part replaced.
func (e Event) withPart(part rational.Span) Event {
	e.Part = part
	return e
}

// shiftedBy returns a copy of e with Whole and Part both shifted by delta
// cycles, used when undoing a time-transform before returning to the caller.
func (e Event) shiftedBy(delta rational.Cycle) Event {
	e.Part = e.Part.WithTime(delta)
	if e.Whole != nil {
		w := e.Whole.WithTime(delta)
		e.Whole = &w
	}
	return e
}

// Pattern is a lazy, queryable source of timed events. The zero value is
// not valid; use Silent() or a constructor.
type Pattern struct {
	query func(span rational.Span) []Event
	// discrete marks whether the pattern's events are fired at its own
	// structural boundaries (steps, cycles) as opposed to a continuous
	// numeric signal sampled at arbitrary points; kept for combinators
	// (e.g. smooth) that only make sense on one kind.
	discrete bool
}

// Query evaluates p over span, returning every event overlapping it.
func (p Pattern) Query(span rational.Span) []Event {
	if p.query == nil {
		return nil
	}
	return p.query(span)
}

// IsDiscrete reports whether the pattern is event-stepped rather than a
// continuous numeric signal.
func (p Pattern) IsDiscrete() bool {
	return p.discrete
}

// newPattern wraps a raw query closure into a discrete Pattern.
func newPattern(q func(rational.Span) []Event) Pattern {
	return Pattern{query: q, discrete: true}
}

// newContinuous wraps a raw query closure into a continuous Pattern.
func newContinuous(q func(rational.Span) []Event) Pattern {
	return Pattern{query: q, discrete: false}
}

// splitCycles breaks span into per-cycle sub-spans, since most primitives
// have period-1-cycle structure and are simplest to define cycle by cycle.
func splitCycles(span rational.Span) []rational.Span {
	if span.Begin.Gte(span.End) {
		return nil
	}
	var out []rational.Span
	cycleStart := rational.FromInt(span.Begin.Floor())
	for cycleStart.Lt(span.End) {
		cycleEnd := cycleStart.Add(rational.FromInt(1))
		part, ok := span.Intersect(rational.NewSpan(cycleStart, cycleEnd))
		if ok {
			out = append(out, part)
		}
		cycleStart = cycleEnd
	}
	return out
}
