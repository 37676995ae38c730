// Package recorder implements punch-in MIDI capture: incoming note-on/off
// events are timestamped against the absolute cycle grid (never against the
// recording's own start time) and, on punch-out, quantized into a
// RecordedPattern consumable by the pattern parser.
//
// The grid snaps absolute cycle position, and the emitted span covers only
// the distance between the first and last recorded event, rounded up to a
// whole cycle count — not the absolute cycle range the recording happened
// to start at.
package recorder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/rational"
)

type eventKind int

const (
	kindNoteOn eventKind = iota
	kindNoteOff
)

type recordedEvent struct {
	cycle    rational.Cycle
	kind     eventKind
	note     uint8
	velocity uint8
}

// Recorder captures MIDI note events against the absolute cycle grid between
// a punch-in (StartAtCycle) and a punch-out (PunchOut).
type Recorder struct {
	startCycle rational.Cycle
	quantize   uint32
	tempoCPS   float64
	events     []recordedEvent
}

// New creates a Recorder that converts microsecond timestamps to cycles
// using tempoCPS (cycles per second) and quantizes onsets to 1/quantize of a
// cycle.
func New(tempoCPS float64, quantize uint32) *Recorder {
	if quantize == 0 {
		quantize = 1
	}
	return &Recorder{tempoCPS: tempoCPS, quantize: quantize}
}

// StartAtCycle punches in at the given absolute cycle position, discarding
// any previously captured events.
func (r *Recorder) StartAtCycle(c rational.Cycle) {
	r.startCycle = c
	r.events = nil
}

// RecordEvent converts a MIDI event's microsecond offset (from punch-in)
// into an absolute cycle position, quantizes it to the grid, and appends it.
func (r *Recorder) RecordEvent(ev midi.Event, microsecondOffset int64) {
	relative := rational.FromFloat(float64(microsecondOffset) * r.tempoCPS / 1_000_000)
	absolute := r.startCycle.Add(relative)
	quantized := r.quantizeToGrid(absolute)

	switch e := ev.(type) {
	case midi.NoteOnEvent:
		if e.Velocity == 0 {
			r.events = append(r.events, recordedEvent{cycle: quantized, kind: kindNoteOff, note: e.NoteNumber})
			return
		}
		r.events = append(r.events, recordedEvent{cycle: quantized, kind: kindNoteOn, note: e.NoteNumber, velocity: e.Velocity})
	case midi.NoteOffEvent:
		r.events = append(r.events, recordedEvent{cycle: quantized, kind: kindNoteOff, note: e.NoteNumber})
	}
}

// quantizeToGrid snaps an absolute cycle position to the nearest 1/quantize
// cycle. The rounding decision uses a float64 approximation (acceptable
// here: this is a one-time snap against human-timed input, not accumulated
// transport arithmetic), but the resulting grid point is stored as an exact
// rational so later subtraction and comparison stay exact.
func (r *Recorder) quantizeToGrid(c rational.Cycle) rational.Cycle {
	scaled := c.Mul(rational.FromInt(int64(r.quantize))).Float64()
	n := int64(math.Floor(scaled + 0.5))
	return rational.New(n, int64(r.quantize))
}

// RecordedPattern is the punch-out result: parallel note/velocity/legato
// slot sequences spanning CycleCount whole cycles at Resolution slots.
type RecordedPattern struct {
	CycleCount int64
	Resolution int
	Notes      []string  // note name (e.g. "c4") or "~" for a rest
	Velocities []string  // "0.000".."1.000" or "~"
	Legato     []float64 // fraction of the slot the note was held, 0 for rests
}

// errNoEvents is returned by PunchOut when nothing was recorded.
type errNoEvents struct{}

func (errNoEvents) Error() string { return "recorder: punch-out with no recorded events" }

// PunchOut quantizes the captured events into a RecordedPattern and clears
// the recorder's buffer. The emitted span runs from the first event's
// quantized cycle to the last event's quantized cycle, rounded up to a
// whole number of cycles.
func (r *Recorder) PunchOut() (*RecordedPattern, error) {
	if len(r.events) == 0 {
		return nil, errNoEvents{}
	}

	sorted := make([]recordedEvent, len(r.events))
	copy(sorted, r.events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].cycle.Lt(sorted[j].cycle) })

	first := sorted[0].cycle
	last := sorted[len(sorted)-1].cycle
	span := last.Sub(first).Float64()
	cycleCount := int64(math.Ceil(span))
	if cycleCount < 1 {
		cycleCount = 1
	}

	resolution := int(int64(r.quantize) * cycleCount)
	slotDuration := rational.New(1, int64(r.quantize))

	onByNote := make(map[uint8][]recordedEvent)
	offsByNote := make(map[uint8][]rational.Cycle)
	for _, ev := range sorted {
		if ev.kind == kindNoteOn {
			onByNote[ev.note] = append(onByNote[ev.note], ev)
		} else {
			offsByNote[ev.note] = append(offsByNote[ev.note], ev.cycle)
		}
	}

	pat := &RecordedPattern{
		CycleCount: cycleCount,
		Resolution: resolution,
		Notes:      make([]string, resolution),
		Velocities: make([]string, resolution),
		Legato:     make([]float64, resolution),
	}

	claimed := make(map[uint8]int) // next unclaimed note-on index per note
	for slot := 0; slot < resolution; slot++ {
		slotCycle := first.Add(slotDuration.Mul(rational.FromInt(int64(slot))))
		note, ev, ok := findOnsetAt(onByNote, claimed, slotCycle)
		if !ok {
			pat.Notes[slot] = "~"
			pat.Velocities[slot] = "~"
			continue
		}
		pat.Notes[slot] = noteName(note)
		pat.Velocities[slot] = fmt.Sprintf("%.3f", float64(ev.velocity)/127.0)
		pat.Legato[slot] = legatoFraction(slotCycle, note, offsByNote, slotDuration)
	}

	r.events = nil
	return pat, nil
}

func findOnsetAt(onByNote map[uint8][]recordedEvent, claimed map[uint8]int, slotCycle rational.Cycle) (uint8, recordedEvent, bool) {
	for note, ons := range onByNote {
		idx := claimed[note]
		if idx >= len(ons) {
			continue
		}
		if ons[idx].cycle.Cmp(slotCycle) == 0 {
			claimed[note] = idx + 1
			return note, ons[idx], true
		}
	}
	return 0, recordedEvent{}, false
}

// legatoFraction finds the earliest note-off for note at or after slotCycle
// and reports how much of the slot's duration the note was held, clamped to
// 1.0. A note with no matching note-off is treated as held for the full
// slot.
func legatoFraction(slotCycle rational.Cycle, note uint8, offsByNote map[uint8][]rational.Cycle, slotDuration rational.Cycle) float64 {
	var off *rational.Cycle
	for _, c := range offsByNote[note] {
		if c.Gte(slotCycle) {
			cc := c
			if off == nil || cc.Lt(*off) {
				off = &cc
			}
		}
	}
	if off == nil {
		return 1.0
	}
	held := off.Sub(slotCycle).Float64()
	dur := slotDuration.Float64()
	if dur <= 0 {
		return 1.0
	}
	frac := held / dur
	if frac > 1.0 {
		frac = 1.0
	}
	if frac < 0 {
		frac = 0
	}
	return frac
}

var noteNames = [12]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// noteName renders a MIDI note number as the lowercase name the pattern
// mini-notation uses ("c4", "d#5", ...).
func noteName(note uint8) string {
	octave := int(note)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[int(note)%12], octave)
}

// String renders the pattern as a space-separated mini-notation sequence
// consumable by the pattern parser, cycle boundaries marked with " | ".
func (p *RecordedPattern) String() string {
	perCycle := p.Resolution
	if p.CycleCount > 0 {
		perCycle = p.Resolution / int(p.CycleCount)
	}
	var sb strings.Builder
	for i, n := range p.Notes {
		if i > 0 {
			if perCycle > 0 && i%perCycle == 0 {
				sb.WriteString(" | ")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(n)
	}
	return sb.String()
}
