package recorder

import (
	"strings"
	"testing"

	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/rational"
)

func noteOn(note, velocity uint8) midi.NoteOnEvent {
	return midi.NoteOnEvent{NoteNumber: note, Velocity: velocity}
}

func noteOff(note uint8) midi.NoteOffEvent {
	return midi.NoteOffEvent{NoteNumber: note}
}

// 120 BPM, 4 beats per cycle (standard 4/4 bar) = 0.5 cycles/second.
const bpm120 = 0.5

func TestPunchInProducesExpectedMelody(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.FromFloat(2.5))

	r.RecordEvent(noteOn(60, 100), 0)
	r.RecordEvent(noteOff(60), 400_000)
	r.RecordEvent(noteOn(62, 100), 500_000)
	r.RecordEvent(noteOff(62), 900_000)
	r.RecordEvent(noteOn(64, 100), 1_000_000)
	r.RecordEvent(noteOff(64), 1_400_000)
	r.RecordEvent(noteOn(65, 100), 1_500_000)
	r.RecordEvent(noteOff(65), 1_900_000)

	pat, err := r.PunchOut()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pat.CycleCount != 1 {
		t.Fatalf("expected a 1-cycle span, got %d", pat.CycleCount)
	}
	if got := strings.Join(pat.Notes, " "); got != "c4 d4 e4 f4" {
		t.Fatalf("expected \"c4 d4 e4 f4\", got %q", got)
	}
}

func TestPunchInAtCycleZeroMatchesNormalRecording(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.Zero())

	r.RecordEvent(noteOn(60, 100), 0)
	r.RecordEvent(noteOff(60), 400_000)
	r.RecordEvent(noteOn(62, 100), 500_000)
	r.RecordEvent(noteOff(62), 900_000)
	r.RecordEvent(noteOn(64, 100), 1_000_000)
	r.RecordEvent(noteOff(64), 1_400_000)
	r.RecordEvent(noteOn(65, 100), 1_500_000)
	r.RecordEvent(noteOff(65), 1_900_000)

	pat, err := r.PunchOut()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(pat.Notes, " ") != "c4 d4 e4 f4" {
		t.Fatalf("expected the same melody regardless of punch-in cycle, got %q", strings.Join(pat.Notes, " "))
	}
}

func TestAbsoluteGridIsIndependentOfPunchInOffset(t *testing.T) {
	// Same relative timing, different punch-in cycles: because quantization
	// snaps to the absolute grid (not a recording-relative one), both
	// recordings must produce the identical note sequence.
	record := func(startCycle float64) string {
		r := New(bpm120, 4)
		r.StartAtCycle(rational.FromFloat(startCycle))
		r.RecordEvent(noteOn(60, 100), 0)
		r.RecordEvent(noteOff(60), 400_000)
		r.RecordEvent(noteOn(62, 100), 500_000)
		r.RecordEvent(noteOff(62), 900_000)
		pat, err := r.PunchOut()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return strings.Join(pat.Notes, " ")
	}

	a := record(5.0)
	b := record(0.0)
	if a != b {
		t.Fatalf("expected grid-independent note text, got %q vs %q", a, b)
	}
}

func TestPunchInWithRestsLeavesGapSlots(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.FromFloat(3.0))

	r.RecordEvent(noteOn(60, 100), 0)
	r.RecordEvent(noteOff(60), 400_000)
	// silence for 500ms
	r.RecordEvent(noteOn(62, 100), 1_000_000)
	r.RecordEvent(noteOff(62), 1_400_000)

	pat, err := r.PunchOut()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(pat.Notes, " ")
	if !strings.Contains(joined, "~") {
		t.Fatalf("expected a rest slot between the two notes, got %q", joined)
	}
	if len(pat.Notes) != len(pat.Velocities) {
		t.Fatal("expected notes and velocities to stay aligned")
	}
}

func TestPunchOutWithNoEventsReturnsError(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.Zero())
	if _, err := r.PunchOut(); err == nil {
		t.Fatal("expected an error punching out with nothing recorded")
	}
}

func TestStartAtCycleDiscardsPriorRecording(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.Zero())
	r.RecordEvent(noteOn(60, 100), 0)
	r.StartAtCycle(rational.FromInt(1))
	if len(r.events) != 0 {
		t.Fatal("expected StartAtCycle to clear previously captured events")
	}
}

func TestLegatoReflectsHeldFractionOfSlot(t *testing.T) {
	r := New(bpm120, 4)
	r.StartAtCycle(rational.Zero())
	// Quarter-note slot is 0.5s at this tempo; hold for the full slot.
	r.RecordEvent(noteOn(60, 100), 0)
	r.RecordEvent(noteOff(60), 500_000)

	pat, err := r.PunchOut()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pat.Legato[0] < 0.95 {
		t.Fatalf("expected a near-full-slot legato value, got %v", pat.Legato[0])
	}
}
