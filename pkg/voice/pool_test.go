package voice

import (
	"math"
	"testing"

	"github.com/justyntemme/synthgo/pkg/midi"
)

func noteOn(note, vel uint8) midi.NoteOnEvent {
	return midi.NoteOnEvent{NoteNumber: note, Velocity: vel}
}

func noteOff(note uint8) midi.NoteOffEvent {
	return midi.NoteOffEvent{NoteNumber: note}
}

func TestNoteOnActivatesAVoice(t *testing.T) {
	p := NewPool(4, 48000, WaveformSine, 0.01, 0.1, 0.7, 0.2)
	p.NoteOn(noteOn(60, 100))

	active := p.ActiveVoices()
	if len(active) != 1 || active[0] != 60 {
		t.Fatalf("expected one active voice at note 60, got %v", active)
	}
}

func TestNoteOffReleasesVoiceRatherThanSilencingImmediately(t *testing.T) {
	p := NewPool(4, 48000, WaveformSine, 0.001, 0.001, 0.7, 0.2)
	p.NoteOn(noteOn(60, 100))
	p.NoteOff(noteOff(60))

	if !p.voices[0].isReleasing() {
		t.Fatal("expected the voice to still be active (releasing) immediately after NoteOff")
	}
}

func TestStealTakesOldestActiveWhenAllVoicesBusy(t *testing.T) {
	p := NewPool(2, 48000, WaveformSine, 0.01, 0.1, 0.7, 0.2)
	p.NoteOn(noteOn(60, 100))
	p.NoteOn(noteOn(64, 100))
	p.NoteOn(noteOn(67, 100)) // both voices active; should steal oldest active (60)

	active := p.ActiveVoices()
	found64, found67 := false, false
	for _, n := range active {
		if n == 64 {
			found64 = true
		}
		if n == 67 {
			found67 = true
		}
	}
	if !found64 || !found67 {
		t.Fatalf("expected notes 64 and 67 active after stealing note 60, got %v", active)
	}
	if len(active) != 2 {
		t.Fatalf("pool capacity is 2, got %d active", len(active))
	}
}

func TestStealPrefersOldestReleasingOverOldestActive(t *testing.T) {
	p := NewPool(2, 48000, WaveformSine, 0.001, 0.001, 0.7, 10.0)
	p.NoteOn(noteOn(60, 100))
	p.NoteOn(noteOn(64, 100))
	p.NoteOff(noteOff(60)) // voice 0 now releasing, voice 1 still sustaining

	p.NoteOn(noteOn(67, 100)) // should steal the releasing voice (60), not the active one (64)

	active := p.ActiveVoices()
	foundOriginal64 := false
	for _, n := range active {
		if n == 64 {
			foundOriginal64 = true
		}
	}
	if !foundOriginal64 {
		t.Fatal("expected note 64 (still sustaining) to survive the steal")
	}
}

func TestNoteToFreqA440(t *testing.T) {
	f := noteToFreq(69)
	if math.Abs(float64(f)-440.0) > 1e-3 {
		t.Fatalf("expected A4 (note 69) to map to 440Hz, got %v", f)
	}
}

func TestScaleLockQuantizesToNearestPitchClass(t *testing.T) {
	p := NewPool(4, 48000, WaveformSine, 0.01, 0.1, 0.7, 0.2)
	// C major triad intervals relative to root: 0, 4, 7
	p.SetScaleLock(60, []int{0, 4, 7})

	// note 61 (C#) is 1 semitone from 60 and 3 from 64;
	// nearest pitch class is root (0 => note 60).
	quantized := p.quantizeNote(61)
	if quantized != 60 {
		t.Fatalf("expected note 61 to quantize to 60, got %d", quantized)
	}
}

func TestClearScaleLockDisablesQuantization(t *testing.T) {
	p := NewPool(4, 48000, WaveformSine, 0.01, 0.1, 0.7, 0.2)
	p.SetScaleLock(60, []int{0, 4, 7})
	p.ClearScaleLock()

	if got := p.quantizeNote(61); got != 61 {
		t.Fatalf("expected quantization disabled, got %d instead of 61", got)
	}
}

func TestRenderNormalizesByInverseSqrtCapacity(t *testing.T) {
	capacity := 4
	p := NewPool(capacity, 48000, WaveformSine, 0.0, 0.0, 1.0, 1.0)
	p.NoteOn(noteOn(69, 127))

	out := make([]float32, 16)
	p.Render(out)

	// a single active voice at full velocity and sustain 1.0 should peak
	// near 1/sqrt(capacity), not at unity, since normalization assumes
	// up to `capacity` uncorrelated voices summing.
	var peak float32
	for _, v := range out {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	expected := float32(1.0 / math.Sqrt(float64(capacity)))
	if peak > expected+0.05 {
		t.Fatalf("expected peak near %v (1/sqrt(capacity)), got %v", expected, peak)
	}
}

func TestResetDeactivatesAllVoices(t *testing.T) {
	p := NewPool(2, 48000, WaveformSine, 0.01, 0.1, 0.7, 0.2)
	p.NoteOn(noteOn(60, 100))
	p.NoteOn(noteOn(64, 100))
	p.Reset()

	if len(p.ActiveVoices()) != 0 {
		t.Fatal("expected no active voices after Reset")
	}
}
