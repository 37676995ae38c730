package node

import (
	"testing"

	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/voice"
)

func TestVoicePoolDispatchesQueuedNoteOn(t *testing.T) {
	n := &VoicePool{Pool: voice.NewPool(4, 48000, voice.WaveformSine, 0.001, 0.01, 0.8, 0.1)}
	n.PushEvents([]midi.Event{midi.NoteOnEvent{NoteNumber: 60, Velocity: 100}})

	out := make([]float32, 64)
	n.ProcessBlock(nil, out, testCtx())

	if len(n.Pool.ActiveVoices()) != 1 {
		t.Fatalf("expected one active voice after dispatching a queued NoteOn, got %d", len(n.Pool.ActiveVoices()))
	}
	if len(n.pending) != 0 {
		t.Fatal("expected the pending queue to drain after ProcessBlock")
	}
}

func TestVoicePoolTreatsZeroVelocityNoteOnAsNoteOff(t *testing.T) {
	n := &VoicePool{Pool: voice.NewPool(4, 48000, voice.WaveformSine, 0.001, 0.001, 0.8, 0.001)}
	out := make([]float32, 64)
	n.PushEvents([]midi.Event{midi.NoteOnEvent{NoteNumber: 60, Velocity: 100}})
	n.ProcessBlock(nil, out, testCtx())

	n.PushEvents([]midi.Event{midi.NoteOnEvent{NoteNumber: 60, Velocity: 0}})
	// render enough blocks for the 1ms release to fully decay to idle
	for i := 0; i < 20; i++ {
		n.ProcessBlock(nil, out, testCtx())
	}

	active := n.Pool.ActiveVoices()
	for _, note := range active {
		if note == 60 {
			t.Fatal("expected a zero-velocity NoteOn to release note 60 and eventually go idle")
		}
	}
}

func TestVoicePoolInputsAreNil(t *testing.T) {
	n := &VoicePool{Pool: voice.NewPool(2, 48000, voice.WaveformSine, 0.01, 0.1, 0.7, 0.2)}
	if n.Inputs() != nil {
		t.Fatal("expected VoicePool to declare no graph inputs; MIDI arrives out of band")
	}
}
