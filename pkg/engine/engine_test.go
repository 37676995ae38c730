package engine

import (
	"testing"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/node"
	"github.com/justyntemme/synthgo/pkg/voice"
)

const testSampleRate = 48000.0
const testBlockSize = 64

func voicePoolGraph(t *testing.T) (*graph.Graph, *node.VoicePool) {
	t.Helper()
	pool := &node.VoicePool{Pool: voice.NewPool(4, testSampleRate, voice.WaveformSine, 0.01, 0.05, 0.7, 0.2)}
	g, err := graph.NewGraph([]graph.Node{pool}, 0, testBlockSize)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g, pool
}

func TestNewRejectsInvalidSampleRateOrBlockSize(t *testing.T) {
	if _, err := New(0, testBlockSize, 16); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := New(testSampleRate, 0, 16); err == nil {
		t.Error("expected error for zero block size")
	}
}

func TestRenderRejectsMismatchedBufferLength(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := make([]float32, testBlockSize+1)
	if err := e.Render(out); err != ErrBlockSizeMismatch {
		t.Fatalf("Render: got %v, want ErrBlockSizeMismatch", err)
	}
}

func TestRenderProducesSilenceBeforeAnyGraphIsLoaded(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := make([]float32, testBlockSize)
	for i := range out {
		out[i] = 1 // poison, so we know Render actually wrote zeros
	}
	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0 before any graph is loaded", i, v)
		}
	}
}

func TestEnqueueMIDIDispatchesToGraphSinkOnNextRender(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g, pool := voicePoolGraph(t)
	if err := e.UpdateGraph(g, []MidiSink{pool}); err != nil {
		t.Fatalf("UpdateGraph: %v", err)
	}

	if !e.EnqueueMIDI(midi.NoteOnEvent{NoteNumber: 60, Velocity: 100}) {
		t.Fatal("expected EnqueueMIDI to succeed on a fresh queue")
	}

	out := make([]float32, testBlockSize)
	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var sawSound bool
	for _, v := range out {
		if v != 0 {
			sawSound = true
		}
	}
	if !sawSound {
		t.Fatal("expected the note-on event to produce nonzero output")
	}
}

func TestEnqueueMIDIDropsAndCountsWhenQueueIsFull(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Capacity 2, no drain in between: the first two pushes fill the ring,
	// the third must be dropped and counted.
	for i := 0; i < 2; i++ {
		if !e.EnqueueMIDI(midi.NoteOnEvent{NoteNumber: uint8(60 + i), Velocity: 100}) {
			t.Fatalf("push %d: expected success while the ring still has room", i)
		}
	}
	if e.EnqueueMIDI(midi.NoteOnEvent{NoteNumber: 72, Velocity: 100}) {
		t.Fatal("expected the third push to be rejected once the ring is full")
	}
	if e.Log().DroppedCount() == 0 {
		t.Error("expected a dropped-event count after the queue filled")
	}
}

func TestUpdateGraphPreservesCyclePositionAcrossSwap(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.SetTempoCPS(1.0)
	g1, pool1 := voicePoolGraph(t)
	if err := e.UpdateGraph(g1, []MidiSink{pool1}); err != nil {
		t.Fatalf("UpdateGraph: %v", err)
	}

	out := make([]float32, testBlockSize)
	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	num1, den1, _ := e.CycleSnapshot()

	g2, pool2 := voicePoolGraph(t)
	if err := e.UpdateGraph(g2, []MidiSink{pool2}); err != nil {
		t.Fatalf("UpdateGraph (second): %v", err)
	}
	num2, den2, _ := e.CycleSnapshot()

	if num1 != num2 || den1 != den2 {
		t.Fatalf("cycle position changed across graph swap: %d/%d -> %d/%d", num1, den1, num2, den2)
	}
}

func TestCycleSnapshotAdvancesByOneBlockPerRender(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.SetTempoCPS(1.0)
	g, pool := voicePoolGraph(t)
	if err := e.UpdateGraph(g, []MidiSink{pool}); err != nil {
		t.Fatalf("UpdateGraph: %v", err)
	}

	out := make([]float32, testBlockSize)
	num0, den0, _ := e.CycleSnapshot()
	if num0 != 0 {
		t.Fatalf("expected a fresh engine to start at cycle 0, got %d/%d", num0, den0)
	}

	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	num1, den1, _ := e.CycleSnapshot()
	if num1 == 0 {
		t.Fatal("expected the cycle position to advance after one Render call")
	}

	wantFrac := float64(testBlockSize) / testSampleRate
	gotFrac := float64(num1) / float64(den1)
	if diff := gotFrac - wantFrac; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("cycle position after one block = %v, want %v", gotFrac, wantFrac)
	}
}

func TestStartAndStopRecordingRoundTrips(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.SetTempoCPS(0.5)
	g, pool := voicePoolGraph(t)
	if err := e.UpdateGraph(g, []MidiSink{pool}); err != nil {
		t.Fatalf("UpdateGraph: %v", err)
	}

	e.StartRecording(4)
	if !e.EnqueueMIDI(midi.NoteOnEvent{NoteNumber: 60, Velocity: 100}) {
		t.Fatal("expected EnqueueMIDI to succeed")
	}
	out := make([]float32, testBlockSize)
	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !e.EnqueueMIDI(midi.NoteOffEvent{NoteNumber: 60}) {
		t.Fatal("expected EnqueueMIDI to succeed")
	}
	if err := e.Render(out); err != nil {
		t.Fatalf("Render: %v", err)
	}

	pattern, err := e.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if pattern == nil {
		t.Fatal("expected a non-nil recorded pattern")
	}
	if len(pattern.Notes) == 0 {
		t.Fatal("expected at least one recorded slot")
	}
}

func TestStopRecordingWithoutStartReturnsError(t *testing.T) {
	e, err := New(testSampleRate, testBlockSize, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.StopRecording(); err == nil {
		t.Fatal("expected an error when stopping without a prior StartRecording")
	}
}
