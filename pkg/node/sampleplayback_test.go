package node

import (
	"testing"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/pattern"
)

func TestSamplePlaybackTriggersVoiceOnOnset(t *testing.T) {
	pcm := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	n := &SamplePlayback{
		Pattern: pattern.Pure("kick"),
		Samples: map[string][]float32{"kick": pcm},
	}
	ctx := &graph.ProcessContext{SampleRate: 8, TempoCPS: 1, CyclePos: 0, CycleIndex: 0}
	out := make([]float32, 8)
	n.ProcessBlock(nil, out, ctx)

	var sawSound bool
	for _, v := range out {
		if v != 0 {
			sawSound = true
		}
	}
	if !sawSound {
		t.Fatal("expected the onset to trigger audible playback")
	}
}

func TestSamplePlaybackIgnoresUnknownToken(t *testing.T) {
	n := &SamplePlayback{
		Pattern: pattern.Pure("missing"),
		Samples: map[string][]float32{},
	}
	ctx := &graph.ProcessContext{SampleRate: 8, TempoCPS: 1}
	out := make([]float32, 8)
	n.ProcessBlock(nil, out, ctx)
	for _, v := range out {
		if v != 0 {
			t.Fatalf("expected silence for an unresolved sample token, got %v", v)
		}
	}
}

func TestSamplePlaybackResetClearsVoices(t *testing.T) {
	n := &SamplePlayback{
		Pattern: pattern.Pure("kick"),
		Samples: map[string][]float32{"kick": {1, 1, 1, 1}},
	}
	ctx := &graph.ProcessContext{SampleRate: 8, TempoCPS: 1}
	out := make([]float32, 8)
	n.ProcessBlock(nil, out, ctx)
	n.Reset()
	if n.voices != nil {
		t.Fatal("expected Reset to clear the voice pool")
	}
}

func TestSamplePlaybackZeroTempoStaysSilent(t *testing.T) {
	n := &SamplePlayback{
		Pattern: pattern.Pure("kick"),
		Samples: map[string][]float32{"kick": {1, 1, 1, 1}},
	}
	ctx := &graph.ProcessContext{SampleRate: 8, TempoCPS: 0}
	out := make([]float32, 8)
	n.ProcessBlock(nil, out, ctx)
	for _, v := range out {
		if v != 0 {
			t.Fatalf("expected no onsets to fire without a tempo, got %v", v)
		}
	}
}
