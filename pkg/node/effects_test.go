package node

import (
	"math"
	"testing"
)

func TestDelayProducesDelayedSignal(t *testing.T) {
	n := &Delay{}
	src := make([]float32, 4800)
	src[0] = 1.0
	timeMs := constBuf(4800, 10)
	fb := constBuf(4800, 0)
	mix := constBuf(4800, 1.0)
	out := make([]float32, 4800)
	n.ProcessBlock([][]float32{src, timeMs, fb, mix}, out, testCtx())

	// at 48kHz, 10ms == 480 samples; the impulse should reappear there
	// rather than at sample 0 once fully wet.
	if out[480] == 0 {
		t.Fatal("expected the delayed impulse to appear near sample 480")
	}
}

func TestDelayResetClearsFeedbackState(t *testing.T) {
	n := &Delay{}
	src := constBuf(64, 1.0)
	timeMs := constBuf(64, 5)
	fb := constBuf(64, 0.5)
	mix := constBuf(64, 1.0)
	out := make([]float32, 64)
	n.ProcessBlock([][]float32{src, timeMs, fb, mix}, out, testCtx())
	n.Reset()
	if n.feedback != 0 {
		t.Fatalf("expected feedback state cleared after Reset, got %v", n.feedback)
	}
}

func TestReverbFreeverbRunsWithoutPanic(t *testing.T) {
	n := &Reverb{Algorithm: ReverbFreeverb, RoomSize: 0.6, Damping: 0.4, WetMix: 0.3}
	in := impulseBlock(512)
	out := make([]float32, 512)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected finite reverb output, got %v", v)
		}
	}
}

func TestReverbFDNRunsWithoutPanic(t *testing.T) {
	n := &Reverb{Algorithm: ReverbFDN, RoomSize: 0.5, Damping: 0.5, WetMix: 0.3}
	in := impulseBlock(512)
	out := make([]float32, 512)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected finite FDN reverb output, got %v", v)
		}
	}
}

func TestModulationChorusOutputHasNoNaN(t *testing.T) {
	n := &Modulation{Effect: ModChorus, RateHz: 0.5, Depth: 2, MixLevel: 0.5}
	in := impulseBlock(256)
	out := make([]float32, 256)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	for _, v := range out {
		if math.IsNaN(float64(v)) {
			t.Fatal("expected chorus mono-sum to stay finite")
		}
	}
}

func TestModulationTremoloRunsWithoutPanic(t *testing.T) {
	n := &Modulation{Effect: ModTremolo, RateHz: 5, Depth: 0.8}
	in := constBuf(512, 0.5)
	out := make([]float32, 512)
	n.ProcessBlock([][]float32{in}, out, testCtx())
}

func TestMixUniformNormalizationDividesByN(t *testing.T) {
	n := &Mix{}
	a := constBuf(4, 1.0)
	b := constBuf(4, 1.0)
	out := make([]float32, 4)
	n.ProcessBlock([][]float32{a, b}, out, testCtx())
	for _, v := range out {
		if math.Abs(float64(v)-1.0) > 1e-6 {
			t.Fatalf("expected two unity inputs to average to 1.0, got %v", v)
		}
	}
}

func TestMixWithExplicitGains(t *testing.T) {
	n := &Mix{Gains: []float32{1, 0}}
	a := constBuf(4, 1.0)
	b := constBuf(4, 1.0)
	out := make([]float32, 4)
	n.ProcessBlock([][]float32{a, b}, out, testCtx())
	for _, v := range out {
		if v != 1.0 {
			t.Fatalf("expected gain-weighted sum to ignore the zero-gain input, got %v", v)
		}
	}
}

func TestMixEmptyInputsDoesNotPanic(t *testing.T) {
	n := &Mix{}
	out := make([]float32, 4)
	n.ProcessBlock(nil, out, testCtx())
}
