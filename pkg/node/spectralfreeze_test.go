package node

import (
	"math"
	"testing"
)

func TestSpectralFreezeBypassesWhenNotTriggered(t *testing.T) {
	n := &SpectralFreeze{FFTSize: 64}
	src := sineBuf(64, 440, 8000)
	trig := constBuf(64, 0)
	out := make([]float32, 64)
	n.ProcessBlock([][]float32{src, trig}, out, testCtx())
	for i := range out {
		if out[i] != src[i] {
			t.Fatalf("expected bypass output to equal input at %d: %v vs %v", i, out[i], src[i])
		}
	}
}

func TestSpectralFreezeCapturesOnRisingEdge(t *testing.T) {
	n := &SpectralFreeze{FFTSize: 64}
	src := sineBuf(128, 440, 8000)
	trig := make([]float32, 128)
	for i := 64; i < 128; i++ {
		trig[i] = 1
	}
	out := make([]float32, 128)
	n.ProcessBlock([][]float32{src, trig}, out, testCtx())
	if !n.frozen {
		t.Fatal("expected a rising trigger edge to enter the frozen state")
	}
	for _, v := range out[64:] {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected finite resynthesized output, got %v", v)
		}
	}
}

func TestSpectralFreezeUnfreezesOnFallingEdge(t *testing.T) {
	n := &SpectralFreeze{FFTSize: 64}
	src := sineBuf(192, 440, 8000)
	trig := make([]float32, 192)
	for i := 64; i < 128; i++ {
		trig[i] = 1
	}
	out := make([]float32, 192)
	n.ProcessBlock([][]float32{src, trig}, out, testCtx())
	if n.frozen {
		t.Fatal("expected the falling trigger edge to exit the frozen state")
	}
	for i := 128; i < 192; i++ {
		if out[i] != src[i] {
			t.Fatalf("expected bypass after unfreeze at %d: %v vs %v", i, out[i], src[i])
		}
	}
}

func TestSpectralFreezeResetClearsHistory(t *testing.T) {
	n := &SpectralFreeze{FFTSize: 64}
	src := sineBuf(64, 440, 8000)
	trig := constBuf(64, 1)
	out := make([]float32, 64)
	n.ProcessBlock([][]float32{src, trig}, out, testCtx())
	n.Reset()
	if n.frozen {
		t.Fatal("expected Reset to clear the frozen state")
	}
	for _, v := range n.history {
		if v != 0 {
			t.Fatal("expected Reset to zero the history buffer")
		}
	}
}
