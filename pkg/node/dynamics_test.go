package node

import "testing"

func TestLimiterAttenuatesLoudSignal(t *testing.T) {
	n := &Limiter{}
	in := constBuf(512, 0.99)
	thresh := constBuf(512, -6)
	out := make([]float32, 512)
	n.ProcessBlock([][]float32{in, thresh}, out, testCtx())
	if out[len(out)-1] >= 0.99 {
		t.Fatalf("expected the limiter to reduce a signal near full scale, got %v", out[len(out)-1])
	}
}

func TestLimiterRespondsToUpdatedThreshold(t *testing.T) {
	n := &Limiter{}
	in := constBuf(512, 0.9)
	thresh := constBuf(512, 0)
	out := make([]float32, 512)
	n.ProcessBlock([][]float32{in, thresh}, out, testCtx())

	thresh2 := constBuf(512, -12)
	out2 := make([]float32, 512)
	n.ProcessBlock([][]float32{in, thresh2}, out2, testCtx())
	if out2[len(out2)-1] >= out[len(out)-1] {
		t.Fatalf("expected a lower threshold to reduce output further: %v vs %v", out[len(out)-1], out2[len(out)-1])
	}
}

func TestCompressorReducesAboveThreshold(t *testing.T) {
	n := &Compressor{Threshold: -20, Ratio: 8, Attack: 0.001, Release: 0.05}
	in := constBuf(2048, 0.8)
	out := make([]float32, 2048)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	if out[len(out)-1] >= 0.8 {
		t.Fatalf("expected compression to reduce a signal well above threshold, got %v", out[len(out)-1])
	}
}

func TestGateAttenuatesQuietSignal(t *testing.T) {
	n := &Gate{ThresholdDB: -20, AttackSecs: 0.001, HoldSecs: 0.01, ReleaseSecs: 0.05}
	in := constBuf(4096, 0.0001)
	out := make([]float32, 4096)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	if out[len(out)-1] >= 0.0001 {
		t.Fatalf("expected the gate to attenuate a signal below threshold, got %v", out[len(out)-1])
	}
}
