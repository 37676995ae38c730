package node

import (
	"math"
	"testing"
)

func sineBuf(n int, freq, sampleRate float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return buf
}

func TestPitchDetectorSilenceReturnsZero(t *testing.T) {
	n := &PitchDetector{}
	in := constBuf(2048, 0)
	out := make([]float32, 2048)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	if out[0] != 0 {
		t.Fatalf("expected silence to report 0Hz, got %v", out[0])
	}
}

func TestPitchDetectorFindsApproximateFrequency(t *testing.T) {
	n := &PitchDetector{}
	in := sineBuf(2048, 220, 48000)
	out := make([]float32, 2048)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	if math.Abs(float64(out[0])-220) > 20 {
		t.Fatalf("expected a detected pitch near 220Hz, got %v", out[0])
	}
}

func TestPitchDetectorResetClearsSmoothing(t *testing.T) {
	n := &PitchDetector{}
	in := sineBuf(2048, 330, 48000)
	out := make([]float32, 2048)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	n.Reset()
	if n.lastPitch != 0 {
		t.Fatalf("expected lastPitch cleared after Reset, got %v", n.lastPitch)
	}
}
