package node

import (
	"math"
	"testing"
)

func TestClipHardLimitsToThreshold(t *testing.T) {
	in := []float32{2.0, -2.0, 0.1}
	thresh := constBuf(3, 0.5)
	n := &Clip{Mode: ClipHard}
	out := make([]float32, 3)
	n.ProcessBlock([][]float32{in, thresh}, out, testCtx())
	if out[0] != 0.5 || out[1] != -0.5 {
		t.Fatalf("expected hard clip at +/-0.5, got %v", out)
	}
}

func TestClipSoftStaysBounded(t *testing.T) {
	in := constBuf(16, 5.0)
	thresh := constBuf(16, 1.0)
	n := &Clip{Mode: ClipSoft}
	out := make([]float32, 16)
	n.ProcessBlock([][]float32{in, thresh}, out, testCtx())
	for _, v := range out {
		if v > 1.5 {
			t.Fatalf("expected soft clip to stay near threshold, got %v", v)
		}
	}
}

func TestDCBlockerRemovesOffsetOverTime(t *testing.T) {
	n := &DCBlocker{}
	in := constBuf(4096, 0.5)
	out := make([]float32, 4096)
	n.ProcessBlock([][]float32{in}, out, testCtx())
	var sum float32
	for _, v := range out[3000:] {
		sum += v
	}
	avg := sum / float32(len(out[3000:]))
	if math.Abs(float64(avg)) > 0.05 {
		t.Fatalf("expected DC offset to be mostly removed, average residual %v", avg)
	}
}

func TestDistortionAppliesDrive(t *testing.T) {
	n := &Distortion{Shape: DistortionSoftClip}
	in := constBuf(8, 0.1)
	drive := constBuf(8, 10.0)
	out := make([]float32, 8)
	n.ProcessBlock([][]float32{in, drive}, out, testCtx())
	for _, v := range out {
		if v == 0.1 {
			t.Fatal("expected distortion to alter a driven signal")
		}
	}
}

func TestPowExpLog(t *testing.T) {
	a := constBuf(1, 2)
	b := constBuf(1, 3)
	pow := &Pow{}
	out := make([]float32, 1)
	pow.ProcessBlock([][]float32{a, b}, out, testCtx())
	if out[0] != 8 {
		t.Fatalf("expected 2^3 == 8, got %v", out[0])
	}

	exp := &Exp{}
	zero := constBuf(1, 0)
	exp.ProcessBlock([][]float32{zero}, out, testCtx())
	if out[0] != 1 {
		t.Fatalf("expected exp(0) == 1, got %v", out[0])
	}

	lg := &Log{}
	one := constBuf(1, 1)
	lg.ProcessBlock([][]float32{one}, out, testCtx())
	if out[0] != 0 {
		t.Fatalf("expected log(1) == 0, got %v", out[0])
	}
}

func TestLogClampsNonPositiveInput(t *testing.T) {
	lg := &Log{}
	in := []float32{0, -5}
	out := make([]float32, 2)
	lg.ProcessBlock([][]float32{in}, out, testCtx())
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("expected log of non-positive input to stay finite, got %v", v)
		}
	}
}
