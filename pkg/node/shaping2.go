package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// softClipSample applies tanh soft clipping: signals within the threshold
// pass unchanged, beyond it they're compressed by a tanh curve scaled to the
// threshold.
func softClipSample(input, threshold float32) float32 {
	abs := input
	if abs < 0 {
		abs = -abs
	}
	if abs <= threshold {
		return input
	}
	return threshold * float32(math.Tanh(float64(input/threshold)))
}

// hardClipSample clamps input to +/-threshold.
func hardClipSample(input, threshold float32) float32 {
	if input > threshold {
		return threshold
	}
	if input < -threshold {
		return -threshold
	}
	return input
}

// ClipMode selects between hard clipping at a threshold and tanh-style soft
// clipping.
type ClipMode int

const (
	ClipHard ClipMode = iota
	ClipSoft
)

// Clip limits Input to +/-Threshold.
type Clip struct {
	Input, Threshold graph.NodeID
	Mode             ClipMode
}

func (n *Clip) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Threshold} }
func (n *Clip) Reset()                 {}

func (n *Clip) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	threshold := controlValue(in[1])
	if threshold <= 0 {
		threshold = 1
	}
	src := in[0]
	if n.Mode == ClipSoft {
		for i := range out {
			out[i] = softClipSample(src[i], threshold)
		}
		return
	}
	for i := range out {
		out[i] = hardClipSample(src[i], threshold)
	}
}

// dcBlockerStage is a first-order highpass that removes DC offset:
// y[n] = x[n] - x[n-1] + R*y[n-1], with R derived from the cutoff frequency
// and clamped to stay stable.
type dcBlockerStage struct {
	x1, y1      float32
	coefficient float32
}

func newDCBlockerStage(cutoffHz, sampleRate float64) *dcBlockerStage {
	r := float32(1.0 - (2.0*math.Pi*cutoffHz)/sampleRate)
	if r < 0.9 {
		r = 0.9
	}
	if r > 0.999 {
		r = 0.999
	}
	return &dcBlockerStage{coefficient: r}
}

func (d *dcBlockerStage) process(input float32) float32 {
	output := input - d.x1 + d.coefficient*d.y1
	d.x1 = input
	d.y1 = output
	return output
}

func (d *dcBlockerStage) reset() { d.x1, d.y1 = 0, 0 }

// DCBlocker removes DC offset via a first-order highpass.
type DCBlocker struct {
	Input    graph.NodeID
	CutoffHz float32

	block *dcBlockerStage
}

func (n *DCBlocker) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }

func (n *DCBlocker) Reset() {
	if n.block != nil {
		n.block.reset()
	}
}

func (n *DCBlocker) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.block == nil {
		cutoff := n.CutoffHz
		if cutoff <= 0 {
			cutoff = 10
		}
		n.block = newDCBlockerStage(float64(cutoff), ctx.SampleRate)
	}
	src := in[0]
	for i := range out {
		out[i] = n.block.process(src[i])
	}
}

// DistortionShape selects which waveshaping curve Distortion applies.
type DistortionShape int

const (
	DistortionHardClip DistortionShape = iota
	DistortionSoftClip
	DistortionSaturate
	DistortionFoldback
)

// waveshaper drives a sample by Drive, applies one of four transfer curves,
// then blends the result back with the dry sample by Mix.
type waveshaper struct {
	shape DistortionShape
	drive float64
	mix   float64
}

func (w *waveshaper) setDrive(drive float64) {
	if drive < 1.0 {
		drive = 1.0
	}
	w.drive = drive
}

func (w *waveshaper) setMix(mix float64) { w.mix = clamp01(mix) }

func (w *waveshaper) process(input float64) float64 {
	driven := input * w.drive
	var shaped float64
	switch w.shape {
	case DistortionSoftClip:
		shaped = math.Tanh(driven)
	case DistortionSaturate:
		if driven >= 0 {
			shaped = 1.0 - math.Exp(-driven)
		} else {
			shaped = -1.0 + math.Exp(driven)
		}
	case DistortionFoldback:
		normalized := (driven + 2.0) / 4.0
		folded := normalized - math.Floor(normalized)
		if int(math.Floor(normalized))%2 == 1 {
			folded = 1.0 - folded
		}
		shaped = folded*2.0 - 1.0
	default:
		if driven > 1.0 {
			shaped = 1.0
		} else if driven < -1.0 {
			shaped = -1.0
		} else {
			shaped = driven
		}
	}
	return input*(1.0-w.mix) + shaped*w.mix
}

// Distortion runs a driven waveshaping curve over its input.
type Distortion struct {
	Input, Drive graph.NodeID
	Shape        DistortionShape
	Mix          float64 // wet amount; 0 (unset) means fully wet

	shaper *waveshaper
}

func (n *Distortion) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Drive} }
func (n *Distortion) Reset()                 {}

func (n *Distortion) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.shaper == nil {
		n.shaper = &waveshaper{shape: n.Shape}
		mix := n.Mix
		if mix <= 0 {
			mix = 1
		}
		n.shaper.setMix(mix)
	}
	drive := controlValue(in[1])
	n.shaper.setDrive(float64(drive))
	src := in[0]
	for i := range out {
		out[i] = float32(n.shaper.process(float64(src[i])))
	}
}

// Pow raises A to the power of B, sample-wise.
type Pow struct{ A, B graph.NodeID }

func (n *Pow) Inputs() []graph.NodeID { return []graph.NodeID{n.A, n.B} }
func (n *Pow) Reset()                 {}
func (n *Pow) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	a, b := in[0], in[1]
	for i := range out {
		out[i] = float32(math.Pow(float64(a[i]), float64(b[i])))
	}
}

// Exp raises e to the power of Input.
type Exp struct{ Input graph.NodeID }

func (n *Exp) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }
func (n *Exp) Reset()                 {}
func (n *Exp) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	src := in[0]
	for i := range out {
		out[i] = float32(math.Exp(float64(src[i])))
	}
}

// Log computes the natural log of Input, clamped to avoid -Inf/NaN on
// non-positive input (log of <=0 yields a large negative finite value).
type Log struct{ Input graph.NodeID }

func (n *Log) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }
func (n *Log) Reset()                 {}
func (n *Log) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	src := in[0]
	for i := range out {
		v := src[i]
		if v <= 0 {
			v = 1e-9
		}
		out[i] = float32(math.Log(float64(v)))
	}
}
