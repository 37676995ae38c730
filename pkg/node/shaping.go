package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// constantPowerPan returns the sine/cosine equal-power left/right gains for
// a pan position in [-1,1].
func constantPowerPan(pos float32) (left, right float32) {
	angle := (float64(pos) + 1.0) * math.Pi / 4.0
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

// Fold reflects a signal back into [min, max] at the boundaries rather
// than clipping, producing wave-folding distortion. min/max are read per
// sample since they may themselves be modulated.
type Fold struct {
	Input, Min, Max graph.NodeID
}

func (n *Fold) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Min, n.Max} }
func (n *Fold) Reset()                 {}

func (n *Fold) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	sig, lo, hi := in[0], in[1], in[2]
	for i := range out {
		out[i] = foldOne(sig[i], lo[i], hi[i])
	}
}

func foldOne(v, lo, hi float32) float32 {
	if hi <= lo {
		return lo
	}
	for v < lo || v > hi {
		if v < lo {
			v = lo + (lo - v)
		} else {
			v = hi - (v - hi)
		}
	}
	return v
}

// Wrap periodically wraps a signal into [min, max] using modulo
// arithmetic.
type Wrap struct {
	Input, Min, Max graph.NodeID
}

func (n *Wrap) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Min, n.Max} }
func (n *Wrap) Reset()                 {}

func (n *Wrap) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	sig, lo, hi := in[0], in[1], in[2]
	for i := range out {
		width := hi[i] - lo[i]
		if width <= 0 {
			out[i] = lo[i]
			continue
		}
		v := float32(math.Mod(float64(sig[i]-lo[i]), float64(width)))
		if v < 0 {
			v += width
		}
		out[i] = lo[i] + v
	}
}

// Lerp linearly interpolates between two signals by a mix amount (0 = A,
// 1 = B, values outside [0,1] extrapolate).
type Lerp struct {
	A, B, Mix graph.NodeID
}

func (n *Lerp) Inputs() []graph.NodeID { return []graph.NodeID{n.A, n.B, n.Mix} }
func (n *Lerp) Reset()                 {}

func (n *Lerp) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	a, b, mix := in[0], in[1], in[2]
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*mix[i]
	}
}

// Quantizer snaps a signal to a step grid; the step size is read per
// sample and floored at 1e-4 to avoid division by zero.
type Quantizer struct {
	Input, StepSize graph.NodeID
}

func (n *Quantizer) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.StepSize} }
func (n *Quantizer) Reset()                 {}

func (n *Quantizer) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	sig, step := in[0], in[1]
	for i := range out {
		s := step[i]
		if s < 1e-4 {
			s = 1e-4
		}
		out[i] = float32(math.Round(float64(sig[i]/s))) * s
	}
}

// Latch is a rising-edge-triggered sample-and-hold: it captures Input's
// value whenever Trigger crosses above 0.5 and holds it until the next
// rising edge.
type Latch struct {
	Input, Trigger graph.NodeID

	held        float32
	triggerHigh bool
}

func (n *Latch) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Trigger} }
func (n *Latch) Reset()                 { n.held = 0; n.triggerHigh = false }

func (n *Latch) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	sig, trig := in[0], in[1]
	for i := range out {
		high := trig[i] > 0.5
		if high && !n.triggerHigh {
			n.held = sig[i]
		}
		n.triggerHigh = high
		out[i] = n.held
	}
}

// PanChannel selects which side of a constant-power pan law a Pan node
// outputs. The graph carries one mono signal per edge, so stereo placement
// is expressed as two Pan nodes sharing the same Input/Position and
// differing only in Channel, rather than a single node with two outputs.
type PanChannel int

const (
	PanLeft PanChannel = iota
	PanRight
)

// Pan applies a constant-power pan law to Input using Position (-1 = hard
// left, +1 = hard right) and emits the selected channel.
type Pan struct {
	Input, Position graph.NodeID
	Channel         PanChannel
}

func (n *Pan) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Position} }
func (n *Pan) Reset()                 {}

func (n *Pan) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	sig, pos := in[0], in[1]
	for i := range out {
		left, right := constantPowerPan(pos[i])
		if n.Channel == PanLeft {
			out[i] = sig[i] * left
		} else {
			out[i] = sig[i] * right
		}
	}
}
