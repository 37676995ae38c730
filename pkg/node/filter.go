package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// BiquadShape selects which biquad response Filter configures.
type BiquadShape int

const (
	ShapeLowpass BiquadShape = iota
	ShapeHighpass
	ShapeBandpass
	ShapeNotch
	ShapeAllpass
	ShapePeakingEQ
	ShapeLowShelf
	ShapeHighShelf
)

// rbjBiquad is a Direct-Form-I biquad section with coefficients derived by
// the RBJ Audio EQ Cookbook formulas. It keeps its own x/y history rather
// than delegating to a shared buffer, so each Filter node owns an isolated
// stage.
type rbjBiquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (b *rbjBiquad) reset() { b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0 }

func (b *rbjBiquad) process(sample float32) float32 {
	x0 := float64(sample)
	y0 := b.b0*x0 + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, x0
	b.y2, b.y1 = b.y1, y0
	return float32(y0)
}

func (b *rbjBiquad) setLowpass(sr, freq, q float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a0 := 1 + alpha
	b.b0 = ((1 - cosw0) / 2) / a0
	b.b1 = (1 - cosw0) / a0
	b.b2 = b.b0
	b.a1 = (-2 * cosw0) / a0
	b.a2 = (1 - alpha) / a0
}

func (b *rbjBiquad) setHighpass(sr, freq, q float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a0 := 1 + alpha
	b.b0 = ((1 + cosw0) / 2) / a0
	b.b1 = -(1 + cosw0) / a0
	b.b2 = b.b0
	b.a1 = (-2 * cosw0) / a0
	b.a2 = (1 - alpha) / a0
}

func (b *rbjBiquad) setBandpass(sr, freq, q float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a0 := 1 + alpha
	b.b0 = alpha / a0
	b.b1 = 0
	b.b2 = -alpha / a0
	b.a1 = (-2 * cosw0) / a0
	b.a2 = (1 - alpha) / a0
}

func (b *rbjBiquad) setNotch(sr, freq, q float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a0 := 1 + alpha
	b.b0 = 1 / a0
	b.b1 = (-2 * cosw0) / a0
	b.b2 = b.b0
	b.a1 = b.b1
	b.a2 = (1 - alpha) / a0
}

func (b *rbjBiquad) setAllpass(sr, freq, q float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a0 := 1 + alpha
	b.b0 = (1 - alpha) / a0
	b.b1 = (-2 * cosw0) / a0
	b.b2 = 1
	b.a1 = b.b1
	b.a2 = b.b0
}

func (b *rbjBiquad) setPeakingEQ(sr, freq, q, gainDB float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a := math.Pow(10, gainDB/40)
	a0 := 1 + alpha/a
	b.b0 = (1 + alpha*a) / a0
	b.b1 = (-2 * cosw0) / a0
	b.b2 = (1 - alpha*a) / a0
	b.a1 = b.b1
	b.a2 = (1 - alpha/a) / a0
}

func (b *rbjBiquad) setLowShelf(sr, freq, q, gainDB float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a := math.Pow(10, gainDB/40)
	sq := 2 * math.Sqrt(a) * alpha
	a0 := (a + 1) + (a-1)*cosw0 + sq
	b.b0 = (a * ((a + 1) - (a-1)*cosw0 + sq)) / a0
	b.b1 = (2 * a * ((a - 1) - (a+1)*cosw0)) / a0
	b.b2 = (a * ((a + 1) - (a-1)*cosw0 - sq)) / a0
	b.a1 = (-2 * ((a - 1) + (a+1)*cosw0)) / a0
	b.a2 = ((a + 1) + (a-1)*cosw0 - sq) / a0
}

func (b *rbjBiquad) setHighShelf(sr, freq, q, gainDB float64) {
	_, alpha, cosw0 := rbjOmega(sr, freq, q)
	a := math.Pow(10, gainDB/40)
	sq := 2 * math.Sqrt(a) * alpha
	a0 := (a + 1) - (a-1)*cosw0 + sq
	b.b0 = (a * ((a + 1) + (a-1)*cosw0 + sq)) / a0
	b.b1 = (-2 * a * ((a - 1) + (a+1)*cosw0)) / a0
	b.b2 = (a * ((a + 1) + (a-1)*cosw0 - sq)) / a0
	b.a1 = (2 * ((a - 1) - (a+1)*cosw0)) / a0
	b.a2 = ((a + 1) - (a-1)*cosw0 - sq) / a0
}

func rbjOmega(sr, freq, q float64) (w0, alpha, cosw0 float64) {
	w0 = 2 * math.Pi * freq / sr
	alpha = math.Sin(w0) / (2 * q)
	cosw0 = math.Cos(w0)
	return
}

// Filter is a single biquad stage whose coefficients are re-derived whenever
// the cutoff/Q/gain control inputs change between blocks.
type Filter struct {
	Input, Cutoff, Q graph.NodeID
	Shape            BiquadShape
	GainDB           float64 // used by PeakingEQ/LowShelf/HighShelf only

	bq          rbjBiquad
	lastCutoff  float32
	lastQ       float32
	initialized bool
}

func (n *Filter) Inputs() []graph.NodeID { return []graph.NodeID{n.Input, n.Cutoff, n.Q} }

func (n *Filter) Reset() {
	n.bq.reset()
	n.initialized = false
}

func (n *Filter) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	cutoff := controlValue(in[1])
	q := controlValue(in[2])
	if q <= 0 {
		q = 0.707
	}
	if !n.initialized || cutoff != n.lastCutoff || q != n.lastQ {
		n.applyShape(ctx.SampleRate, float64(cutoff), float64(q))
		n.lastCutoff, n.lastQ, n.initialized = cutoff, q, true
	}
	src := in[0]
	for i := range out {
		out[i] = n.bq.process(src[i])
	}
}

func (n *Filter) applyShape(sampleRate, freq, q float64) {
	switch n.Shape {
	case ShapeHighpass:
		n.bq.setHighpass(sampleRate, freq, q)
	case ShapeBandpass:
		n.bq.setBandpass(sampleRate, freq, q)
	case ShapeNotch:
		n.bq.setNotch(sampleRate, freq, q)
	case ShapeAllpass:
		n.bq.setAllpass(sampleRate, freq, q)
	case ShapePeakingEQ:
		n.bq.setPeakingEQ(sampleRate, freq, q, n.GainDB)
	case ShapeLowShelf:
		n.bq.setLowShelf(sampleRate, freq, q, n.GainDB)
	case ShapeHighShelf:
		n.bq.setHighShelf(sampleRate, freq, q, n.GainDB)
	default:
		n.bq.setLowpass(sampleRate, freq, q)
	}
}

// SVFMode selects which of the state-variable filter's simultaneous
// outputs StateVariableFilter emits.
type SVFMode int

const (
	SVFLowpass SVFMode = iota
	SVFHighpass
	SVFBandpass
	SVFNotch
)

// zdfSVF is a zero-delay-feedback state-variable filter (the Andrew Simper
// topology) producing lowpass/highpass/bandpass/notch simultaneously from a
// single pair of integrator states, avoiding the unit sample delay a
// naive trapezoidal implementation would introduce.
type zdfSVF struct {
	ic1eq, ic2eq float64
	g, k, a1, a2, a3 float64
}

func (s *zdfSVF) reset() { s.ic1eq, s.ic2eq = 0, 0 }

func (s *zdfSVF) setFreqAndQ(sr, freq, q float64) {
	s.g = math.Tan(math.Pi * freq / sr)
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

type svfOutputs struct {
	Lowpass, Highpass, Bandpass, Notch float32
}

func (s *zdfSVF) process(sample float32) svfOutputs {
	v0 := float64(sample)
	v3 := v0 - s.ic2eq
	v1 := s.a1*s.ic1eq + s.a2*v3
	v2 := s.ic2eq + s.a2*s.ic1eq + s.a3*v3
	s.ic1eq = 2*v1 - s.ic1eq
	s.ic2eq = 2*v2 - s.ic2eq
	hp := v0 - s.k*v1 - v2
	return svfOutputs{
		Lowpass:  float32(v2),
		Highpass: float32(hp),
		Bandpass: float32(v1),
		Notch:    float32(v2 + hp),
	}
}

// StateVariableFilter emits one of the zero-delay-feedback state-variable
// filter's simultaneous outputs; Mode selects which one, so a patch that
// needs two responses from one cutoff uses two nodes sharing the same
// Cutoff/Q inputs.
type StateVariableFilter struct {
	Input, Cutoff, Q graph.NodeID
	Mode             SVFMode

	svf zdfSVF
}

func (n *StateVariableFilter) Inputs() []graph.NodeID {
	return []graph.NodeID{n.Input, n.Cutoff, n.Q}
}

func (n *StateVariableFilter) Reset() { n.svf.reset() }

func (n *StateVariableFilter) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	cutoff := controlValue(in[1])
	q := controlValue(in[2])
	if q <= 0 {
		q = 0.707
	}
	n.svf.setFreqAndQ(ctx.SampleRate, float64(cutoff), float64(q))
	src := in[0]
	for i := range out {
		o := n.svf.process(src[i])
		switch n.Mode {
		case SVFHighpass:
			out[i] = o.Highpass
		case SVFBandpass:
			out[i] = o.Bandpass
		case SVFNotch:
			out[i] = o.Notch
		default:
			out[i] = o.Lowpass
		}
	}
}
