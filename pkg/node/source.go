package node

import (
	"math"
	"math/rand"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// Constant outputs the same value on every sample, with no inputs.
type Constant struct {
	Value float32
}

func (n *Constant) Inputs() []graph.NodeID { return nil }
func (n *Constant) Reset()                 {}
func (n *Constant) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	for i := range out {
		out[i] = n.Value
	}
}

// Waveform selects which periodic waveform Oscillator renders.
type Waveform int

const (
	WaveformSine Waveform = iota
	WaveformSaw
	WaveformSquare
	WaveformTriangle
)

// cycleGen is a phase-accumulator generator used by Oscillator (pkg/voice
// has its own per-voice oscillator): it tracks a [0,1) position advanced by
// frequency/sampleRate each sample and reads off the requested waveform from
// that position, rather than integrating a separate oscillator per shape.
type cycleGen struct {
	sampleRate float64
	pos        float64
}

func newCycleGen(sampleRate float64) *cycleGen {
	return &cycleGen{sampleRate: sampleRate}
}

func (g *cycleGen) reset() { g.pos = 0 }

func (g *cycleGen) advance(freqHz float64) {
	g.pos += freqHz / g.sampleRate
	g.pos -= math.Floor(g.pos)
}

func (g *cycleGen) sine() float32     { return float32(math.Sin(2 * math.Pi * g.pos)) }
func (g *cycleGen) saw() float32      { return float32(2*g.pos - 1) }
func (g *cycleGen) square() float32 {
	if g.pos < 0.5 {
		return 1
	}
	return -1
}
func (g *cycleGen) triangle() float32 {
	if g.pos < 0.5 {
		return float32(4*g.pos - 1)
	}
	return float32(3 - 4*g.pos)
}

// Oscillator renders a periodic waveform at a frequency given by its input
// node (read per-sample, since pitch commonly changes faster than a block).
type Oscillator struct {
	Freq graph.NodeID
	Wave Waveform

	gen *cycleGen
}

func (n *Oscillator) Inputs() []graph.NodeID { return []graph.NodeID{n.Freq} }

func (n *Oscillator) Reset() {
	if n.gen != nil {
		n.gen.reset()
	}
}

func (n *Oscillator) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.gen == nil {
		n.gen = newCycleGen(ctx.SampleRate)
	}
	freq := in[0]
	for i := range out {
		f := float64(0)
		if i < len(freq) {
			f = float64(freq[i])
		}
		switch n.Wave {
		case WaveformSaw:
			out[i] = n.gen.saw()
		case WaveformSquare:
			out[i] = n.gen.square()
		case WaveformTriangle:
			out[i] = n.gen.triangle()
		default:
			out[i] = n.gen.sine()
		}
		n.gen.advance(f)
	}
}

// Pulse is a pulse-wave oscillator with a continuously variable duty cycle
// (width 0.5 == square wave).
type Pulse struct {
	Freq  graph.NodeID
	Width graph.NodeID

	phase float64
}

func (n *Pulse) Inputs() []graph.NodeID { return []graph.NodeID{n.Freq, n.Width} }
func (n *Pulse) Reset()                 { n.phase = 0 }

func (n *Pulse) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	freq, width := in[0], in[1]
	for i := range out {
		f := float64(0)
		if i < len(freq) {
			f = float64(freq[i])
		}
		w := float32(0.5)
		if i < len(width) {
			w = width[i]
		}
		if n.phase < float64(w) {
			out[i] = 1.0
		} else {
			out[i] = -1.0
		}
		n.phase += f / ctx.SampleRate
		if n.phase >= 1.0 {
			n.phase -= 1.0
		}
	}
}

// NoiseColor selects Noise's spectral shape. The numeric ordering is fixed
// so graphbuilder's integer literal dispatch keeps working unchanged.
type NoiseColor int

const (
	NoiseWhite NoiseColor = iota
	NoisePink
	NoiseBrown
	NoiseBlue
	NoiseViolet
)

// Noise generates a colored noise source, scaled by an amplitude input node.
// Pink noise uses a Voss-McCartney style row generator; brown is a leaky
// integrator of white noise; blue and violet are successive differences.
type Noise struct {
	Amplitude graph.NodeID
	Color     NoiseColor
	Seed      int64

	rng        *rand.Rand
	pinkRows   [16]float32
	pinkSum    float32
	pinkTick   int
	brownState float32
	blueState  float32
}

func (n *Noise) Inputs() []graph.NodeID { return []graph.NodeID{n.Amplitude} }

func (n *Noise) Reset() {
	n.brownState, n.blueState, n.pinkSum, n.pinkTick = 0, 0, 0, 0
	for i := range n.pinkRows {
		n.pinkRows[i] = 0
	}
}

func (n *Noise) white() float32 {
	return float32(n.rng.Float64()*2 - 1)
}

func (n *Noise) pink() float32 {
	n.pinkTick = (n.pinkTick + 1) & 15
	if n.pinkTick != 0 {
		zeros := 0
		for t := n.pinkTick; t&1 == 0; t >>= 1 {
			zeros++
		}
		n.pinkSum -= n.pinkRows[zeros]
		n.pinkRows[zeros] = n.white()
		n.pinkSum += n.pinkRows[zeros]
	}
	out := (n.pinkSum + n.white()) / 20
	if out > 1 {
		out = 1
	} else if out < -1 {
		out = -1
	}
	return out
}

func (n *Noise) brown() float32 {
	n.brownState = clamp32(n.brownState+n.white()*0.0625, -1, 1) * 0.997
	return n.brownState
}

func (n *Noise) blue() float32 {
	w := n.white()
	out := (w - n.blueState) * 0.5
	n.blueState = w
	return out
}

func (n *Noise) violet() float32 {
	b := n.blue()
	out := (b - n.blueState) * 0.25
	n.blueState = b
	return out
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (n *Noise) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.rng == nil {
		seed := n.Seed
		if seed == 0 {
			seed = 1
		}
		n.rng = rand.New(rand.NewSource(seed))
		for i := range n.pinkRows {
			n.pinkRows[i] = n.white()
		}
	}
	amp := controlValue(in[0])
	for i := range out {
		switch n.Color {
		case NoisePink:
			out[i] = n.pink()
		case NoiseBrown:
			out[i] = n.brown()
		case NoiseBlue:
			out[i] = n.blue()
		case NoiseViolet:
			out[i] = n.violet()
		default:
			out[i] = n.white()
		}
		out[i] *= amp
	}
}

// GaussianNoise generates a normally-distributed source via the Box-Muller
// transform, useful as dither or a smoother modulation noise than white.
type GaussianNoise struct {
	Amplitude graph.NodeID

	rng      *rand.Rand
	hasSpare bool
	spare    float32
}

func (n *GaussianNoise) Inputs() []graph.NodeID { return []graph.NodeID{n.Amplitude} }
func (n *GaussianNoise) Reset()                 { n.hasSpare = false }

func (n *GaussianNoise) next() float32 {
	if n.hasSpare {
		n.hasSpare = false
		return n.spare * 0.3
	}
	u1, u2 := n.rng.Float64(), n.rng.Float64()
	mag := float32(math.Sqrt(-2 * math.Log(u1)))
	z0 := mag * float32(math.Cos(2*math.Pi*u2))
	z1 := mag * float32(math.Sin(2*math.Pi*u2))
	n.spare = z1
	n.hasSpare = true
	return z0 * 0.3
}

func (n *GaussianNoise) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(1))
	}
	amp := controlValue(in[0])
	for i := range out {
		out[i] = n.next() * amp
	}
}
