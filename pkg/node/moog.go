package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// ladderStage is a four-pole transistor-ladder lowpass, cascading one-pole
// stages through a tanh-saturating feedback path. Resonance near 4
// approaches self-oscillation.
type ladderStage struct {
	sampleRate float64
	cutoff     float64
	resonance  float64
	tune       float32
	pole       [4]float32
}

func (l *ladderStage) setCutoff(freq float64) {
	l.cutoff = freq
	fc := l.cutoff / l.sampleRate
	l.tune = float32(1 - math.Exp(-2*math.Pi*fc))
}

func (l *ladderStage) setResonance(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 4 {
		r = 4
	}
	l.resonance = r
}

func (l *ladderStage) reset() {
	for i := range l.pole {
		l.pole[i] = 0
	}
}

func (l *ladderStage) step(sample float32) float32 {
	fb := float32(l.resonance) * l.pole[3]
	input := float32(math.Tanh(float64(sample - fb)))
	l.pole[0] += l.tune * (input - l.pole[0])
	l.pole[1] += l.tune * (l.pole[0] - l.pole[1])
	l.pole[2] += l.tune * (l.pole[1] - l.pole[2])
	l.pole[3] += l.tune * (l.pole[2] - l.pole[3])
	return l.pole[3]
}

// MoogFilter is a four-pole ladder lowpass, re-reading cutoff/resonance once
// per block as control-rate parameters.
type MoogFilter struct {
	Input, Cutoff, Resonance graph.NodeID

	ladder     ladderStage
	configured bool
}

func (n *MoogFilter) Inputs() []graph.NodeID {
	return []graph.NodeID{n.Input, n.Cutoff, n.Resonance}
}

func (n *MoogFilter) Reset() { n.ladder.reset() }

func (n *MoogFilter) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if !n.configured {
		n.ladder.sampleRate = ctx.SampleRate
		n.configured = true
	}
	n.ladder.setCutoff(float64(controlValue(in[1])))
	n.ladder.setResonance(float64(controlValue(in[2])))
	src := in[0]
	for i := range out {
		out[i] = n.ladder.step(src[i])
	}
}
