package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// envStage names where an adsrGen sits in its attack/decay/sustain/release
// cycle.
type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// adsrGen is an exponential attack/decay/sustain/release generator used by
// Envelope (pkg/voice has its own per-voice envelope): every stage but sustain
// chases a target value with a one-pole coefficient exp(-1/(time*rate)),
// which gives the curve its natural, non-linear shape.
type adsrGen struct {
	sampleRate float64
	attack, decay, sustain, release float64
	attackCoef, decayCoef, releaseCoef float64

	stage  envStage
	value  float64
	target float64
}

func newADSRGen(sampleRate float64) *adsrGen {
	g := &adsrGen{sampleRate: sampleRate, attack: 0.01, decay: 0.1, sustain: 0.7, release: 0.3}
	g.recalc()
	return g
}

func (g *adsrGen) setADSR(attack, decay, sustain, release float64) {
	g.attack = math.Max(0.001, attack)
	g.decay = math.Max(0.001, decay)
	g.sustain = math.Max(0, math.Min(1, sustain))
	g.release = math.Max(0.001, release)
	g.recalc()
}

func (g *adsrGen) recalc() {
	g.attackCoef = expCoef(g.attack, g.sampleRate)
	g.decayCoef = expCoef(g.decay, g.sampleRate)
	g.releaseCoef = expCoef(g.release, g.sampleRate)
}

func expCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

func (g *adsrGen) trigger() {
	g.stage = envAttack
	g.target = 1.0
}

func (g *adsrGen) gateRelease() {
	if g.stage != envIdle {
		g.stage = envRelease
		g.target = 0.0
	}
}

func (g *adsrGen) reset() {
	g.stage = envIdle
	g.value = 0
	g.target = 0
}

func (g *adsrGen) active() bool { return g.stage != envIdle }

func (g *adsrGen) next() float32 {
	switch g.stage {
	case envAttack:
		g.value = g.target + (g.value-g.target)*g.attackCoef
		if g.value >= 0.999 {
			g.value = 1.0
			g.stage = envDecay
			g.target = g.sustain
		}
	case envDecay:
		g.value = g.target + (g.value-g.target)*g.decayCoef
		if g.value <= g.sustain+0.001 {
			g.value = g.sustain
			g.stage = envSustain
		}
	case envSustain:
		g.value = g.sustain
	case envRelease:
		g.value = g.target + (g.value-g.target)*g.releaseCoef
		if g.value <= 0.001 {
			g.value = 0
			g.stage = envIdle
		}
	case envIdle:
		g.value = 0
	}
	return float32(g.value)
}

// Envelope generates an attack/decay/sustain/release contour driven by a
// gate input: a rising edge (gate crossing above 0.5) triggers attack, a
// falling edge triggers release. Used standalone for modulation envelopes;
// the voice pool drives its own per-voice generator directly rather than
// through this node.
type Envelope struct {
	Gate                            graph.NodeID
	Attack, Decay, Sustain, Release float64

	gen      *adsrGen
	gateHigh bool
}

func (n *Envelope) Inputs() []graph.NodeID { return []graph.NodeID{n.Gate} }

func (n *Envelope) Reset() {
	if n.gen != nil {
		n.gen.reset()
	}
	n.gateHigh = false
}

func (n *Envelope) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.gen == nil {
		n.gen = newADSRGen(ctx.SampleRate)
		n.gen.setADSR(n.Attack, n.Decay, n.Sustain, n.Release)
	}
	gate := in[0]
	for i := range out {
		high := gate[i] > 0.5
		if high && !n.gateHigh {
			n.gen.trigger()
		} else if !high && n.gateHigh {
			n.gen.gateRelease()
		}
		n.gateHigh = high
		out[i] = n.gen.next()
	}
}
