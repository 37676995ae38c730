package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// levelFollower is a one-pole attack/release envelope follower used to
// drive gain-computer stages: it tracks |x| with independent exponential
// coefficients for rising and falling input, the same smoothing technique
// the ADSR generator uses for its stage transitions.
type levelFollower struct {
	sampleRate         float64
	attackCoef         float64
	releaseCoef        float64
	level              float64
}

func (f *levelFollower) setTimes(attackSeconds, releaseSeconds float64) {
	f.attackCoef = followerCoef(attackSeconds, f.sampleRate)
	f.releaseCoef = followerCoef(releaseSeconds, f.sampleRate)
}

func followerCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

func (f *levelFollower) track(sample float32) float64 {
	in := math.Abs(float64(sample))
	if in > f.level {
		if f.attackCoef == 0 {
			f.level = in
		} else {
			f.level = in + (f.level-in)*f.attackCoef
		}
	} else {
		if f.releaseCoef == 0 {
			f.level = in
		} else {
			f.level = in + (f.level-in)*f.releaseCoef
		}
	}
	return f.level
}

func (f *levelFollower) reset() { f.level = 0 }

func linearToDB(level float64) float64 {
	if level <= 0 {
		return -96.0
	}
	return 20.0 * math.Log10(level)
}

func dbToLinear(db float64) float32 {
	return float32(math.Pow(10.0, db/20.0))
}

// delayLine is a simple circular lookahead buffer: step stores the
// current sample and returns the one written delaySamples ago.
type delayLine struct {
	buf   []float32
	index int
}

func (d *delayLine) setSamples(n int) {
	if n == len(d.buf) {
		return
	}
	if n <= 0 {
		d.buf = nil
		d.index = 0
		return
	}
	d.buf = make([]float32, n)
	d.index = 0
}

func (d *delayLine) step(sample float32) float32 {
	if len(d.buf) == 0 {
		return sample
	}
	out := d.buf[d.index]
	d.buf[d.index] = sample
	d.index = (d.index + 1) % len(d.buf)
	return out
}

func (d *delayLine) reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.index = 0
}

// Limiter is a brick-wall peak limiter with lookahead and optional true-peak
// estimation: threshold is in dB and read once per block from a
// control-rate input.
type Limiter struct {
	Input, Threshold graph.NodeID
	LookaheadSeconds float64
	TruePeak         bool

	threshold    float64
	follower     levelFollower
	lookahead    delayLine
	lastSample   float32
	configured   bool
}

func (n *Limiter) Inputs() []graph.NodeID {
	return []graph.NodeID{n.Input, n.Threshold}
}

func (n *Limiter) Reset() {
	n.follower.reset()
	n.lookahead.reset()
	n.lastSample = 0
}

func (n *Limiter) estimateTruePeak(current float32) float32 {
	mid := (n.lastSample + current) * 0.5
	peak := float32(math.Max(math.Abs(float64(n.lastSample)), math.Abs(float64(current))))
	peak = float32(math.Max(float64(peak), math.Abs(float64(mid))))
	n.lastSample = current
	return peak
}

func (n *Limiter) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if !n.configured {
		n.follower.sampleRate = ctx.SampleRate
		n.follower.setTimes(0.0001, 0.050)
		lookahead := n.LookaheadSeconds
		if lookahead <= 0 {
			lookahead = 0.005
		}
		n.lookahead.setSamples(int(lookahead * ctx.SampleRate))
		n.configured = true
	}
	n.threshold = math.Min(0.0, float64(controlValue(in[1])))
	src := in[0]
	for i := range out {
		sample := src[i]
		detect := sample
		if n.TruePeak {
			detect = n.estimateTruePeak(sample)
		}
		processSignal := n.lookahead.step(sample)
		level := n.follower.track(detect)
		gainReductionDB := 0.0
		if db := linearToDB(level); db > n.threshold {
			gainReductionDB = db - n.threshold
		}
		out[i] = processSignal * dbToLinear(-gainReductionDB)
	}
}

// Compressor is a feed-forward dynamic-range compressor with a soft-knee
// gain computer.
type Compressor struct {
	Input            graph.NodeID
	Threshold, Ratio float64
	Attack, Release  float64
	MakeupGainDB     float64
	KneeWidthDB      float64

	follower   levelFollower
	configured bool
}

func (n *Compressor) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }

func (n *Compressor) Reset() { n.follower.reset() }

func (n *Compressor) computeGainDB(inputDB float64) float64 {
	knee := n.KneeWidthDB
	if knee <= 0 {
		knee = 2.0
	}
	ratio := math.Max(1.0, n.Ratio)
	if inputDB < n.Threshold-knee/2 {
		return 0
	}
	if inputDB > n.Threshold+knee/2 {
		return (inputDB - n.Threshold) * (1.0 - 1.0/ratio)
	}
	kneePos := (inputDB - (n.Threshold - knee/2)) / knee
	overshoot := inputDB - n.Threshold
	return kneePos * kneePos * overshoot * (1.0 - 1.0/ratio)
}

func (n *Compressor) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if !n.configured {
		n.follower.sampleRate = ctx.SampleRate
		attack := n.Attack
		if attack <= 0 {
			attack = 0.005
		}
		release := n.Release
		if release <= 0 {
			release = 0.050
		}
		n.follower.setTimes(attack, release)
		n.configured = true
	}
	src := in[0]
	for i := range out {
		level := n.follower.track(src[i])
		gainReductionDB := n.computeGainDB(linearToDB(level))
		gain := dbToLinear(-gainReductionDB + n.MakeupGainDB)
		out[i] = src[i] * gain
	}
}

// gateStage names where a Gate sits in its hysteresis state machine.
type gateStage int

const (
	gateClosed gateStage = iota
	gateOpening
	gateHeldOpen
	gateHolding
	gateClosing
)

// Gate is a noise gate: below-threshold signal is attenuated toward a deep
// floor gain, with independent attack/hold/release timing and hysteresis
// between the opening and closing thresholds to avoid chatter.
type Gate struct {
	Input                   graph.NodeID
	ThresholdDB, AttackSecs float64
	HoldSecs, ReleaseSecs   float64
	HysteresisDB            float64
	RangeDB                 float64
	SidechainHPFHz          float64

	stage       gateStage
	holdLeft    int
	holdSamples int
	currentGain float64
	targetGain  float64
	attackCoef  float64
	releaseCoef float64
	hpfLastIn   float32
	hpfState    float64
	configured  bool
}

func (n *Gate) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }

func (n *Gate) Reset() {
	n.stage = gateClosed
	n.currentGain = float64(n.floorGain())
	n.targetGain = n.currentGain
	n.holdLeft = 0
	n.hpfState = 0
	n.hpfLastIn = 0
}

func (n *Gate) floorGain() float64 {
	rangeDB := n.RangeDB
	if rangeDB == 0 {
		rangeDB = -80.0
	}
	return math.Pow(10.0, rangeDB/20.0)
}

func (n *Gate) applySidechainHPF(sample float32, sampleRate float64) float32 {
	if n.SidechainHPFHz <= 0 {
		return sample
	}
	a := math.Exp(-2.0 * math.Pi * n.SidechainHPFHz / sampleRate)
	out := float32((1+a)/2)*(sample-n.hpfLastIn) + float32(a)*float32(n.hpfState)
	n.hpfLastIn = sample
	n.hpfState = float64(out)
	return out
}

func (n *Gate) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if !n.configured {
		n.attackCoef = followerCoef(math.Max(0, n.AttackSecs), ctx.SampleRate)
		n.releaseCoef = followerCoef(math.Max(0, n.ReleaseSecs), ctx.SampleRate)
		n.holdSamples = int(math.Max(0, n.HoldSecs) * ctx.SampleRate)
		n.currentGain = n.floorGain()
		n.targetGain = n.currentGain
		n.configured = true
	}
	hysteresis := n.HysteresisDB
	if hysteresis == 0 {
		hysteresis = 5.0
	}
	src := in[0]
	for i := range out {
		detected := n.applySidechainHPF(src[i], ctx.SampleRate)
		inputDB := linearToDB(math.Abs(float64(detected)))

		switch n.stage {
		case gateClosed:
			if inputDB > n.ThresholdDB {
				n.stage = gateOpening
				n.targetGain = 1.0
			}
		case gateOpening:
			if n.currentGain >= 0.99 {
				n.stage = gateHeldOpen
			} else if inputDB < n.ThresholdDB-hysteresis {
				n.stage = gateClosing
				n.targetGain = n.floorGain()
			}
		case gateHeldOpen:
			if inputDB < n.ThresholdDB-hysteresis {
				n.stage = gateHolding
				n.holdLeft = n.holdSamples
			}
		case gateHolding:
			if inputDB > n.ThresholdDB-hysteresis {
				n.stage = gateHeldOpen
			} else if n.holdLeft > 0 {
				n.holdLeft--
			} else {
				n.stage = gateClosing
				n.targetGain = n.floorGain()
			}
		case gateClosing:
			if inputDB > n.ThresholdDB {
				n.stage = gateOpening
				n.targetGain = 1.0
			} else if n.currentGain <= n.targetGain*1.01 {
				n.stage = gateClosed
			}
		}

		if n.currentGain < n.targetGain {
			if n.attackCoef == 0 {
				n.currentGain = n.targetGain
			} else {
				n.currentGain = n.targetGain + (n.currentGain-n.targetGain)*n.attackCoef
			}
		} else if n.currentGain > n.targetGain {
			if n.releaseCoef == 0 {
				n.currentGain = n.targetGain
			} else {
				n.currentGain = n.targetGain + (n.currentGain-n.targetGain)*n.releaseCoef
			}
		}

		out[i] = src[i] * float32(n.currentGain)
	}
}
