package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// dryWet linearly crossfades a dry and wet sample by amount in [0,1].
func dryWet(dry, wet, amount float32) float32 {
	return dry*(1-amount) + wet*amount
}

// sumWeighted zeroes dst then accumulates each buffer scaled by its gain,
// defaulting to unity gain for any buffer past the end of gains.
func sumWeighted(buffers [][]float32, gains []float32, dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	for j, buf := range buffers {
		gain := float32(1.0)
		if j < len(gains) {
			gain = gains[j]
		}
		n := len(buf)
		if n > len(dst) {
			n = len(dst)
		}
		for i := 0; i < n; i++ {
			dst[i] += buf[i] * gain
		}
	}
}

// ringDelay is a circular lookahead-free delay buffer addressed by a
// fractional sample count, used by Delay and by the modulation effects'
// internal delay lines.
type ringDelay struct {
	buf        []float32
	writePos   int
	sampleRate float64
}

func newRingDelay(maxSeconds, sampleRate float64) *ringDelay {
	size := int(maxSeconds*sampleRate) + 1
	if size < 1 {
		size = 1
	}
	return &ringDelay{buf: make([]float32, size), sampleRate: sampleRate}
}

func (r *ringDelay) reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.writePos = 0
}

func (r *ringDelay) write(sample float32) {
	r.buf[r.writePos] = sample
	r.writePos = (r.writePos + 1) % len(r.buf)
}

// readSamples returns a linearly-interpolated sample delaySamples behind the
// current write position.
func (r *ringDelay) readSamples(delaySamples float64) float32 {
	n := len(r.buf)
	readPos := float64(r.writePos) - delaySamples
	for readPos < 0 {
		readPos += float64(n)
	}
	idx := int(readPos)
	frac := float32(readPos - float64(idx))
	idx %= n
	next := (idx + 1) % n
	return r.buf[idx]*(1-frac) + r.buf[next]*frac
}

// process reads the delayed sample before writing the new input, matching
// the original delay line's read-before-write ordering so feedback from a
// given sample is heard on the next cycle, not the current one.
func (r *ringDelay) process(input float32, delaySamples float64) float32 {
	out := r.readSamples(delaySamples)
	r.write(input)
	return out
}

func (r *ringDelay) msToSamples(ms float64) float64 {
	return ms * 0.001 * r.sampleRate
}

// Delay is a feedback delay line: TimeMs and Feedback are control-rate, Mix
// blends dry/wet.
type Delay struct {
	Input, TimeMs, Feedback, Mix graph.NodeID
	MaxDelaySeconds              float64

	line     *ringDelay
	feedback float32
}

func (n *Delay) Inputs() []graph.NodeID {
	return []graph.NodeID{n.Input, n.TimeMs, n.Feedback, n.Mix}
}

func (n *Delay) Reset() {
	if n.line != nil {
		n.line.reset()
	}
	n.feedback = 0
}

func (n *Delay) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.line == nil {
		maxSec := n.MaxDelaySeconds
		if maxSec <= 0 {
			maxSec = 2.0
		}
		n.line = newRingDelay(maxSec, ctx.SampleRate)
	}
	timeMs := float64(controlValue(in[1]))
	fb := controlValue(in[2])
	wetMix := controlValue(in[3])
	src := in[0]
	for i := range out {
		wet := n.line.process(src[i]+n.feedback*fb, n.line.msToSamples(timeMs))
		n.feedback = wet
		out[i] = dryWet(src[i], wet, wetMix)
	}
}

// combFilter is a feedback comb filter with a one-pole damping stage in its
// feedback path, the building block both Freeverb and the Schroeder reverb
// are made of.
type combFilter struct {
	buf        []float32
	idx        int
	feedback   float64
	store      float32
	damp1      float64
	damp2      float64
}

func newCombFilter(delaySamples int) *combFilter {
	return &combFilter{buf: make([]float32, delaySamples), feedback: 0.5, damp1: 0.5, damp2: 0.5}
}

func (c *combFilter) setFeedback(fb float64) { c.feedback = clamp01(fb) }
func (c *combFilter) setDamping(d float64) {
	c.damp1 = d
	c.damp2 = 1 - d
}

func (c *combFilter) process(input float32) float32 {
	out := c.buf[c.idx]
	c.store = float32(float64(out)*c.damp2 + float64(c.store)*c.damp1)
	c.buf[c.idx] = input + float32(c.feedback)*c.store
	c.idx = (c.idx + 1) % len(c.buf)
	return out
}

func (c *combFilter) reset() {
	for i := range c.buf {
		c.buf[i] = 0
	}
	c.idx = 0
	c.store = 0
}

// reverbAllpass is a Schroeder all-pass diffuser: y[n] = -x[n] + x[n-D] +
// feedback*y[n-D].
type reverbAllpass struct {
	buf      []float32
	idx      int
	feedback float64
}

func newReverbAllpass(delaySamples int, feedback float64) *reverbAllpass {
	return &reverbAllpass{buf: make([]float32, delaySamples), feedback: feedback}
}

func (a *reverbAllpass) process(input float32) float32 {
	bufOut := a.buf[a.idx]
	out := -input + bufOut
	a.buf[a.idx] = input + float32(a.feedback)*bufOut
	a.idx = (a.idx + 1) % len(a.buf)
	return out
}

func (a *reverbAllpass) reset() {
	for i := range a.buf {
		a.buf[i] = 0
	}
	a.idx = 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// freeverbCombTunings and freeverbAllpassTunings are the comb/allpass delay lengths in samples at 44.1kHz;
// other rates scale proportionally.
var freeverbCombTunings = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var freeverbAllpassTunings = [4]int{556, 441, 341, 225}

// freeverbReverb is Jezar-at-Dreampoint's eight-comb, four-allpass topology,
// folded mono since this engine's reverb nodes are single-channel.
type freeverbReverb struct {
	combs     [8]*combFilter
	allpasses [4]*reverbAllpass

	roomSize, damping, wetLevel, dryLevel float64
}

func newFreeverb(sampleRate float64) *freeverbReverb {
	f := &freeverbReverb{roomSize: 0.5, damping: 0.5, wetLevel: 1.0 / 3.0, dryLevel: 0}
	scale := sampleRate / 44100.0
	for i := range f.combs {
		f.combs[i] = newCombFilter(int(float64(freeverbCombTunings[i]) * scale))
	}
	for i := range f.allpasses {
		f.allpasses[i] = newReverbAllpass(int(float64(freeverbAllpassTunings[i])*scale), 0.5)
	}
	f.update()
	return f
}

func (f *freeverbReverb) update() {
	feedback := f.roomSize*0.28 + 0.7
	for _, c := range f.combs {
		c.setFeedback(feedback)
		c.setDamping(f.damping * 0.4)
	}
}

func (f *freeverbReverb) setRoomSize(v float64) { f.roomSize = clamp01(v); f.update() }
func (f *freeverbReverb) setDamping(v float64)  { f.damping = clamp01(v); f.update() }
func (f *freeverbReverb) setWetDry(wet, dry float64) {
	f.wetLevel, f.dryLevel = clamp01(wet), clamp01(dry)
}

func (f *freeverbReverb) process(input float32) float32 {
	gained := input * 0.015
	var sum float32
	for _, c := range f.combs {
		sum += c.process(gained)
	}
	for _, a := range f.allpasses {
		sum = a.process(sum)
	}
	return sum*float32(f.wetLevel) + input*float32(f.dryLevel)
}

func (f *freeverbReverb) reset() {
	for _, c := range f.combs {
		c.reset()
	}
	for _, a := range f.allpasses {
		a.reset()
	}
}

// schroederReverb is the classic four-comb, two-allpass Schroeder topology.
type schroederReverb struct {
	combs     [4]*combFilter
	allpasses [2]*reverbAllpass

	roomSize, damping, wetLevel, dryLevel float64
}

func newSchroederReverb(sampleRate float64) *schroederReverb {
	s := &schroederReverb{roomSize: 0.5, damping: 0.5, wetLevel: 0.3, dryLevel: 0.7}
	combMs := [4]float64{29.7, 37.1, 41.1, 43.7}
	allpassMs := [2]float64{5.0, 1.7}
	for i := range s.combs {
		s.combs[i] = newCombFilter(int(combMs[i] * sampleRate / 1000.0))
	}
	for i := range s.allpasses {
		s.allpasses[i] = newReverbAllpass(int(allpassMs[i]*sampleRate/1000.0), 0.5)
	}
	s.update()
	return s
}

func (s *schroederReverb) update() {
	feedback := 0.28 + s.roomSize*0.7
	for _, c := range s.combs {
		c.setFeedback(feedback)
		c.setDamping(s.damping)
	}
}

func (s *schroederReverb) setRoomSize(v float64) { s.roomSize = clamp01(v); s.update() }
func (s *schroederReverb) setDamping(v float64)  { s.damping = clamp01(v); s.update() }
func (s *schroederReverb) setWetDry(wet, dry float64) {
	s.wetLevel, s.dryLevel = clamp01(wet), clamp01(dry)
}

func (s *schroederReverb) process(input float32) float32 {
	var sum float32
	for _, c := range s.combs {
		sum += c.process(input)
	}
	sum *= 0.25
	for _, a := range s.allpasses {
		sum = a.process(sum)
	}
	return input*float32(s.dryLevel) + sum*float32(s.wetLevel)
}

func (s *schroederReverb) reset() {
	for _, c := range s.combs {
		c.reset()
	}
	for _, a := range s.allpasses {
		a.reset()
	}
}

// dampingOnePole is the lowpass damping stage inside each FDN delay loop.
type dampingOnePole struct {
	state float32
	coef  float64
}

func (d *dampingOnePole) setDamping(amount float64) { d.coef = 1.0 - clamp01(amount) }
func (d *dampingOnePole) process(in float32) float32 {
	d.state = in*float32(1.0-d.coef) + d.state*float32(d.coef)
	return d.state
}
func (d *dampingOnePole) reset() { d.state = 0 }

// feedbackDelayNetwork is a four-line Hadamard-matrix FDN: a fixed 4x4
// Hadamard mixing matrix (no need for a general reflection-matrix
// fallback since this engine always builds exactly four lines) with
// per-line one-pole damping. LFO modulation is left out since a sensible
// default configuration has it disabled anyway.
type feedbackDelayNetwork struct {
	lines       [4]*ringDelay
	delaySmpls  [4]float64
	damping     [4]*dampingOnePole
	matrix      [4][4]float64
	inputGain   float64
	outputGain  float64
	decay       float64
	dampAmount  float64
	diffusion   float64
	wetLevel    float64
	dryLevel    float64
}

var fdnHadamard = [4][4]float64{
	{0.5, 0.5, 0.5, 0.5},
	{0.5, -0.5, 0.5, -0.5},
	{0.5, 0.5, -0.5, -0.5},
	{0.5, -0.5, -0.5, 0.5},
}

var fdnPrimeDelayMsByLine = [4]float64{10, 12.6, 13.5, 16.1}

func newFDN(sampleRate float64) *feedbackDelayNetwork {
	f := &feedbackDelayNetwork{
		decay: 0.5, dampAmount: 0.5, diffusion: 0.5, wetLevel: 0.3, dryLevel: 0.7,
		inputGain: 0.5, outputGain: 0.5,
		matrix: fdnHadamard,
	}
	for i := 0; i < 4; i++ {
		f.delaySmpls[i] = fdnPrimeDelayMsByLine[i] * 0.001 * sampleRate
		f.lines[i] = newRingDelay(fdnPrimeDelayMsByLine[i]/1000.0+0.01, sampleRate)
		f.damping[i] = &dampingOnePole{}
		f.damping[i].setDamping(f.dampAmount)
	}
	return f
}

func (f *feedbackDelayNetwork) setDecay(v float64)     { f.decay = clamp01(v) }
func (f *feedbackDelayNetwork) setDiffusion(v float64) { f.diffusion = clamp01(v) }
func (f *feedbackDelayNetwork) setDamping(v float64) {
	f.dampAmount = clamp01(v)
	for _, d := range f.damping {
		d.setDamping(f.dampAmount)
	}
}
func (f *feedbackDelayNetwork) setWetDry(wet, dry float64) {
	f.wetLevel, f.dryLevel = clamp01(wet), clamp01(dry)
}

func (f *feedbackDelayNetwork) process(input float32) float32 {
	var outs [4]float32
	for i := 0; i < 4; i++ {
		outs[i] = f.lines[i].readSamples(f.delaySmpls[i])
	}
	decayScale := 0.4 + f.decay*0.58
	var feedbackIn [4]float32
	for i := 0; i < 4; i++ {
		var sum float32
		for j := 0; j < 4; j++ {
			if i == j {
				sum += outs[j] * float32(1.0-f.diffusion) * float32(decayScale)
			}
			sum += outs[j] * float32(f.matrix[i][j]*f.diffusion) * float32(decayScale)
		}
		feedbackIn[i] = sum
	}
	for i := 0; i < 4; i++ {
		in := input*float32(f.inputGain) + feedbackIn[i]
		in = f.damping[i].process(in)
		f.lines[i].write(in)
	}
	var sum float32
	for i := 0; i < 4; i++ {
		sum += outs[i] * float32(f.outputGain)
	}
	return input*float32(f.dryLevel) + sum*float32(f.wetLevel)
}

func (f *feedbackDelayNetwork) reset() {
	for i := 0; i < 4; i++ {
		f.lines[i].reset()
		f.damping[i].reset()
	}
}

// ReverbAlgorithm selects which reverb engine Reverb runs.
type ReverbAlgorithm int

const (
	ReverbFreeverb ReverbAlgorithm = iota
	ReverbFDN
	ReverbSchroeder
)

// Reverb runs one of three reverb engines behind a single node type:
// Freeverb's comb/allpass network, a Hadamard-matrix feedback delay network,
// or the classic Schroeder topology.
type Reverb struct {
	Input                     graph.NodeID
	Algorithm                 ReverbAlgorithm
	RoomSize, Damping, WetMix float64

	freeverb  *freeverbReverb
	fdn       *feedbackDelayNetwork
	schroeder *schroederReverb
}

func (n *Reverb) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }

func (n *Reverb) Reset() {
	if n.freeverb != nil {
		n.freeverb.reset()
	}
	if n.fdn != nil {
		n.fdn.reset()
	}
	if n.schroeder != nil {
		n.schroeder.reset()
	}
}

func (n *Reverb) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	src := in[0]
	switch n.Algorithm {
	case ReverbFDN:
		if n.fdn == nil {
			n.fdn = newFDN(ctx.SampleRate)
			n.fdn.setDecay(n.RoomSize)
			n.fdn.setDamping(n.Damping)
			n.fdn.setWetDry(n.WetMix, 1-n.WetMix)
		}
		for i := range out {
			out[i] = n.fdn.process(src[i])
		}
	case ReverbSchroeder:
		if n.schroeder == nil {
			n.schroeder = newSchroederReverb(ctx.SampleRate)
			n.schroeder.setRoomSize(n.RoomSize)
			n.schroeder.setDamping(n.Damping)
			n.schroeder.setWetDry(n.WetMix, 1-n.WetMix)
		}
		for i := range out {
			out[i] = n.schroeder.process(src[i])
		}
	default:
		if n.freeverb == nil {
			n.freeverb = newFreeverb(ctx.SampleRate)
			n.freeverb.setRoomSize(n.RoomSize)
			n.freeverb.setDamping(n.Damping)
			n.freeverb.setWetDry(n.WetMix, 1-n.WetMix)
		}
		for i := range out {
			out[i] = n.freeverb.process(src[i])
		}
	}
}

// modWaveform selects an lfoGen's shape.
type modWaveform int

const (
	modSine modWaveform = iota
	modTriangle
	modSquare
	modSawtooth
)

// lfoGen is the shared low-frequency oscillator driving every Modulation
// effect: a [0,2π) phase accumulator read through one of four shapes.
type lfoGen struct {
	sampleRate float64
	freq       float64
	phase      float64
	waveform   modWaveform
}

func newLFOGen(sampleRate, freq float64, wave modWaveform) *lfoGen {
	return &lfoGen{sampleRate: sampleRate, freq: freq, waveform: wave}
}

func (l *lfoGen) setFrequency(freq float64) {
	if freq < 0.01 {
		freq = 0.01
	}
	if freq > 20 {
		freq = 20
	}
	l.freq = freq
}

func (l *lfoGen) setPhase(phase float64) { l.phase = phase }

func (l *lfoGen) value() float64 {
	var v float64
	switch l.waveform {
	case modTriangle:
		v = 2.0*math.Abs(2.0*(l.phase/(2*math.Pi)-math.Floor(l.phase/(2*math.Pi)+0.5))) - 1.0
	case modSquare:
		if math.Sin(l.phase) >= 0 {
			v = 1.0
		} else {
			v = -1.0
		}
	case modSawtooth:
		v = 2.0*(l.phase/(2*math.Pi)-math.Floor(l.phase/(2*math.Pi)+0.5))
	default:
		v = math.Sin(l.phase)
	}
	return v
}

func (l *lfoGen) advance() {
	l.phase += 2 * math.Pi * l.freq / l.sampleRate
	if l.phase >= 2*math.Pi {
		l.phase -= 2 * math.Pi
	}
}

func (l *lfoGen) next() float64 {
	v := l.value()
	l.advance()
	return v
}

func (l *lfoGen) reset() { l.phase = 0 }

// chorusEffect is a multi-voice LFO-modulated delay, mono-summed across
// voices since the Modulation node is single-channel.
type chorusEffect struct {
	lines     []*ringDelay
	lfos      []*lfoGen
	baseMs    float64
	depthMs   float64
	feedback  float64
	mix       float64
	lastWet   []float32
}

func newChorus(sampleRate float64) *chorusEffect {
	const voices = 2
	c := &chorusEffect{baseMs: 20.0, depthMs: 2.0, feedback: 0, mix: 0.5}
	c.lines = make([]*ringDelay, voices)
	c.lfos = make([]*lfoGen, voices)
	c.lastWet = make([]float32, voices)
	for i := 0; i < voices; i++ {
		c.lines[i] = newRingDelay((c.baseMs+c.depthMs)*0.0012+0.005, sampleRate)
		c.lfos[i] = newLFOGen(sampleRate, 0.5, modSine)
		c.lfos[i].setPhase(2 * math.Pi * float64(i) / float64(voices))
	}
	return c
}

func (c *chorusEffect) setRate(hz float64) {
	for _, l := range c.lfos {
		l.setFrequency(hz)
	}
}
func (c *chorusEffect) setDepthMs(ms float64) { c.depthMs = ms }
func (c *chorusEffect) setMix(m float64)      { c.mix = clamp01(m) }

func (c *chorusEffect) process(input float32) float32 {
	var wet float32
	for i, line := range c.lines {
		mod := c.lfos[i].next()
		delayMs := c.baseMs + c.depthMs*mod
		out := line.readSamples(line.msToSamples(delayMs))
		line.write(input + c.lastWet[i]*float32(c.feedback))
		c.lastWet[i] = out
		wet += out
	}
	wet /= float32(len(c.lines))
	return dryWet(input, wet, float32(c.mix))
}

func (c *chorusEffect) reset() {
	for i, line := range c.lines {
		line.reset()
		c.lfos[i].reset()
		c.lastWet[i] = 0
	}
}

// flangerEffect is a single delay line swept by a triangle LFO with
// feedback, producing the characteristic comb-filter sweep.
type flangerEffect struct {
	line       *ringDelay
	lfo        *lfoGen
	centerMs   float64
	depthMs    float64
	feedback   float64
	mix        float64
	lastOutput float32
}

func newFlanger(sampleRate float64) *flangerEffect {
	f := &flangerEffect{centerMs: 5.0, depthMs: 2.0, feedback: 0.5, mix: 0.5}
	f.line = newRingDelay((f.centerMs+f.depthMs)*0.0012+0.005, sampleRate)
	f.lfo = newLFOGen(sampleRate, 0.5, modTriangle)
	return f
}

func (f *flangerEffect) setRate(hz float64)    { f.lfo.setFrequency(hz) }
func (f *flangerEffect) setDepthMs(ms float64) { f.depthMs = ms }
func (f *flangerEffect) setMix(m float64)      { f.mix = clamp01(m) }

func (f *flangerEffect) process(input float32) float32 {
	fed := input + f.lastOutput*float32(f.feedback)
	if fed > 1 {
		fed = 1
	} else if fed < -1 {
		fed = -1
	}
	mod := f.lfo.next()
	delayMs := f.centerMs + f.depthMs*mod
	out := f.line.readSamples(f.line.msToSamples(delayMs))
	f.line.write(fed)
	f.lastOutput = out
	return dryWet(input, out, float32(f.mix))
}

func (f *flangerEffect) reset() {
	f.line.reset()
	f.lfo.reset()
	f.lastOutput = 0
}

// allpassStage is a first-order all-pass built via the bilinear transform,
// the unit cell a phaser cascades to sweep notches through the spectrum.
type allpassStage struct {
	a1    float64
	state float32
}

func (a *allpassStage) setFrequency(freq, sampleRate float64) {
	t := math.Tan(math.Pi * freq / sampleRate)
	a.a1 = (1 - t) / (1 + t)
}

func (a *allpassStage) process(input float32) float32 {
	out := float32(a.a1)*input + a.state
	a.state = input - float32(a.a1)*out
	return out
}

func (a *allpassStage) reset() { a.state = 0 }

// phaserEffect cascades allpassStages swept together by a log-interpolated
// sine LFO between a min and max frequency derived from center +/- depth.
type phaserEffect struct {
	stages         [4]*allpassStage
	lfo            *lfoGen
	minFreq        float64
	maxFreq        float64
	feedback       float64
	mix            float64
	lastOutput     float32
	sampleRate     float64
}

func newPhaser(sampleRate float64) *phaserEffect {
	p := &phaserEffect{minFreq: 500, maxFreq: 1500, feedback: 0.5, mix: 0.5, sampleRate: sampleRate}
	p.lfo = newLFOGen(sampleRate, 0.5, modSine)
	for i := range p.stages {
		p.stages[i] = &allpassStage{}
	}
	return p
}

func (p *phaserEffect) setRate(hz float64) { p.lfo.setFrequency(hz) }
func (p *phaserEffect) setDepth(depth float64) {
	center := (p.minFreq + p.maxFreq) / 2
	span := 500 + depth*1500
	p.minFreq = math.Max(50, center-span/2)
	p.maxFreq = center + span/2
}
func (p *phaserEffect) setMix(m float64) { p.mix = clamp01(m) }

func (p *phaserEffect) process(input float32) float32 {
	mod := (p.lfo.next() + 1) / 2
	logMin := math.Log(p.minFreq)
	logMax := math.Log(p.maxFreq)
	freq := math.Exp(logMin + (logMax-logMin)*mod)
	signal := input + p.lastOutput*float32(p.feedback)
	for _, s := range p.stages {
		s.setFrequency(freq, p.sampleRate)
		signal = s.process(signal)
	}
	p.lastOutput = signal
	return dryWet(input, signal, float32(p.mix))
}

func (p *phaserEffect) reset() {
	for _, s := range p.stages {
		s.reset()
	}
	p.lfo.reset()
	p.lastOutput = 0
}

// tremoloMode selects the gain-modulation shape of a tremoloEffect.
type tremoloMode int

const (
	tremoloNormal tremoloMode = iota
	tremoloHarmonic
)

// tremoloEffect amplitude-modulates its input with an LFO, smoothing only
// for the square waveform where the gain would otherwise step discontinuously.
type tremoloEffect struct {
	lfo          *lfoGen
	mode         tremoloMode
	depth        float64
	smoothCoef   float64
	smoothedGain float64
	smoothing    bool
}

func newTremolo(sampleRate float64) *tremoloEffect {
	t := &tremoloEffect{depth: 0.5, smoothedGain: 1.0}
	t.lfo = newLFOGen(sampleRate, 5.0, modSine)
	t.smoothCoef = math.Exp(-1.0 / (0.005 * sampleRate))
	return t
}

func (t *tremoloEffect) setRate(hz float64)  { t.lfo.setFrequency(hz) }
func (t *tremoloEffect) setDepth(d float64)  { t.depth = clamp01(d) }

func (t *tremoloEffect) process(input float32) float32 {
	t.smoothing = t.lfo.waveform == modSquare
	lfoValue := t.lfo.next()
	var gain float64
	if t.mode == tremoloHarmonic {
		gain = 1.0 - t.depth*math.Abs(lfoValue)
	} else {
		gain = 1.0 - t.depth*(1.0-lfoValue)/2.0
	}
	if t.smoothing {
		t.smoothedGain = gain + (t.smoothedGain-gain)*t.smoothCoef
		gain = t.smoothedGain
	} else {
		t.smoothedGain = gain
	}
	return input * float32(gain)
}

func (t *tremoloEffect) reset() {
	t.lfo.reset()
	t.smoothedGain = 1.0
}

// ringModEffect multiplies its input by a self-contained carrier oscillator,
// optionally sweeping the carrier frequency with an LFO.
type ringModEffect struct {
	phase      float64
	phaseInc   float64
	sampleRate float64
	frequency  float64
	mix        float64
	lfo        *lfoGen
	lfoEnabled bool
	lfoDepth   float64
}

func newRingMod(sampleRate float64) *ringModEffect {
	r := &ringModEffect{sampleRate: sampleRate, frequency: 440, mix: 0.5, lfoDepth: 0.5}
	r.phaseInc = 2 * math.Pi * r.frequency / sampleRate
	r.lfo = newLFOGen(sampleRate, 5.0, modSine)
	return r
}

func (r *ringModEffect) setFrequency(hz float64) {
	r.frequency = hz
	r.phaseInc = 2 * math.Pi * hz / r.sampleRate
}
func (r *ringModEffect) setMix(m float64) { r.mix = clamp01(m) }

func (r *ringModEffect) process(input float32) float32 {
	inc := r.phaseInc
	if r.lfoEnabled {
		mod := r.lfo.next()
		modFreq := r.frequency * (1 + mod*r.lfoDepth)
		inc = 2 * math.Pi * modFreq / r.sampleRate
	}
	carrier := float32(math.Sin(r.phase))
	r.phase += inc
	if r.phase >= 2*math.Pi {
		r.phase -= 2 * math.Pi
	}
	wet := input * carrier
	return dryWet(input, wet, float32(r.mix))
}

func (r *ringModEffect) reset() {
	r.phase = 0
	r.lfo.reset()
}

// ModEffect selects which time-varying effect Modulation runs.
type ModEffect int

const (
	ModChorus ModEffect = iota
	ModFlanger
	ModPhaser
	ModTremolo
	ModRingMod
)

// Modulation runs one of five LFO-driven time-varying effects behind a
// single node type.
type Modulation struct {
	Input    graph.NodeID
	Effect   ModEffect
	RateHz   float64
	Depth    float64
	MixLevel float64

	chorus  *chorusEffect
	flanger *flangerEffect
	phaser  *phaserEffect
	trem    *tremoloEffect
	ring    *ringModEffect
}

func (n *Modulation) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }
func (n *Modulation) Reset() {
	switch {
	case n.chorus != nil:
		n.chorus.reset()
	case n.flanger != nil:
		n.flanger.reset()
	case n.phaser != nil:
		n.phaser.reset()
	case n.trem != nil:
		n.trem.reset()
	case n.ring != nil:
		n.ring.reset()
	}
}

func (n *Modulation) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	src := in[0]
	switch n.Effect {
	case ModFlanger:
		if n.flanger == nil {
			n.flanger = newFlanger(ctx.SampleRate)
			n.flanger.setRate(n.RateHz)
			n.flanger.setDepthMs(n.Depth * 10.0)
			n.flanger.setMix(n.MixLevel)
		}
		for i := range out {
			out[i] = n.flanger.process(src[i])
		}
	case ModPhaser:
		if n.phaser == nil {
			n.phaser = newPhaser(ctx.SampleRate)
			n.phaser.setRate(n.RateHz)
			n.phaser.setDepth(n.Depth)
			n.phaser.setMix(n.MixLevel)
		}
		for i := range out {
			out[i] = n.phaser.process(src[i])
		}
	case ModTremolo:
		if n.trem == nil {
			n.trem = newTremolo(ctx.SampleRate)
			n.trem.setRate(n.RateHz)
			n.trem.setDepth(n.Depth)
		}
		for i := range out {
			out[i] = n.trem.process(src[i])
		}
	case ModRingMod:
		if n.ring == nil {
			n.ring = newRingMod(ctx.SampleRate)
			n.ring.setFrequency(n.RateHz)
			n.ring.setMix(n.MixLevel)
		}
		for i := range out {
			out[i] = n.ring.process(src[i])
		}
	default:
		if n.chorus == nil {
			n.chorus = newChorus(ctx.SampleRate)
			n.chorus.setRate(n.RateHz)
			n.chorus.setDepthMs(n.Depth * 10.0)
			n.chorus.setMix(n.MixLevel)
		}
		for i := range out {
			out[i] = n.chorus.process(src[i])
		}
	}
}

// Mix sums N input signals, normalizing by 1/N by default (a generic mixer
// summing potentially-correlated signals, as opposed to the voice pool's
// 1/sqrt(n) constant-power normalization for uncorrelated voices). Gains
// replaces the uniform 1/N weights only when it holds exactly one weight per
// source; a Gains slice of any other length is ignored.
type Mix struct {
	Sources []graph.NodeID
	Gains   []float32

	uniform []float32
}

func (n *Mix) Inputs() []graph.NodeID { return n.Sources }
func (n *Mix) Reset()                 {}

func (n *Mix) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if len(n.Gains) == len(in) {
		sumWeighted(in, n.Gains, out)
		return
	}
	if len(in) == 0 {
		return
	}
	if len(n.uniform) != len(in) {
		n.uniform = make([]float32, len(in))
		invN := 1.0 / float32(len(in))
		for i := range n.uniform {
			n.uniform[i] = invN
		}
	}
	sumWeighted(in, n.uniform, out)
}
