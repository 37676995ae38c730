// Package voice implements the polyphonic MIDI voice allocator: a
// fixed-capacity pool of oscillator+ADSR voices with a steal policy, MIDI
// frequency mapping, and optional scale quantization.
//
// Narrowed to the single poly mode this engine needs, with voices owning
// their oscillator phase and ADSR state directly — the pool is itself one
// graph.Node, so there is no separate Voice interface indirection.
package voice

import (
	"math"
	"sort"

	"github.com/justyntemme/synthgo/pkg/midi"
)

// Waveform selects the oscillator shape each voice renders.
type Waveform int

const (
	WaveformSine Waveform = iota
	WaveformSaw
	WaveformSquare
	WaveformTriangle
)

// voiceOsc is a phase-accumulator oscillator owned by a single voice: it
// advances a [0,1) position by frequency/sampleRate each sample and reads
// the requested waveform off that position.
type voiceOsc struct {
	sampleRate float64
	phase      float64
	phaseInc   float64
}

func newVoiceOsc(sampleRate float64) *voiceOsc {
	return &voiceOsc{sampleRate: sampleRate}
}

func (o *voiceOsc) setFrequency(freq float64) { o.phaseInc = freq / o.sampleRate }
func (o *voiceOsc) setPhase(phase float64)     { o.phase = phase - math.Floor(phase) }
func (o *voiceOsc) reset()                     { o.phase = 0 }

func (o *voiceOsc) advance() {
	o.phase += o.phaseInc
	if o.phase >= 1.0 {
		o.phase -= math.Floor(o.phase)
	}
}

func (o *voiceOsc) sine() float32 {
	s := float32(math.Sin(2 * math.Pi * o.phase))
	o.advance()
	return s
}

func (o *voiceOsc) saw() float32 {
	s := float32(2*o.phase - 1)
	o.advance()
	return s
}

func (o *voiceOsc) square() float32 {
	s := float32(-1.0)
	if o.phase < 0.5 {
		s = 1.0
	}
	o.advance()
	return s
}

func (o *voiceOsc) triangle() float32 {
	var s float32
	if o.phase < 0.5 {
		s = float32(4*o.phase - 1)
	} else {
		s = float32(3 - 4*o.phase)
	}
	o.advance()
	return s
}

// voiceStage names where a voiceEnv sits in its ADSR cycle.
type voiceStage int

const (
	stageIdle voiceStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// voiceEnv is the per-voice ADSR generator: attack/decay/release each chase
// a target with a one-pole coefficient exp(-1/(time*rate)).
type voiceEnv struct {
	sampleRate                         float64
	attack, decay, sustain, release    float64
	attackCoef, decayCoef, releaseCoef float64
	stage                              voiceStage
	value, target                      float64
}

func newVoiceEnv(sampleRate float64) *voiceEnv {
	e := &voiceEnv{sampleRate: sampleRate, attack: 0.01, decay: 0.1, sustain: 0.7, release: 0.3}
	e.recalc()
	return e
}

func (e *voiceEnv) setADSR(attack, decay, sustain, release float64) {
	e.attack = math.Max(0.001, attack)
	e.decay = math.Max(0.001, decay)
	e.sustain = math.Max(0, math.Min(1, sustain))
	e.release = math.Max(0.001, release)
	e.recalc()
}

func (e *voiceEnv) recalc() {
	e.attackCoef = voiceExpCoef(e.attack, e.sampleRate)
	e.decayCoef = voiceExpCoef(e.decay, e.sampleRate)
	e.releaseCoef = voiceExpCoef(e.release, e.sampleRate)
}

func voiceExpCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

func (e *voiceEnv) trigger() {
	e.stage = stageAttack
	e.target = 1.0
}

func (e *voiceEnv) voiceRelease() {
	if e.stage != stageIdle {
		e.stage = stageRelease
		e.target = 0.0
	}
}

func (e *voiceEnv) reset() {
	e.stage = stageIdle
	e.value, e.target = 0, 0
}

func (e *voiceEnv) next() float32 {
	switch e.stage {
	case stageAttack:
		e.value = e.target + (e.value-e.target)*e.attackCoef
		if e.value >= 0.999 {
			e.value = 1.0
			e.stage = stageDecay
			e.target = e.sustain
		}
	case stageDecay:
		e.value = e.target + (e.value-e.target)*e.decayCoef
		if e.value <= e.sustain+0.001 {
			e.value = e.sustain
			e.stage = stageSustain
		}
	case stageSustain:
		e.value = e.sustain
	case stageRelease:
		e.value = e.target + (e.value-e.target)*e.releaseCoef
		if e.value <= 0.001 {
			e.value = 0
			e.stage = stageIdle
		}
	case stageIdle:
		e.value = 0
	}
	return float32(e.value)
}

// Voice is one polyphonic note slot: its own oscillator, envelope, and
// allocation bookkeeping (note, velocity, age for the steal policy).
type Voice struct {
	osc      *voiceOsc
	env      *voiceEnv
	note     uint8
	velocity float32
	freq     float32
	age      uint64
	active   bool
}

func (v *Voice) isReleasing() bool {
	return v.active && v.env.stage == stageRelease
}

// Pool is a fixed-capacity voice allocator with a fixed steal order:
// first inactive, else oldest releasing, else oldest active.
type Pool struct {
	voices     []*Voice
	noteToIdx  map[uint8]int
	tick       uint64
	sampleRate float64
	wave       Waveform
	attack     float64
	decay      float64
	sustain    float64
	release    float64

	scaleRoot      int
	scaleIntervals []int
	scaleLocked    bool
}

// NewPool allocates a fixed-capacity pool of voices, each with its own
// oscillator and envelope using the given ADSR timings.
func NewPool(capacity int, sampleRate float64, wave Waveform, attack, decay, sustain, release float64) *Pool {
	voices := make([]*Voice, capacity)
	for i := range voices {
		osc := newVoiceOsc(sampleRate)
		env := newVoiceEnv(sampleRate)
		env.setADSR(attack, decay, sustain, release)
		voices[i] = &Voice{osc: osc, env: env}
	}
	return &Pool{
		voices:     voices,
		noteToIdx:  make(map[uint8]int, capacity),
		sampleRate: sampleRate,
		wave:       wave,
		attack:     attack,
		decay:      decay,
		sustain:    sustain,
		release:    release,
	}
}

// Capacity returns the pool's fixed voice count.
func (p *Pool) Capacity() int { return len(p.voices) }

// SetScaleLock enables quantization of incoming note-ons to the nearest
// pitch-class in the given scale (root-relative, octave-preserving).
func (p *Pool) SetScaleLock(rootNote int, intervals []int) {
	p.scaleRoot = rootNote
	p.scaleIntervals = intervals
	p.scaleLocked = len(intervals) > 0
}

// ClearScaleLock disables quantization.
func (p *Pool) ClearScaleLock() {
	p.scaleLocked = false
}

// quantizeNote snaps note to the nearest pitch-class of the locked scale,
// preserving octave.
func (p *Pool) quantizeNote(note uint8) uint8 {
	if !p.scaleLocked {
		return note
	}
	pitchClass := (int(note) - p.scaleRoot) % 12
	if pitchClass < 0 {
		pitchClass += 12
	}
	best := p.scaleIntervals[0]
	bestDist := intAbs(pitchClass - best)
	for _, iv := range p.scaleIntervals[1:] {
		d := intAbs(pitchClass - iv)
		if d < bestDist {
			best = iv
			bestDist = d
		}
	}
	delta := best - pitchClass
	result := int(note) + delta
	if result < 0 {
		result = 0
	}
	if result > 127 {
		result = 127
	}
	return uint8(result)
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// noteToFreq implements the standard equal-temperament mapping:
// 440 * 2^((note-69)/12).
func noteToFreq(note uint8) float32 {
	return float32(440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0))
}

// NoteOn allocates a voice for the event, quantizing to the locked scale
// if set, and overwrites any previous allocation for the same raw note.
func (p *Pool) NoteOn(ev midi.NoteOnEvent) {
	note := p.quantizeNote(ev.NoteNumber)
	idx := p.allocate()
	if idx < 0 {
		return
	}
	v := p.voices[idx]
	v.note = ev.NoteNumber
	v.velocity = float32(ev.Velocity) / 127.0
	v.freq = noteToFreq(note)
	v.osc.setPhase(0)
	v.osc.setFrequency(float64(v.freq))
	v.env.trigger()
	v.active = true
	v.age = p.tick
	p.tick++
	p.noteToIdx[ev.NoteNumber] = idx
}

// NoteOff releases the most recently allocated voice for the event's note.
func (p *Pool) NoteOff(ev midi.NoteOffEvent) {
	idx, ok := p.noteToIdx[ev.NoteNumber]
	if !ok {
		return
	}
	p.voices[idx].env.voiceRelease()
	delete(p.noteToIdx, ev.NoteNumber)
}

// allocate picks a voice slot by a fixed steal order: first inactive,
// else oldest releasing, else oldest active.
func (p *Pool) allocate() int {
	for i, v := range p.voices {
		if !v.active {
			return i
		}
	}
	releasing := p.oldestMatching(func(v *Voice) bool { return v.isReleasing() })
	if releasing >= 0 {
		return releasing
	}
	return p.oldestMatching(func(v *Voice) bool { return v.active })
}

func (p *Pool) oldestMatching(pred func(*Voice) bool) int {
	best := -1
	var bestAge uint64
	for i, v := range p.voices {
		if !pred(v) {
			continue
		}
		if best < 0 || v.age < bestAge {
			best = i
			bestAge = v.age
		}
	}
	return best
}

// ActiveVoices returns the notes of the non-idle voices, sorted
// oldest-first, for diagnostics.
func (p *Pool) ActiveVoices() []uint8 {
	type entry struct {
		note uint8
		age  uint64
	}
	var active []entry
	for _, v := range p.voices {
		if v.active {
			active = append(active, entry{v.note, v.age})
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].age < active[j].age })
	notes := make([]uint8, len(active))
	for i, e := range active {
		notes[i] = e.note
	}
	return notes
}

// Render advances every active voice by len(out) samples, mixing
// oscillator output scaled by envelope level and velocity, then applies
// constant-power normalization by 1/sqrt(capacity).
func (p *Pool) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}
	norm := float32(1.0 / math.Sqrt(float64(len(p.voices))))
	for _, v := range p.voices {
		if !v.active {
			continue
		}
		for i := range out {
			level := v.env.next()
			sample := waveSample(v.osc, p.wave)
			out[i] += sample * level * v.velocity
			if v.env.stage == stageIdle {
				v.active = false
				break
			}
		}
	}
	for i := range out {
		out[i] *= norm
	}
}

func waveSample(osc *voiceOsc, wave Waveform) float32 {
	switch wave {
	case WaveformSaw:
		return osc.saw()
	case WaveformSquare:
		return osc.square()
	case WaveformTriangle:
		return osc.triangle()
	default:
		return osc.sine()
	}
}

// Reset silences and deactivates every voice.
func (p *Pool) Reset() {
	for _, v := range p.voices {
		v.osc.reset()
		v.env.reset()
		v.active = false
	}
	p.noteToIdx = make(map[uint8]int, len(p.voices))
	p.tick = 0
}
