package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/pattern"
	"github.com/justyntemme/synthgo/pkg/rational"
)

// lerpSample linearly interpolates between two adjacent PCM samples at
// fractional position frac in [0,1).
func lerpSample(y0, y1, frac float32) float32 {
	return y0 + (y1-y0)*frac
}

// constantPowerGain returns the sine/cosine equal-power pan gains for a
// mono-to-stereo position in [-1,1], averaged here since voices mix down
// to a single output channel.
func constantPowerGain(pos float32) float32 {
	angle := (float64(pos) + 1.0) * math.Pi / 4.0
	left := math.Cos(angle)
	right := math.Sin(angle)
	return float32((left + right) * 0.5)
}

// sampleVoice is one active playback reader triggered by a pattern onset.
type sampleVoice struct {
	pcm     []float32
	pos     float64
	speed   float64
	gainLin float32
	panPos  float32
	begin   int
	end     int
	loop    bool
	active  bool
}

// SamplePlayback holds a map from pattern tokens to decoded PCM buffers and
// triggers a new playback voice each time its Pattern emits an onset,
// mixing all active voices with linear resampling for fractional speed.
type SamplePlayback struct {
	Pattern   pattern.Pattern
	Samples   map[string][]float32
	MaxVoices int

	voices []sampleVoice
	last   rational.Cycle
}

func (n *SamplePlayback) Inputs() []graph.NodeID { return nil }

func (n *SamplePlayback) Reset() {
	n.voices = nil
}

func (n *SamplePlayback) ensureInit() {
	if n.voices == nil {
		max := n.MaxVoices
		if max <= 0 {
			max = 16
		}
		n.voices = make([]sampleVoice, max)
	}
}

// ProcessBlock queries the pattern over the block's cycle span, allocates a
// voice for each onset whose token resolves to a known sample, then mixes
// all active voice readers sample by sample.
func (n *SamplePlayback) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	n.ensureInit()
	if ctx.TempoCPS > 0 && len(out) > 0 {
		cyclesPerSample := ctx.TempoCPS / ctx.SampleRate
		begin := rational.FromFloat(ctx.CyclePos).Add(rational.FromInt(ctx.CycleIndex))
		end := begin.Add(rational.FromFloat(cyclesPerSample * float64(len(out))))
		events := n.Pattern.Query(rational.NewSpan(begin, end))

		for _, ev := range events {
			if ev.Whole == nil || ev.Part.Begin.Cmp(ev.Whole.Begin) != 0 {
				continue
			}
			token, ok := ev.Value.(string)
			if !ok {
				continue
			}
			pcm, ok := n.Samples[token]
			if !ok || len(pcm) == 0 {
				continue
			}
			offsetCycles := ev.Part.Begin.Sub(begin).Float64()
			offsetSamples := int(offsetCycles / cyclesPerSample)
			n.triggerVoice(pcm, offsetSamples)
		}
	}

	for i := range out {
		out[i] = 0
	}
	for vi := range n.voices {
		v := &n.voices[vi]
		if !v.active {
			continue
		}
		n.renderVoice(v, out)
	}
}

func (n *SamplePlayback) triggerVoice(pcm []float32, startSample int) {
	if startSample < 0 {
		startSample = 0
	}
	for i := range n.voices {
		if !n.voices[i].active {
			n.voices[i] = sampleVoice{
				pcm:     pcm,
				pos:     -float64(startSample),
				speed:   1.0,
				gainLin: 1.0,
				panPos:  0.0,
				begin:   0,
				end:     len(pcm),
				active:  true,
			}
			return
		}
	}
}

func (n *SamplePlayback) renderVoice(v *sampleVoice, out []float32) {
	gainFactor := constantPowerGain(v.panPos) * v.gainLin
	for i := range out {
		if v.pos < 0 {
			v.pos += v.speed
			continue
		}
		idx := int(v.pos)
		if idx >= v.end {
			if v.loop {
				v.pos = float64(v.begin)
				idx = v.begin
			} else {
				v.active = false
				return
			}
		}
		frac := float32(v.pos - float64(idx))
		var y0, y1 float32
		if idx < len(v.pcm) {
			y0 = v.pcm[idx]
		}
		if idx+1 < len(v.pcm) {
			y1 = v.pcm[idx+1]
		}
		sample := lerpSample(y0, y1, frac)
		out[i] += sample * gainFactor
		v.pos += v.speed
	}
}
