package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// Pitch constants for PitchDetector's autocorrelation method.
const (
	pitchMinFreq           = 40.0   // below low E on a bass guitar
	pitchMaxFreq           = 4000.0 // above typical musical range
	pitchSilenceThreshold  = 0.001  // RMS floor below which output is 0 Hz
	pitchSmoothing         = 0.9    // exponential smoothing toward the new estimate
	pitchAutocorrThreshold = 0.3    // minimum normalized autocorrelation peak to accept
)

// PitchDetector estimates the fundamental frequency of Input via
// autocorrelation over the current block, outputting the detected
// frequency in Hz (0 during silence or when no clear periodicity is
// found). Latency is one block, since detection needs the full buffer.
type PitchDetector struct {
	Input graph.NodeID

	lastPitch float32
}

func (n *PitchDetector) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }
func (n *PitchDetector) Reset()                 { n.lastPitch = 0 }

func (n *PitchDetector) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	buf := in[0]
	pitch := n.detectPitch(buf, ctx.SampleRate)
	for i := range out {
		out[i] = pitch
	}
}

func (n *PitchDetector) detectPitch(buf []float32, sampleRate float64) float32 {
	blockSize := len(buf)
	if blockSize == 0 {
		return 0
	}

	rms := rmsOf(buf)
	if rms < pitchSilenceThreshold {
		n.lastPitch = 0
		return 0
	}

	minLag := int(math.Ceil(sampleRate / pitchMaxFreq))
	maxLag := int(math.Floor(sampleRate / pitchMinFreq))
	if maxLag > blockSize/2 {
		maxLag = blockSize / 2
	}
	if minLag >= maxLag {
		return 0
	}

	r0 := autocorrelate(buf, 0, blockSize)
	if r0 < 1e-10 {
		return 0
	}

	maxCorr := float32(0)
	bestLag := 0
	// Skip the falling slope of the lag-0 peak: only lags after the
	// correlation starts rising again are candidates.
	prevCorr := float32(math.Inf(1))
	pastLobe := false
	for lag := minLag; lag < maxLag; lag++ {
		corr := autocorrelate(buf, lag, blockSize-lag) / r0
		if !pastLobe {
			pastLobe = corr > prevCorr
			prevCorr = corr
			if !pastLobe {
				continue
			}
		}
		if corr > maxCorr {
			maxCorr = corr
			bestLag = lag
		}
	}

	if maxCorr < pitchAutocorrThreshold {
		n.lastPitch *= pitchSmoothing
		return n.lastPitch
	}

	detected := float32(sampleRate) / float32(bestLag)
	var smoothed float32
	if n.lastPitch > 0 {
		smoothed = n.lastPitch*pitchSmoothing + detected*(1-pitchSmoothing)
	} else {
		smoothed = detected
	}
	n.lastPitch = smoothed
	return smoothed
}

func rmsOf(buf []float32) float32 {
	var sum float32
	for _, v := range buf {
		sum += v * v
	}
	return float32(math.Sqrt(float64(sum / float32(len(buf)))))
}

func autocorrelate(buf []float32, lag, length int) float32 {
	var sum float32
	n := len(buf)
	for i := 0; i < length; i++ {
		sum += buf[i] * buf[(i+lag)%n]
	}
	return sum
}
