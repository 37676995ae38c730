package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// radix2FFT is a fixed-size, Hann-windowed, in-place radix-2 Cooley-Tukey
// transform used to capture and resynthesize a spectral freeze grain. Size
// must be a power of two.
type radix2FFT struct {
	size   int
	window []float64
	re, im []float64
}

func newRadix2FFT(size int) *radix2FFT {
	f := &radix2FFT{size: size, window: make([]float64, size), re: make([]float64, size), im: make([]float64, size)}
	n := float64(size)
	for i := 0; i < size; i++ {
		f.window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/(n-1.0)))
	}
	return f
}

// forward windows and transforms input, returning the magnitude/phase of
// the non-negative-frequency bins (size/2+1 of them).
func (f *radix2FFT) forward(input []float64) (magnitude, phase []float64) {
	for i := 0; i < f.size; i++ {
		f.re[i] = input[i] * f.window[i]
		f.im[i] = 0
	}
	f.transform(f.re, f.im)
	bins := f.size/2 + 1
	magnitude = make([]float64, bins)
	phase = make([]float64, bins)
	for i := 0; i < bins; i++ {
		magnitude[i] = math.Hypot(f.re[i], f.im[i])
		phase[i] = math.Atan2(f.im[i], f.re[i])
	}
	return magnitude, phase
}

// inverse transforms a full-size conjugate-symmetric spectrum back to a
// real-valued time-domain signal.
func (f *radix2FFT) inverse(real, imag []float64) []float64 {
	re := make([]float64, f.size)
	im := make([]float64, f.size)
	copy(re, real)
	copy(im, imag)
	for i := range im {
		im[i] = -im[i]
	}
	f.transform(re, im)
	out := make([]float64, f.size)
	scale := 1.0 / float64(f.size)
	for i := range out {
		out[i] = re[i] * scale
	}
	return out
}

// transform runs the in-place Cooley-Tukey butterfly with bit-reversal
// reordering.
func (f *radix2FFT) transform(re, im []float64) {
	n := f.size
	j := 0
	for i := 0; i < n; i++ {
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
		m := n >> 1
		for m >= 1 && j >= m {
			j -= m
			m >>= 1
		}
		j += m
	}
	for stage := 2; stage <= n; stage <<= 1 {
		theta := -2.0 * math.Pi / float64(stage)
		wReal, wImag := math.Cos(theta), math.Sin(theta)
		for k := 0; k < n; k += stage {
			curReal, curImag := 1.0, 0.0
			for j := 0; j < stage/2; j++ {
				i1 := k + j
				i2 := i1 + stage/2
				tReal := curReal*re[i2] - curImag*im[i2]
				tImag := curReal*im[i2] + curImag*re[i2]
				re[i2] = re[i1] - tReal
				im[i2] = im[i1] - tImag
				re[i1] += tReal
				im[i1] += tImag
				oldReal := curReal
				curReal = oldReal*wReal - curImag*wImag
				curImag = oldReal*wImag + curImag*wReal
			}
		}
	}
}

// SpectralFreeze captures the magnitude/phase spectrum of Input on a rising
// trigger edge and resynthesizes it indefinitely via repeated inverse FFT
// of the frozen frame, looping the captured grain rather than tracking
// phase advance across hops — a simplification of true phase-vocoder
// freeze, adequate for a held-drone effect. Bypasses to Input while the
// trigger is below 0.5.
type SpectralFreeze struct {
	Input, Trigger graph.NodeID
	FFTSize        int

	fft         *radix2FFT
	history     []float64
	resynth     []float64
	resynthPos  int
	frozen      bool
	triggerHigh bool
}

func (n *SpectralFreeze) Inputs() []graph.NodeID {
	return []graph.NodeID{n.Input, n.Trigger}
}

func (n *SpectralFreeze) Reset() {
	n.frozen = false
	n.triggerHigh = false
	n.resynthPos = 0
	for i := range n.history {
		n.history[i] = 0
	}
}

func (n *SpectralFreeze) ensureInit() {
	if n.fft != nil {
		return
	}
	size := n.FFTSize
	if size <= 0 {
		size = 1024
	}
	n.fft = newRadix2FFT(size)
	n.history = make([]float64, size)
}

func (n *SpectralFreeze) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	n.ensureInit()
	src, trig := in[0], in[1]
	size := len(n.history)

	for i := range out {
		high := trig[i] > 0.5
		if high && !n.triggerHigh {
			n.captureSpectrum()
			n.frozen = true
			n.resynthPos = 0
		} else if !high && n.triggerHigh {
			n.frozen = false
		}
		n.triggerHigh = high

		copy(n.history, n.history[1:])
		n.history[size-1] = float64(src[i])

		if n.frozen && len(n.resynth) > 0 {
			out[i] = float32(n.resynth[n.resynthPos])
			n.resynthPos++
			if n.resynthPos >= len(n.resynth) {
				n.resynthPos = 0
			}
		} else {
			out[i] = src[i]
		}
	}
}

// captureSpectrum takes the windowed magnitude/phase of the current history
// buffer and rebuilds a full conjugate-symmetric spectrum so inverse
// reconstructs a real-valued time signal.
func (n *SpectralFreeze) captureSpectrum() {
	magnitude, phase := n.fft.forward(n.history)
	size := len(n.history)
	real := make([]float64, size)
	imag := make([]float64, size)
	for i := 0; i < len(magnitude); i++ {
		real[i] = magnitude[i] * math.Cos(phase[i])
		imag[i] = magnitude[i] * math.Sin(phase[i])
		if i > 0 && i < size-i {
			real[size-i] = real[i]
			imag[size-i] = -imag[i]
		}
	}
	n.resynth = n.fft.inverse(real, imag)
}
