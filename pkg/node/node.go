// Package node implements every signal-processing unit that can sit in a
// graph.Graph and be wired by pkg/graphbuilder: oscillators, filters,
// envelopes, dynamics, delay/modulation/reverb effects, waveshaping, and
// control-flow primitives, each satisfying the graph.Node contract with
// its own node-local DSP state.
//
// Control-rate inputs (thresholds, delay time, feedback, filter cutoff and
// Q, drive, and similar slowly-varying parameters) are read once per block,
// from the first sample of the upstream buffer, rather than per-sample.
// Inputs that shape the signal sample by sample (oscillator frequency,
// Fold/Wrap bounds, the Lerp mix, the Pan position, the Quantizer step) are
// read per sample. Control signals
// in this engine are expected to change at pattern/cycle granularity, far
// coarser than the block size, so this keeps every node here allocation-
// free without adding per-sample branching to purely audio-rate paths.
package node

// controlValue reads the control-rate value of a buffer: its first sample,
// or 0 if the buffer is empty.
func controlValue(buf []float32) float32 {
	if len(buf) == 0 {
		return 0
	}
	return buf[0]
}
