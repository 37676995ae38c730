package graphbuilder

import (
	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/node"
)

// compileCall dispatches a Call by function name to the matching pkg/node
// constructor. Most arguments are sub-expressions compiled to NodeIds;
// a handful of Calls take a leading StringLit identifier (waveform/shape
// name, pattern or sample token) resolved at build time instead of wired
// as a graph edge, since those select *which* node type or data table to
// use rather than a signal to read each block.
func (b *Builder) compileCall(c Call) (graph.NodeID, error) {
	args, err := b.compileArgs(c.Args)
	if err != nil {
		return 0, err
	}

	switch c.Func {
	case "sine", "saw", "square", "triangle":
		return b.add(&node.Oscillator{Freq: arg(args, 0), Wave: waveformFor(c.Func)}), nil
	case "pulse":
		return b.add(&node.Pulse{Freq: arg(args, 0), Width: arg(args, 1)}), nil
	case "noise":
		return b.add(&node.Noise{Amplitude: arg(args, 0), Color: node.NoiseColor(int(numberArg(c.Args, 1, 0)))}), nil

	case "add":
		return b.add(&node.Arithmetic{A: arg(args, 0), B: arg(args, 1), Op: node.OpAdd}), nil
	case "sub":
		return b.add(&node.Arithmetic{A: arg(args, 0), B: arg(args, 1), Op: node.OpSub}), nil
	case "mul":
		return b.add(&node.Arithmetic{A: arg(args, 0), B: arg(args, 1), Op: node.OpMul}), nil
	case "div":
		return b.add(&node.Arithmetic{A: arg(args, 0), B: arg(args, 1), Op: node.OpDiv}), nil
	case "mod":
		return b.add(&node.Modulo{A: arg(args, 0), B: arg(args, 1)}), nil
	case "pow":
		return b.add(&node.Pow{A: arg(args, 0), B: arg(args, 1)}), nil
	case "exp":
		return b.add(&node.Exp{Input: arg(args, 0)}), nil
	case "log":
		return b.add(&node.Log{Input: arg(args, 0)}), nil

	case "gt":
		return b.add(&node.Comparison{A: arg(args, 0), B: arg(args, 1), Op: node.OpGreaterThan}), nil
	case "gte":
		return b.add(&node.Comparison{A: arg(args, 0), B: arg(args, 1), Op: node.OpGreaterThanOrEqual}), nil
	case "eq":
		return b.add(&node.Comparison{A: arg(args, 0), B: arg(args, 1), Op: node.OpEqual}), nil
	case "not":
		return b.add(&node.Not{Input: arg(args, 0)}), nil

	case "clip":
		return b.add(&node.Clip{Input: arg(args, 0), Threshold: arg(args, 1), Mode: node.ClipHard}), nil
	case "softclip":
		return b.add(&node.Clip{Input: arg(args, 0), Threshold: arg(args, 1), Mode: node.ClipSoft}), nil
	case "fold":
		return b.add(&node.Fold{Input: arg(args, 0), Min: arg(args, 1), Max: arg(args, 2)}), nil
	case "wrap":
		return b.add(&node.Wrap{Input: arg(args, 0), Min: arg(args, 1), Max: arg(args, 2)}), nil
	case "quantize":
		return b.add(&node.Quantizer{Input: arg(args, 0), StepSize: arg(args, 1)}), nil
	case "lerp":
		return b.add(&node.Lerp{A: arg(args, 0), B: arg(args, 1), Mix: arg(args, 2)}), nil
	case "latch":
		return b.add(&node.Latch{Input: arg(args, 0), Trigger: arg(args, 1)}), nil
	case "pan_l":
		return b.add(&node.Pan{Input: arg(args, 0), Position: arg(args, 1), Channel: node.PanLeft}), nil
	case "pan_r":
		return b.add(&node.Pan{Input: arg(args, 0), Position: arg(args, 1), Channel: node.PanRight}), nil
	case "dcblocker":
		return b.add(&node.DCBlocker{Input: arg(args, 0)}), nil
	case "distortion":
		return b.add(&node.Distortion{Input: arg(args, 0), Drive: arg(args, 1)}), nil

	case "lpf":
		return b.add(&node.Filter{Input: arg(args, 0), Cutoff: arg(args, 1), Q: arg(args, 2), Shape: node.ShapeLowpass}), nil
	case "hpf":
		return b.add(&node.Filter{Input: arg(args, 0), Cutoff: arg(args, 1), Q: arg(args, 2), Shape: node.ShapeHighpass}), nil
	case "bpf":
		return b.add(&node.Filter{Input: arg(args, 0), Cutoff: arg(args, 1), Q: arg(args, 2), Shape: node.ShapeBandpass}), nil
	case "notch":
		return b.add(&node.Filter{Input: arg(args, 0), Cutoff: arg(args, 1), Q: arg(args, 2), Shape: node.ShapeNotch}), nil
	case "svf_lpf":
		return b.add(&node.StateVariableFilter{Input: arg(args, 0), Cutoff: arg(args, 1), Q: arg(args, 2), Mode: node.SVFLowpass}), nil
	case "moog":
		return b.add(&node.MoogFilter{Input: arg(args, 0), Cutoff: arg(args, 1), Resonance: arg(args, 2)}), nil

	case "adsr":
		return b.add(&node.Envelope{
			Gate: arg(args, 0), Attack: numberArg(c.Args, 1, 0.01), Decay: numberArg(c.Args, 2, 0.1),
			Sustain: numberArg(c.Args, 3, 0.7), Release: numberArg(c.Args, 4, 0.2),
		}), nil

	case "limiter":
		return b.add(&node.Limiter{Input: arg(args, 0), Threshold: arg(args, 1)}), nil
	case "compressor":
		return b.add(&node.Compressor{
			Input: arg(args, 0), Threshold: numberArg(c.Args, 1, -12), Ratio: numberArg(c.Args, 2, 4),
			Attack: numberArg(c.Args, 3, 0.01), Release: numberArg(c.Args, 4, 0.1),
		}), nil
	case "gate":
		return b.add(&node.Gate{Input: arg(args, 0), ThresholdDB: numberArg(c.Args, 1, -40)}), nil

	case "delay":
		return b.add(&node.Delay{Input: arg(args, 0), TimeMs: arg(args, 1), Feedback: arg(args, 2), Mix: arg(args, 3)}), nil
	case "reverb":
		return b.add(&node.Reverb{
			Input: arg(args, 0), Algorithm: node.ReverbFreeverb,
			RoomSize: numberArg(c.Args, 1, 0.5), Damping: numberArg(c.Args, 2, 0.5), WetMix: numberArg(c.Args, 3, 0.3),
		}), nil
	case "chorus":
		return b.add(&node.Modulation{Input: arg(args, 0), Effect: node.ModChorus, RateHz: numberArg(c.Args, 1, 0.5), Depth: numberArg(c.Args, 2, 2), MixLevel: numberArg(c.Args, 3, 0.5)}), nil
	case "flanger":
		return b.add(&node.Modulation{Input: arg(args, 0), Effect: node.ModFlanger, RateHz: numberArg(c.Args, 1, 0.2), Depth: numberArg(c.Args, 2, 2), MixLevel: numberArg(c.Args, 3, 0.5)}), nil
	case "phaser":
		return b.add(&node.Modulation{Input: arg(args, 0), Effect: node.ModPhaser, RateHz: numberArg(c.Args, 1, 0.3), Depth: numberArg(c.Args, 2, 0.5), MixLevel: numberArg(c.Args, 3, 0.5)}), nil
	case "tremolo":
		return b.add(&node.Modulation{Input: arg(args, 0), Effect: node.ModTremolo, RateHz: numberArg(c.Args, 1, 5), Depth: numberArg(c.Args, 2, 0.5)}), nil
	case "ringmod":
		return b.add(&node.Modulation{Input: arg(args, 0), Effect: node.ModRingMod, RateHz: numberArg(c.Args, 1, 30), MixLevel: numberArg(c.Args, 2, 1)}), nil

	case "pitch":
		return b.add(&node.PitchDetector{Input: arg(args, 0)}), nil
	case "freeze":
		return b.add(&node.SpectralFreeze{Input: arg(args, 0), Trigger: arg(args, 1)}), nil

	case "mix":
		return b.add(&node.Mix{Sources: args}), nil

	case "pat":
		name, ok := stringArg(c.Args, 0)
		if !ok {
			return 0, errTypeMismatch("pat", "string literal pattern name", "missing argument")
		}
		p, ok := b.patterns[name]
		if !ok {
			return 0, errUnknownBus(name)
		}
		return b.add(&node.PatternReader{Pattern: p}), nil

	case "s":
		name, ok := stringArg(c.Args, 0)
		if !ok {
			return 0, errTypeMismatch("s", "string literal pattern name", "missing argument")
		}
		p, ok := b.patterns[name]
		if !ok {
			return 0, errUnknownBus(name)
		}
		return b.add(&node.SamplePlayback{Pattern: p, Samples: b.samples}), nil

	default:
		return 0, errTypeMismatch("call", "known function name", c.Func)
	}
}

func (b *Builder) compileArgs(exprs []Expr) ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, 0, len(exprs))
	for _, e := range exprs {
		if _, ok := e.(StringLit); ok {
			continue
		}
		id, err := b.compile(e)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// arg returns args[i], or the zero NodeId (a graph position the caller
// should ensure resolves to silence/zero via an explicit Constant{0} when
// an argument is genuinely optional) when the argument was omitted.
func arg(args []graph.NodeID, i int) graph.NodeID {
	if i >= len(args) {
		return 0
	}
	return args[i]
}

func waveformFor(name string) node.Waveform {
	switch name {
	case "saw":
		return node.WaveformSaw
	case "square":
		return node.WaveformSquare
	case "triangle":
		return node.WaveformTriangle
	default:
		return node.WaveformSine
	}
}
