package node

import (
	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/pattern"
	"github.com/justyntemme/synthgo/pkg/rational"
)

// PatternReader queries a Pattern once per block over the block's cycle
// span and renders its events into a control-rate signal: each event's
// numeric value holds for the duration of its Part, and silence between
// events (or non-numeric values) holds the last value. This is how
// pattern-driven parameters (filter cutoff, gate triggers, CV) enter the
// signal graph as an ordinary node.
type PatternReader struct {
	Pattern pattern.Pattern

	last float32
}

func (n *PatternReader) Inputs() []graph.NodeID { return nil }
func (n *PatternReader) Reset()                 { n.last = 0 }

// PrepareBlock is unused; PatternReader queries directly in ProcessBlock
// since it needs the block's cycle span, which only ProcessBlock's
// ProcessContext carries alongside sample rate and tempo.
func (n *PatternReader) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if ctx.TempoCPS <= 0 || len(out) == 0 {
		for i := range out {
			out[i] = n.last
		}
		return
	}

	cyclesPerSample := ctx.TempoCPS / ctx.SampleRate
	begin := rational.FromFloat(ctx.CyclePos).Add(rational.FromInt(ctx.CycleIndex))
	end := begin.Add(rational.FromFloat(cyclesPerSample * float64(len(out))))
	events := n.Pattern.Query(rational.NewSpan(begin, end))

	for i := range out {
		t := begin.Add(rational.FromFloat(cyclesPerSample * float64(i)))
		n.last = valueAt(events, t, n.last)
		out[i] = n.last
	}
}

func valueAt(events []pattern.Event, t rational.Cycle, fallback float32) float32 {
	for _, ev := range events {
		if ev.Part.Contains(t) {
			if f, ok := asFloat32(ev.Value); ok {
				return f
			}
		}
	}
	return fallback
}

func asFloat32(v pattern.Value) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
