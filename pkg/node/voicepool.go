package node

import (
	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/voice"
)

// VoicePool bridges a voice.Pool into the signal graph: it has no graph
// inputs (MIDI arrives out-of-band via PushEvents, called by the engine
// before ProcessBlock) and emits the pool's mixed, normalized output.
type VoicePool struct {
	Pool *voice.Pool

	pending []midi.Event
}

func (n *VoicePool) Inputs() []graph.NodeID { return nil }
func (n *VoicePool) Reset()                 { n.Pool.Reset() }

// PushEvents queues MIDI events drained from the ring buffer for dispatch
// at the start of the next ProcessBlock.
func (n *VoicePool) PushEvents(events []midi.Event) {
	n.pending = append(n.pending, events...)
}

func (n *VoicePool) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	for _, ev := range n.pending {
		switch e := ev.(type) {
		case midi.NoteOnEvent:
			if e.Velocity == 0 {
				n.Pool.NoteOff(midi.NoteOffEvent{BaseEvent: e.BaseEvent, NoteNumber: e.NoteNumber})
				continue
			}
			n.Pool.NoteOn(e)
		case midi.NoteOffEvent:
			n.Pool.NoteOff(e)
		}
	}
	n.pending = n.pending[:0]
	n.Pool.Render(out)
}
