package node

import (
	"github.com/google/uuid"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// Processor is the opaque boundary an external VST/CLAP plugin host
// implements; process_block(inputs, outputs, midi_events) becomes this
// interface so the graph never knows the plugin's ABI. This keeps the
// Go-side boundary (instance identity, automation-buffer mapping) without
// any cgo/VST3 ABI binding, which stays out of scope for this package.
type Processor interface {
	ProcessBlock(inputs [][]float32, output []float32, sampleRate float64)
}

// Plugin hosts an opaque external Processor as a graph node. The Processor
// receives the full upstream buffer of each Automation input, in Automation
// order, so automation reaches it sample by sample.
type Plugin struct {
	InstanceName string
	PluginID     string
	Proc         Processor
	Automation   []graph.NodeID

	instanceUUID uuid.UUID
}

// Record is the persisted plugin-instance identity from spec §6's
// `{instance_name, plugin_id, ...}` shape.
type Record struct {
	InstanceName string
	PluginID     string
	InstanceUUID uuid.UUID
}

func (n *Plugin) record() Record {
	if n.instanceUUID == uuid.Nil {
		n.instanceUUID = uuid.New()
	}
	return Record{InstanceName: n.InstanceName, PluginID: n.PluginID, InstanceUUID: n.instanceUUID}
}

// Describe returns this plugin instance's persisted identity record,
// minting a UUID on first call.
func (n *Plugin) Describe() Record { return n.record() }

func (n *Plugin) Inputs() []graph.NodeID { return n.Automation }
func (n *Plugin) Reset()                 {}

func (n *Plugin) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	if n.Proc == nil {
		return
	}
	n.Proc.ProcessBlock(in, out, ctx.SampleRate)
}
