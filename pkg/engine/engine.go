// Package engine owns the running signal graph and the audio-thread
// contract around it: render() drains MIDI, advances the transport, and
// runs one graph block; update_graph() builds and pre-warms a replacement
// graph off the audio thread and publishes it with a single atomic swap.
//
// Separates a process-context value from the node chain it drives,
// generalized here from a fixed linear chain to a hot-swappable
// graph.Graph, with per-buffer context construction driven by an exact
// rational transport clock.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/rational"
	"github.com/justyntemme/synthgo/pkg/recorder"
	"github.com/justyntemme/synthgo/internal/rtlog"
)

// MidiSink receives the MIDI events drained from the ingress queue each
// block. *node.VoicePool satisfies this without an explicit dependency
// from this package on pkg/node, keeping the engine agnostic of which node
// types a particular graph happens to use.
type MidiSink interface {
	PushEvents(events []midi.Event)
}

// ErrBlockSizeMismatch is returned by Render when the caller's buffer does
// not match the engine's configured block size.
var ErrBlockSizeMismatch = errors.New("engine: output buffer length does not match configured block size")

// liveGraph bundles a graph with the sinks MIDI events should be routed to,
// swapped as one atomic unit so a reload never routes events into a graph
// that hasn't been published yet.
type liveGraph struct {
	g     *graph.Graph
	sinks []MidiSink
}

// Engine owns one running graph, the transport clock, and the MIDI ingress
// queue. Sample rate is fixed at construction and never changes for the
// engine's lifetime.
type Engine struct {
	sampleRate float64
	blockSize  int

	midiIn *midi.RingQueue

	current atomic.Pointer[liveGraph]

	cycleMu     sync.Mutex // guards cyclePos; taken by Render, CycleSnapshot and StartRecording
	cyclePos    rational.Cycle
	tempoBits   atomic.Uint64

	recMu    sync.Mutex
	rec      *recorder.Recorder
	recOn    bool
	elapsedUs int64

	log *rtlog.Logger
}

// New constructs an Engine with an immutable sample rate and block size,
// a MIDI ingress queue of the given capacity, and an idle (silent) graph
// until the first UpdateGraph call.
func New(sampleRate float64, blockSize, midiQueueCapacity int) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be positive, got %v", sampleRate)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("engine: block size must be positive, got %d", blockSize)
	}
	e := &Engine{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		midiIn:     midi.NewRingQueue(midiQueueCapacity),
		log:        rtlog.New(64),
	}
	e.tempoBits.Store(math.Float64bits(0.5))
	return e, nil
}

// SampleRate returns the engine's fixed sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// BlockSize returns the engine's fixed block size.
func (e *Engine) BlockSize() int { return e.blockSize }

// Log returns the engine's real-time-safe logger, for callers that want to
// drain dropped-event and anomaly counts off the audio thread.
func (e *Engine) Log() *rtlog.Logger { return e.log }

// SetTempoCPS updates the transport's cycles-per-second rate. Safe to call
// from any thread; takes effect on the next Render call.
func (e *Engine) SetTempoCPS(cps float64) {
	e.tempoBits.Store(math.Float64bits(cps))
}

func (e *Engine) tempoCPS() float64 {
	return math.Float64frombits(e.tempoBits.Load())
}

// EnqueueMIDI hands a decoded event to the lock-free ingress queue. Called
// from the MIDI producer thread (hardware driver or test harness), never
// from the render thread. Returns false if the queue is full; the event is
// dropped and counted, never block.
func (e *Engine) EnqueueMIDI(ev midi.Event) bool {
	if e.midiIn.Push(ev) {
		return true
	}
	e.log.NoteDropped()
	return false
}

// UpdateGraph builds a replacement for the running graph: off the audio
// thread it runs the new graph for one throwaway block (so a runtime error
// surfaces here rather than in Render), resets every node's state, then
// publishes it with a single atomic pointer store. The old graph's internal state is
// discarded; the transport's cycle position is untouched, so audio
// continues exactly where it left off — time is immutable across a reload.
func (e *Engine) UpdateGraph(g *graph.Graph, sinks []MidiSink) error {
	warm := &graph.ProcessContext{
		SampleRate: e.sampleRate,
		BlockSize:  e.blockSize,
		TempoCPS:   e.tempoCPS(),
	}
	if _, err := g.ProcessBlock(warm); err != nil {
		return fmt.Errorf("engine: pre-warm failed: %w", err)
	}
	g.Reset()
	e.current.Store(&liveGraph{g: g, sinks: sinks})
	return nil
}

// CycleSnapshot returns the transport's current absolute cycle position as
// an exact numerator/denominator pair plus the current tempo, safe to call
// from any thread. The position is read under cycleMu, which Render also
// holds while it reads and advances the transport, so this call and the
// render thread can briefly wait on each other; only the tempo is an
// atomic load.
func (e *Engine) CycleSnapshot() (numerator, denominator int64, tempoCPS float64) {
	e.cycleMu.Lock()
	c := e.cyclePos
	e.cycleMu.Unlock()
	return c.Numerator(), c.Denominator(), e.tempoCPS()
}

// StartRecording punches in at the engine's current cycle position,
// discarding any previously captured (but not yet punched-out) take.
func (e *Engine) StartRecording(quantize uint32) {
	e.cycleMu.Lock()
	at := e.cyclePos
	e.cycleMu.Unlock()

	e.recMu.Lock()
	defer e.recMu.Unlock()
	e.rec = recorder.New(e.tempoCPS(), quantize)
	e.rec.StartAtCycle(at)
	e.elapsedUs = 0
	e.recOn = true
}

// StopRecording punches out and returns the quantized pattern.
func (e *Engine) StopRecording() (*recorder.RecordedPattern, error) {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if !e.recOn || e.rec == nil {
		return nil, errors.New("engine: not currently recording")
	}
	e.recOn = false
	return e.rec.PunchOut()
}

// Render drains pending MIDI, dispatches it to the current graph's sinks
// (and, if punched in, the recorder), advances the transport by exactly one
// block's worth of cycles, runs the graph, and copies its output into out.
// out's length must equal the engine's configured block size.
func (e *Engine) Render(out []float32) error {
	if len(out) != e.blockSize {
		return ErrBlockSizeMismatch
	}

	lg := e.current.Load()

	events := make([]midi.Event, e.blockSize)
	n := e.midiIn.DrainInto(events)
	events = events[:n]

	e.recMu.Lock()
	if e.recOn && e.rec != nil {
		for _, ev := range events {
			e.rec.RecordEvent(ev, e.elapsedUs)
		}
	}
	e.recMu.Unlock()

	if lg != nil {
		for _, sink := range lg.sinks {
			sink.PushEvents(events)
		}
	}

	e.cycleMu.Lock()
	pos := e.cyclePos
	e.cycleMu.Unlock()

	tempo := e.tempoCPS()
	ctx := &graph.ProcessContext{
		SampleRate: e.sampleRate,
		BlockSize:  e.blockSize,
		CyclePos:   pos.Frac().Float64(),
		CycleIndex: pos.Floor(),
		TempoCPS:   tempo,
	}

	if lg == nil {
		for i := range out {
			out[i] = 0
		}
	} else {
		result, err := lg.g.ProcessBlock(ctx)
		if err != nil {
			e.log.NoteAnomaly(err.Error())
			for i := range out {
				out[i] = 0
			}
		} else {
			copy(out, result)
		}
	}

	cyclesThisBlock := rational.FromFloat(tempo * float64(e.blockSize) / e.sampleRate)
	e.cycleMu.Lock()
	e.cyclePos = e.cyclePos.Add(cyclesThisBlock)
	e.cycleMu.Unlock()

	usPerBlock := int64(float64(e.blockSize) / e.sampleRate * 1_000_000)
	e.recMu.Lock()
	e.elapsedUs += usPerBlock
	e.recMu.Unlock()

	return nil
}
