// Command synthgo-render is a headless demonstration host: it builds a
// small hard-wired graph description, drives it through pkg/engine for a
// fixed number of blocks, and writes the raw float32 output stream to
// stdout — standing in for the sequencer/DAW front end and the external
// WAV-writing/device-output collaborators this package doesn't itself
// provide. Progress and the punch-in recording go to stderr via logrus so
// stdout stays a clean sample stream a caller can pipe into a WAV writer.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/synthgo/internal/engineconfig"
	"github.com/justyntemme/synthgo/pkg/engine"
	"github.com/justyntemme/synthgo/pkg/graphbuilder"
	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/node"
	"github.com/justyntemme/synthgo/pkg/voice"
)

func main() {
	if err := run(os.Stdout); err != nil {
		logrus.WithError(err).Fatal("synthgo-render failed")
	}
}

func run(w io.Writer) error {
	cfg, err := engineconfig.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logrus.WithField("config", cfg.String()).Info("starting synthgo-render")

	e, err := engine.New(cfg.SampleRate, cfg.BlockSize, 256)
	if err != nil {
		return fmt.Errorf("constructing engine: %w", err)
	}
	e.SetTempoCPS(cfg.TempoCPS)

	pool := &node.VoicePool{Pool: voice.NewPool(
		cfg.MaxVoices, cfg.SampleRate, voice.WaveformSine, 0.01, 0.08, 0.7, 0.25,
	)}

	prog := graphbuilder.Program{Statements: []graphbuilder.Statement{
		graphbuilder.OutputDecl{Expr: graphbuilder.BusRef{Name: "voices"}},
	}}
	g, err := graphbuilder.New(cfg.BlockSize).WithNode("voices", pool).Build(prog)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	if err := e.UpdateGraph(g, []engine.MidiSink{pool}); err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}

	e.StartRecording(cfg.QuantizeDefault)

	bw := bufio.NewWriter(w)
	stats := &renderStats{}

	melody := []uint8{60, 64, 67, 72}
	out := make([]float32, cfg.BlockSize)
	const blocksPerNote = 8
	const releaseBlocks = 2
	for i, note := range melody {
		e.EnqueueMIDI(midi.NoteOnEvent{NoteNumber: note, Velocity: 100})
		for b := 0; b < blocksPerNote; b++ {
			if err := e.Render(out); err != nil {
				return fmt.Errorf("rendering block %d of note %d: %w", b, i, err)
			}
			if err := writeBlock(bw, out, stats); err != nil {
				return fmt.Errorf("writing block %d of note %d: %w", b, i, err)
			}
		}
		e.EnqueueMIDI(midi.NoteOffEvent{NoteNumber: note})
		for b := 0; b < releaseBlocks; b++ {
			if err := e.Render(out); err != nil {
				return fmt.Errorf("rendering release tail of note %d: %w", i, err)
			}
			if err := writeBlock(bw, out, stats); err != nil {
				return fmt.Errorf("writing release tail of note %d: %w", i, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}

	pattern, err := e.StopRecording()
	if err != nil {
		return fmt.Errorf("punching out: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"samples":        stats.totalSamples,
		"rms":            stats.rms(),
		"zero_crossings": stats.zeroCrossings,
		"dropped_midi":   e.Log().DroppedCount(),
		"pattern":        pattern.String(),
	}).Info("render complete")

	e.Log().Drain(logrus.StandardLogger())
	return nil
}

// renderStats accumulates RMS and zero-crossing counts across every block
// written, for the summary logged once rendering finishes.
type renderStats struct {
	sumSquares    float64
	zeroCrossings int
	prevSample    float32
	totalSamples  int
}

func (s *renderStats) rms() float64 {
	if s.totalSamples == 0 {
		return 0
	}
	return math.Sqrt(s.sumSquares / float64(s.totalSamples))
}

func (s *renderStats) observe(block []float32) {
	for _, sample := range block {
		s.sumSquares += float64(sample) * float64(sample)
		if (s.prevSample < 0 && sample >= 0) || (s.prevSample > 0 && sample <= 0) {
			s.zeroCrossings++
		}
		s.prevSample = sample
		s.totalSamples++
	}
}

// writeBlock appends block to w as little-endian float32 samples and
// folds it into stats.
func writeBlock(w io.Writer, block []float32, stats *renderStats) error {
	stats.observe(block)
	var buf [4]byte
	for _, sample := range block {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(sample))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}
