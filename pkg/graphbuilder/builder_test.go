package graphbuilder

import (
	"testing"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/midi"
	"github.com/justyntemme/synthgo/pkg/node"
	"github.com/justyntemme/synthgo/pkg/pattern"
	"github.com/justyntemme/synthgo/pkg/voice"
)

func testCtx(blockSize int) *graph.ProcessContext {
	return &graph.ProcessContext{SampleRate: 48000, BlockSize: blockSize, TempoCPS: 0.5}
}

func TestBuildSimpleOscillatorGraph(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: Call{Func: "sine", Args: []Expr{Number{440}}}},
	}}

	g, err := New(64).Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := g.ProcessBlock(testCtx(64))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 64 {
		t.Fatalf("expected 64 samples, got %d", len(out))
	}
}

func TestBuildResolvesBusReference(t *testing.T) {
	prog := Program{Statements: []Statement{
		BusDecl{Name: "osc", Expr: Call{Func: "sine", Args: []Expr{Number{220}}}},
		OutputDecl{Expr: BinOp{Op: "*", Left: BusRef{Name: "osc"}, Right: Number{0.5}}},
	}}

	g, err := New(32).Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := g.ProcessBlock(testCtx(32)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestBuildUnknownBusFails(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: BusRef{Name: "nope"}},
	}}

	_, err := New(32).Build(prog)
	if err == nil {
		t.Fatal("expected an error for unknown bus reference")
	}
	be, ok := err.(*BuildError)
	if !ok {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if be.Kind != "UnknownBus" {
		t.Fatalf("expected UnknownBus, got %s", be.Kind)
	}
}

func TestBuildNoOutputFails(t *testing.T) {
	prog := Program{Statements: []Statement{
		BusDecl{Name: "osc", Expr: Call{Func: "sine", Args: []Expr{Number{440}}}},
	}}

	_, err := New(32).Build(prog)
	if err == nil {
		t.Fatal("expected an error when no out: statement is present")
	}
	be, ok := err.(*BuildError)
	if !ok || be.Kind != "NoOutputSet" {
		t.Fatalf("expected NoOutputSet, got %v", err)
	}
}

func TestBuildStringLiteralInNumericContextFails(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: StringLit{Value: "oops"}},
	}}

	_, err := New(32).Build(prog)
	if err == nil {
		t.Fatal("expected a TypeMismatch error")
	}
	be, ok := err.(*BuildError)
	if !ok || be.Kind != "TypeMismatch" {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}

func TestBuildFilterChain(t *testing.T) {
	prog := Program{Statements: []Statement{
		BusDecl{Name: "src", Expr: Call{Func: "saw", Args: []Expr{Number{110}}}},
		OutputDecl{Expr: Call{Func: "lpf", Args: []Expr{BusRef{Name: "src"}, Number{800}, Number{0.7}}}},
	}}

	g, err := New(128).Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := g.ProcessBlock(testCtx(128)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestBuildMixOfTwoSources(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: Call{Func: "mix", Args: []Expr{
			Call{Func: "sine", Args: []Expr{Number{220}}},
			Call{Func: "sine", Args: []Expr{Number{440}}},
		}}},
	}}

	g, err := New(32).Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := g.ProcessBlock(testCtx(32)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestBuildPatternReaderResolvesRegisteredPattern(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: Call{Func: "pat", Args: []Expr{StringLit{Value: "lead"}}}},
	}}

	b := New(16).WithPattern("lead", pattern.Pure(1.0))
	g, err := b.Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := g.ProcessBlock(testCtx(16)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestBuildPatternReaderUnregisteredNameFails(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: Call{Func: "pat", Args: []Expr{StringLit{Value: "missing"}}}},
	}}

	_, err := New(16).Build(prog)
	if err == nil {
		t.Fatal("expected an error for an unregistered pattern name")
	}
}

func TestBuildWithNodeBindsPreconstructedNodeToABus(t *testing.T) {
	pool := &node.VoicePool{Pool: voice.NewPool(4, 48000, voice.WaveformSine, 0.01, 0.05, 0.7, 0.2)}
	pool.PushEvents([]midi.Event{midi.NoteOnEvent{NoteNumber: 60, Velocity: 100}})

	prog := Program{Statements: []Statement{
		OutputDecl{Expr: BusRef{Name: "voices"}},
	}}

	g, err := New(64).WithNode("voices", pool).Build(prog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := g.ProcessBlock(testCtx(64))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	var sawSound bool
	for _, v := range out {
		if v != 0 {
			sawSound = true
		}
	}
	if !sawSound {
		t.Fatal("expected the pre-registered voice pool's output to reach the graph output")
	}
}

func TestBuildUnknownCallFails(t *testing.T) {
	prog := Program{Statements: []Statement{
		OutputDecl{Expr: Call{Func: "notarealnode"}},
	}}

	_, err := New(16).Build(prog)
	if err == nil {
		t.Fatal("expected a TypeMismatch error for an unknown function name")
	}
}
