package graphbuilder

import (
	"fmt"

	"github.com/justyntemme/synthgo/pkg/graph"
	"github.com/justyntemme/synthgo/pkg/node"
	"github.com/justyntemme/synthgo/pkg/pattern"
)

// BuildError is the closed taxonomy of build-time failures: UnknownBus,
// InvalidInputReference (surfaced by graph.NewGraph itself once the node
// vector is assembled), NoOutputSet, TypeMismatch.
type BuildError struct {
	Kind   string
	Detail string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("graphbuilder: %s: %s", e.Kind, e.Detail)
}

func errUnknownBus(name string) *BuildError {
	return &BuildError{Kind: "UnknownBus", Detail: name}
}

func errNoOutput() *BuildError {
	return &BuildError{Kind: "NoOutputSet", Detail: "no out: statement in program"}
}

func errTypeMismatch(op, required, found string) *BuildError {
	return &BuildError{Kind: "TypeMismatch", Detail: fmt.Sprintf("%s requires %s, found %s", op, required, found)}
}

// Builder walks a Program and compiles it into a graph.Graph. Patterns
// referenced by name (for PatternReader/SamplePlayback Call nodes) must be
// registered via WithPattern before Build.
type Builder struct {
	blockSize int
	nodes     []graph.Node
	busses    map[string]graph.NodeID
	patterns  map[string]pattern.Pattern
	samples   map[string][]float32
}

// New creates a Builder for a graph whose nodes will process blockSize
// samples at a time.
func New(blockSize int) *Builder {
	return &Builder{
		blockSize: blockSize,
		busses:    make(map[string]graph.NodeID),
		patterns:  make(map[string]pattern.Pattern),
		samples:   make(map[string][]float32),
	}
}

// WithPattern registers a named pattern a `pat("name")` Call can reference.
func (b *Builder) WithPattern(name string, p pattern.Pattern) *Builder {
	b.patterns[name] = p
	return b
}

// WithSample registers decoded PCM under name; every SamplePlayback node
// built by an `s` Call receives the registered samples.
func (b *Builder) WithSample(name string, pcm []float32) *Builder {
	b.samples[name] = pcm
	return b
}

// WithNode pre-adds a node the parser cannot construct from AST arguments
// alone — a *node.VoicePool bound to a live voice.Pool, or a *node.Plugin
// wrapping an already-loaded external processor — and binds it to name as
// if it had been declared with `~name: ...`, so the program can reference
// it with an ordinary BusRef. Must be called before Build.
func (b *Builder) WithNode(name string, n graph.Node) *Builder {
	b.busses[name] = b.add(n)
	return b
}

func (b *Builder) add(n graph.Node) graph.NodeID {
	id := graph.NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return id
}

// Build compiles prog into a graph.Graph, resolving bus declarations in
// order and failing on the first unknown reference or missing output.
func (b *Builder) Build(prog Program) (*graph.Graph, error) {
	var outputID graph.NodeID
	haveOutput := false

	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case BusDecl:
			id, err := b.compile(s.Expr)
			if err != nil {
				return nil, err
			}
			b.busses[s.Name] = id
		case OutputDecl:
			id, err := b.compile(s.Expr)
			if err != nil {
				return nil, err
			}
			if s.Channel == 0 {
				outputID = id
				haveOutput = true
			}
		}
	}

	if !haveOutput {
		return nil, errNoOutput()
	}

	return graph.NewGraph(b.nodes, outputID, b.blockSize)
}

func (b *Builder) compile(e Expr) (graph.NodeID, error) {
	switch v := e.(type) {
	case Number:
		return b.add(&node.Constant{Value: float32(v.Value)}), nil
	case StringLit:
		return 0, errTypeMismatch("string literal", "numeric context", "string \""+v.Value+"\"")
	case BusRef:
		id, ok := b.busses[v.Name]
		if !ok {
			return 0, errUnknownBus(v.Name)
		}
		return id, nil
	case BinOp:
		return b.compileBinOp(v)
	case Call:
		return b.compileCall(v)
	default:
		return 0, errTypeMismatch("expression", "known Expr variant", fmt.Sprintf("%T", e))
	}
}

func (b *Builder) compileBinOp(v BinOp) (graph.NodeID, error) {
	left, err := b.compile(v.Left)
	if err != nil {
		return 0, err
	}
	right, err := b.compile(v.Right)
	if err != nil {
		return 0, err
	}
	op, ok := arithOpFor(v.Op)
	if !ok {
		return 0, errTypeMismatch("BinOp", "+ - * /", v.Op)
	}
	return b.add(&node.Arithmetic{A: left, B: right, Op: op}), nil
}

func arithOpFor(op string) (node.ArithOp, bool) {
	switch op {
	case "+":
		return node.OpAdd, true
	case "-":
		return node.OpSub, true
	case "*", "#":
		return node.OpMul, true
	case "/":
		return node.OpDiv, true
	default:
		return 0, false
	}
}

// stringArg extracts a StringLit argument at index i, for Calls whose
// parameter is an identifier rather than a sub-expression (waveform name,
// pattern name, sample token).
func stringArg(args []Expr, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(StringLit)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// numberArg extracts a Number argument at index i as a float64.
func numberArg(args []Expr, i int, fallback float64) float64 {
	if i >= len(args) {
		return fallback
	}
	n, ok := args[i].(Number)
	if !ok {
		return fallback
	}
	return n.Value
}
