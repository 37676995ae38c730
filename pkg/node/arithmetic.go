package node

import (
	"math"

	"github.com/justyntemme/synthgo/pkg/graph"
)

// ArithOp selects the per-sample binary operation Arithmetic performs.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

// Arithmetic combines two signals sample-by-sample.
type Arithmetic struct {
	A, B graph.NodeID
	Op   ArithOp
}

func (n *Arithmetic) Inputs() []graph.NodeID { return []graph.NodeID{n.A, n.B} }
func (n *Arithmetic) Reset()                 {}

func (n *Arithmetic) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	a, b := in[0], in[1]
	for i := range out {
		switch n.Op {
		case OpSub:
			out[i] = a[i] - b[i]
		case OpMul:
			out[i] = a[i] * b[i]
		case OpDiv:
			if b[i] == 0 {
				out[i] = 0
			} else {
				out[i] = a[i] / b[i]
			}
		default:
			out[i] = a[i] + b[i]
		}
	}
}

// CompareOp selects which comparison Comparison performs.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpGreaterThan
	OpGreaterThanOrEqual
)

// Comparison outputs a gate signal (1.0 / 0.0) from comparing two inputs.
// Equality comparisons use a small tolerance since the operands are floats.
type Comparison struct {
	A, B      graph.NodeID
	Op        CompareOp
	Tolerance float32 // used for OpEqual / OpGreaterThanOrEqual; defaults to 1e-6
}

func (n *Comparison) Inputs() []graph.NodeID { return []graph.NodeID{n.A, n.B} }
func (n *Comparison) Reset()                 {}

func (n *Comparison) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	tol := n.Tolerance
	if tol == 0 {
		tol = 1e-6
	}
	a, b := in[0], in[1]
	for i := range out {
		var gate bool
		switch n.Op {
		case OpGreaterThan:
			gate = a[i] > b[i]
		case OpGreaterThanOrEqual:
			gate = a[i] >= b[i]-tol
		default:
			gate = float32(math.Abs(float64(a[i]-b[i]))) <= tol
		}
		if gate {
			out[i] = 1.0
		} else {
			out[i] = 0.0
		}
	}
}

// Not inverts a gate signal: 1.0 where the input is <= 0.5, else 0.0.
type Not struct {
	Input graph.NodeID
}

func (n *Not) Inputs() []graph.NodeID { return []graph.NodeID{n.Input} }
func (n *Not) Reset()                 {}

func (n *Not) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	src := in[0]
	for i := range out {
		if src[i] <= 0.5 {
			out[i] = 1.0
		} else {
			out[i] = 0.0
		}
	}
}

// Modulo computes the floating-point remainder of a/b per sample.
type Modulo struct {
	A, B graph.NodeID
}

func (n *Modulo) Inputs() []graph.NodeID { return []graph.NodeID{n.A, n.B} }
func (n *Modulo) Reset()                 {}

func (n *Modulo) ProcessBlock(in [][]float32, out []float32, ctx *graph.ProcessContext) {
	a, b := in[0], in[1]
	for i := range out {
		if b[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32(math.Mod(float64(a[i]), float64(b[i])))
	}
}
