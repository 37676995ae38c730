// Package graphbuilder compiles a parsed declarative AST (external to this
// engine — a live-codeable description an editor can push at runtime) into
// a graph.Graph: it registers bus bindings, resolves references, dispatches
// function-call nodes to the pkg/node library, and designates the output
// node.
//
// The bus/output model (`~name: expression` registers a bus, `out:
// expression` sets output) and node-id-by-append construction follow a
// straightforward append-only build: each compiled expression appends one
// node and returns its id for later reference.
package graphbuilder

// Expr is one node in the parsed expression tree. It is produced entirely
// by the external parser; this package only walks it.
type Expr interface{ isExpr() }

// Number is a numeric literal, compiled to a Constant node.
type Number struct{ Value float64 }

// StringLit is a string literal — used for pattern-token arguments
// (sample names) and other non-numeric parameters a Call needs.
type StringLit struct{ Value string }

// BusRef resolves to the NodeId of a previously declared bus (`~name:`).
type BusRef struct{ Name string }

// Call invokes a named node constructor (`sine`, `lpf`, `adsr`, `s`, ...)
// with resolved sub-expressions as arguments.
type Call struct {
	Func string
	Args []Expr
}

// BinOp is an infix arithmetic or chain operator (`+`, `-`, `*`, `/`, `#`).
type BinOp struct {
	Op          string
	Left, Right Expr
}

func (Number) isExpr()    {}
func (StringLit) isExpr() {}
func (BusRef) isExpr()    {}
func (Call) isExpr()      {}
func (BinOp) isExpr()     {}

// Statement is one top-level declaration in the program.
type Statement interface{ isStatement() }

// BusDecl registers Name as a bus bound to Expr's compiled NodeId.
type BusDecl struct {
	Name string
	Expr Expr
}

// OutputDecl designates Expr's compiled NodeId as the graph's output.
// Channel is 0 for the unnumbered `out:`; numbered outputs (`out1:`, ...)
// are accepted by the AST but the single-output Graph contract only wires
// channel 0 — non-zero channels are retained for a future multi-output
// graph and ignored by Build today.
type OutputDecl struct {
	Channel int
	Expr    Expr
}

func (BusDecl) isStatement()    {}
func (OutputDecl) isStatement() {}

// Program is a full parsed graph description: an ordered list of
// statements, bus declarations before their first use.
type Program struct {
	Statements []Statement
}
