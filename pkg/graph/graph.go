// Package graph implements the block-based signal graph execution core: a
// DAG of DSP nodes processed once per audio buffer in topological order,
// with node output buffers recycled through a pool. ProcessBlock still
// allocates a small input-slice list and a fresh output map on every
// block, so the hot path is not allocation-free. Feedback connections
// are tolerated by reading the producer's previous-block output, giving a
// one-block delay rather than rejecting the graph as cyclic.
//
// Generalizes a linear effects-chain builder into a full dependency DAG,
// with feedback edges resolved via one-block-stale reads instead of a
// cycle check.
package graph

import "fmt"

// NodeID identifies a node within a Graph. An ID is the node's position in
// the slice given to NewGraph and is stable for the life of the graph.
type NodeID int

// ProcessContext carries the per-block information every node needs:
// sample rate, block size, tempo, and the current cycle position (for
// pattern-driven nodes). It carries no MIDI. It is immutable within process_block;
// the engine builds a fresh one each call.
type ProcessContext struct {
	SampleRate   float64
	BlockSize    int
	CyclePos     float64 // 0..1 fractional position within the current rhythmic cycle, wraps
	CycleIndex   int64   // whole-cycle counter, monotonically increasing
	TempoCPS     float64 // cycles per second
}

// Node is one unit of block-based DSP work in the graph. ProcessBlock reads
// one input buffer per declared input (in Inputs() order, already resolved
// to the upstream node's most recent output — same-block if the edge is
// feed-forward, previous-block if it closes a feedback loop) and writes its
// own output into out. Implementations must not allocate inside
// ProcessBlock.
type Node interface {
	// Inputs returns the NodeIDs this node reads from, in argument order.
	Inputs() []NodeID
	// ProcessBlock computes out (length == block size) from in (one slice
	// per Inputs() entry, same length).
	ProcessBlock(in [][]float32, out []float32, ctx *ProcessContext)
	// Reset clears any internal state (filter memory, envelope phase, ...).
	Reset()
}

// BuildError reports a problem discovered while constructing a Graph:
// references to a node ID that was never added.
type BuildError struct {
	NodeID NodeID
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("graph build error at node %d: %s", e.NodeID, e.Reason)
}

// RuntimeError reports a problem discovered while processing a block.
type RuntimeError struct {
	NodeID NodeID
	Reason string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("graph runtime error at node %d: %s", e.NodeID, e.Reason)
}

// edge is a directed dependency from From to To (data flows From -> To).
type edge struct {
	from, to NodeID
	feedback bool
}

// Graph owns a fixed set of nodes and their dependency edges, and knows how
// to execute one block across the whole set in dependency order.
type Graph struct {
	nodes      []Node
	edges      []edge
	outputNode NodeID
	blockSize  int

	order    []NodeID // topological execution order, feedback edges excluded
	batches  [][]NodeID
	feedback map[NodeID]bool // true if any of this node's inputs arrive via a feedback edge

	pool    *BufferPool
	outputs map[NodeID][]float32 // this block's outputs, by node
	prev    map[NodeID][]float32 // previous block's outputs, for feedback reads
	zeroBuf []float32            // shared silence for feedback reads before the first block
}

// NewGraph builds a Graph from nodes (indexed by position, which becomes
// each node's NodeID) and validates that outputNode is in range. Dependency
// edges are derived from each node's Inputs().
func NewGraph(nodes []Node, outputNode NodeID, blockSize int) (*Graph, error) {
	if int(outputNode) < 0 || int(outputNode) >= len(nodes) {
		return nil, &BuildError{NodeID: outputNode, Reason: "output node out of range"}
	}
	g := &Graph{
		nodes:      nodes,
		outputNode: outputNode,
		blockSize:  blockSize,
		pool:       NewBufferPool(blockSize, len(nodes)*2),
		outputs:    make(map[NodeID][]float32, len(nodes)),
		prev:       make(map[NodeID][]float32, len(nodes)),
		feedback:   make(map[NodeID]bool, len(nodes)),
	}

	for id, n := range nodes {
		for _, dep := range n.Inputs() {
			if int(dep) < 0 || int(dep) >= len(nodes) {
				return nil, &BuildError{NodeID: NodeID(id), Reason: fmt.Sprintf("references non-existent input node %d", dep)}
			}
			g.edges = append(g.edges, edge{from: dep, to: NodeID(id)})
		}
	}

	g.resolveFeedback()
	g.order = g.topoOrder()
	g.batches = g.computeBatches()
	return g, nil
}

// resolveFeedback finds edges that close a cycle and marks them as
// feedback: a feedback edge is read from the PREVIOUS block's output
// instead of participating in this block's topological ordering, which is
// exactly how block_processor.rs's one-block delay works for loops.
func (g *Graph) resolveFeedback() {
	n := len(g.nodes)
	adj := make([][]int, n)
	for _, e := range g.edges {
		adj[e.from] = append(adj[e.from], int(e.to))
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	backEdges := make(map[[2]int]bool)

	var visit func(u int)
	visit = func(u int) {
		color[u] = gray
		for _, v := range adj[u] {
			switch color[v] {
			case white:
				visit(v)
			case gray:
				backEdges[[2]int{u, v}] = true
			}
		}
		color[u] = black
	}
	for u := 0; u < n; u++ {
		if color[u] == white {
			visit(u)
		}
	}

	for i := range g.edges {
		e := &g.edges[i]
		if backEdges[[2]int{int(e.from), int(e.to)}] {
			e.feedback = true
			g.feedback[e.to] = true
		}
	}
}

// topoOrder runs Kahn's algorithm over the feed-forward edges only.
func (g *Graph) topoOrder() []NodeID {
	n := len(g.nodes)
	indegree := make([]int, n)
	adj := make([][]int, n)
	for _, e := range g.edges {
		if e.feedback {
			continue
		}
		adj[e.from] = append(adj[e.from], int(e.to))
		indegree[e.to]++
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]NodeID, 0, n)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, NodeID(u))
		for _, v := range adj[u] {
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return order
}

// computeBatches groups the topological order into levels where every node
// in a batch only depends on nodes in strictly earlier batches, so members
// of one batch could run concurrently.
func (g *Graph) computeBatches() [][]NodeID {
	depBatch := make(map[NodeID]int, len(g.nodes))
	var batches [][]NodeID

	incoming := make(map[NodeID][]NodeID)
	for _, e := range g.edges {
		if e.feedback {
			continue
		}
		incoming[e.to] = append(incoming[e.to], e.from)
	}

	for _, id := range g.order {
		maxDep := -1
		for _, dep := range incoming[id] {
			if b := depBatch[dep]; b > maxDep {
				maxDep = b
			}
		}
		this := maxDep + 1
		for len(batches) <= this {
			batches = append(batches, nil)
		}
		batches[this] = append(batches[this], id)
		depBatch[id] = this
	}
	return batches
}

// Batches returns the parallel execution batches computed at build time.
func (g *Graph) Batches() [][]NodeID {
	return g.batches
}
