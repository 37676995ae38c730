package graph

// Preparer is an optional Node capability: a node that implements it is
// called once per block before the topological processing pass begins,
// mirroring block_processor.rs's separate "prepare" phase. None of the
// nodes in pkg/node implements it.
type Preparer interface {
	PrepareBlock(ctx *ProcessContext)
}

// ProcessBlock runs one full pass over the graph: prepare, execute every
// node in dependency order, then return the output node's buffer. The
// returned slice is owned by the caller until the next ProcessBlock call;
// the graph recycles buffers from two blocks ago once they're no longer
// needed as feedback sources.
func (g *Graph) ProcessBlock(ctx *ProcessContext) ([]float32, error) {
	for _, n := range g.nodes {
		if p, ok := n.(Preparer); ok {
			p.PrepareBlock(ctx)
		}
	}

	inputBufs := make([][]float32, 0, 4)
	for _, id := range g.order {
		node := g.nodes[id]
		inputBufs = inputBufs[:0]
		for _, dep := range node.Inputs() {
			if src, ok := g.outputs[dep]; ok && !g.isFeedbackInput(id, dep) {
				inputBufs = append(inputBufs, src)
				continue
			}
			if prev, ok := g.prev[dep]; ok {
				inputBufs = append(inputBufs, prev)
				continue
			}
			inputBufs = append(inputBufs, g.zeroBuffer())
		}

		out := g.pool.Get()
		node.ProcessBlock(inputBufs, out, ctx)
		g.outputs[id] = out
	}

	output, ok := g.outputs[g.outputNode]
	if !ok {
		return nil, &RuntimeError{NodeID: g.outputNode, Reason: "output node did not produce a buffer this block"}
	}

	g.rotateBuffers()
	return output, nil
}

// isFeedbackInput reports whether the edge dep->to was classified as a
// feedback (back) edge during graph construction.
func (g *Graph) isFeedbackInput(to, dep NodeID) bool {
	for _, e := range g.edges {
		if e.to == to && e.from == dep {
			return e.feedback
		}
	}
	return false
}

func (g *Graph) zeroBuffer() []float32 {
	if g.zeroBuf == nil {
		g.zeroBuf = make([]float32, g.blockSize)
	}
	return g.zeroBuf
}

// rotateBuffers reclaims the outputs that are now two blocks stale, then
// moves this block's outputs into prev for next block's feedback reads.
func (g *Graph) rotateBuffers() {
	for _, buf := range g.prev {
		g.pool.Put(buf)
	}
	g.prev, g.outputs = g.outputs, make(map[NodeID][]float32, len(g.nodes))
}

// Reset clears every node's internal state and discards cached outputs,
// used when the engine swaps in a freshly rebuilt graph.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		n.Reset()
	}
	g.outputs = make(map[NodeID][]float32, len(g.nodes))
	g.prev = make(map[NodeID][]float32, len(g.nodes))
}
