package workflow

import "fmt"

// Edge is a directed connection from one node's output port to another
// node's input port.
type Edge struct {
	Source     NodeID
	SourcePort int
	Target     NodeID
	TargetPort int
}

// Graph is a port-indexed directed graph of workflow nodes. Mutations
// either apply fully or return a GraphError leaving the graph
// untouched. Iteration order is node insertion order throughout, so
// validation and execution are deterministic.
//
// Graph is not safe for concurrent mutation; the executor runs on a
// private Copy.
type Graph struct {
	nodes map[NodeID]Node
	order []NodeID
	out   map[NodeID][]Edge
	in    map[NodeID][]Edge
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[NodeID]Node),
		out:   make(map[NodeID][]Edge),
		in:    make(map[NodeID][]Edge),
	}
}

// isTail reports whether e leaves a loop node's tail output.
func (g *Graph) isTail(e Edge) bool {
	n, ok := g.nodes[e.Source]
	return ok && n.Kind() == KindLoop && e.SourcePort == 2
}

// isControlFlow reports whether e carries control into its target: a
// port-0 edge that is not a loop tail. Entry computation, reachability,
// and topological ordering all operate on control-flow edges only.
func (g *Graph) isControlFlow(e Edge) bool {
	return e.TargetPort == 0 && !g.isTail(e)
}

// AddNode inserts a node. The id must be unique within the graph.
func (g *Graph) AddNode(n Node) error {
	if _, ok := g.nodes[n.ID()]; ok {
		return &GraphError{Op: "add node", Reason: fmt.Sprintf("node %q already exists", n.ID())}
	}
	g.nodes[n.ID()] = n
	g.order = append(g.order, n.ID())
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return &GraphError{Op: "remove node", Reason: fmt.Sprintf("unknown node %q", id)}
	}
	touches := func(e Edge) bool { return e.Source == id || e.Target == id }
	for nid := range g.out {
		g.out[nid] = dropEdges(g.out[nid], touches)
	}
	for nid := range g.in {
		g.in[nid] = dropEdges(g.in[nid], touches)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
	for i, nid := range g.order {
		if nid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddEdge connects source's output port to target's input port. Each
// output port carries at most one edge. Each input port carries at most
// one edge, except that a control input may carry one ordinary edge
// plus one loop tail.
func (g *Graph) AddEdge(source NodeID, sourcePort int, target NodeID, targetPort int) error {
	const op = "add edge"
	sn, ok := g.nodes[source]
	if !ok {
		return &GraphError{Op: op, Reason: fmt.Sprintf("unknown node %q", source)}
	}
	tn, ok := g.nodes[target]
	if !ok {
		return &GraphError{Op: op, Reason: fmt.Sprintf("unknown node %q", target)}
	}
	if sourcePort < 0 || sourcePort >= len(sn.OutputPorts()) {
		return &GraphError{Op: op, Reason: fmt.Sprintf("node %q has no output port %d", source, sourcePort)}
	}
	if targetPort < 0 || targetPort >= len(tn.InputPorts()) {
		return &GraphError{Op: op, Reason: fmt.Sprintf("node %q has no input port %d", target, targetPort)}
	}
	if source == target {
		return &GraphError{Op: op, Reason: fmt.Sprintf("node %q cannot connect to itself", source)}
	}

	// A condition's result output and a branch's condition input only
	// ever connect to each other.
	resultOut := sn.Kind() == KindCondition && sourcePort == 1
	condIn := tn.Kind() == KindBranch && targetPort == 1
	if resultOut && !condIn {
		return &GraphError{Op: op, Reason: fmt.Sprintf("condition result of %q must connect to a branch condition input", source)}
	}
	if condIn && !resultOut {
		return &GraphError{Op: op, Reason: fmt.Sprintf("condition input of %q accepts only a condition result output", target)}
	}

	for _, e := range g.out[source] {
		if e.SourcePort == sourcePort {
			return &GraphError{Op: op, Reason: fmt.Sprintf("output port %d of node %q is already connected", sourcePort, source)}
		}
	}
	tail := sn.Kind() == KindLoop && sourcePort == 2
	for _, e := range g.in[target] {
		if e.TargetPort == targetPort && g.isTail(e) == tail {
			return &GraphError{Op: op, Reason: fmt.Sprintf("input port %d of node %q is already connected", targetPort, target)}
		}
	}

	e := Edge{Source: source, SourcePort: sourcePort, Target: target, TargetPort: targetPort}
	g.out[source] = append(g.out[source], e)
	g.in[target] = append(g.in[target], e)
	return nil
}

// RemoveEdge removes the edges from source to target. Non-negative
// ports narrow the match; pass -1 to match any port.
func (g *Graph) RemoveEdge(source NodeID, sourcePort int, target NodeID, targetPort int) error {
	match := func(e Edge) bool {
		return e.Source == source && e.Target == target &&
			(sourcePort < 0 || e.SourcePort == sourcePort) &&
			(targetPort < 0 || e.TargetPort == targetPort)
	}
	before := len(g.out[source])
	g.out[source] = dropEdges(g.out[source], match)
	g.in[target] = dropEdges(g.in[target], match)
	if len(g.out[source]) == before {
		return &GraphError{Op: "remove edge", Reason: fmt.Sprintf("no edge from %q to %q", source, target)}
	}
	return nil
}

func dropEdges(edges []Edge, drop func(Edge) bool) []Edge {
	kept := edges[:0]
	for _, e := range edges {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Edges returns every edge, grouped by source node in insertion order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range g.order {
		out = append(out, g.out[id]...)
	}
	return out
}

// EdgesFrom returns the edges leaving a node.
func (g *Graph) EdgesFrom(id NodeID) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// EdgeFrom returns the edge leaving the given output port.
func (g *Graph) EdgeFrom(id NodeID, port int) (Edge, bool) {
	for _, e := range g.out[id] {
		if e.SourcePort == port {
			return e, true
		}
	}
	return Edge{}, false
}

// EdgesInto returns the edges entering a node.
func (g *Graph) EdgesInto(id NodeID) []Edge {
	return append([]Edge(nil), g.in[id]...)
}

// EdgeInto returns an edge entering the given input port. When a
// control input carries both an ordinary edge and a loop tail, the
// ordinary edge wins.
func (g *Graph) EdgeInto(id NodeID, port int) (Edge, bool) {
	found, ok := Edge{}, false
	for _, e := range g.in[id] {
		if e.TargetPort != port {
			continue
		}
		if !g.isTail(e) {
			return e, true
		}
		found, ok = e, true
	}
	return found, ok
}

// EntryNodes returns the nodes with no inbound control-flow edge, in
// insertion order.
func (g *Graph) EntryNodes() []NodeID {
	var entries []NodeID
	for _, id := range g.order {
		inbound := false
		for _, e := range g.in[id] {
			if g.isControlFlow(e) {
				inbound = true
				break
			}
		}
		if !inbound {
			entries = append(entries, id)
		}
	}
	return entries
}

// tailMap maps each loop tail target to its owning loop node.
func (g *Graph) tailMap() map[NodeID]NodeID {
	tails := make(map[NodeID]NodeID)
	for _, id := range g.order {
		if g.nodes[id].Kind() != KindLoop {
			continue
		}
		if e, ok := g.EdgeFrom(id, 2); ok {
			tails[e.Target] = id
		}
	}
	return tails
}

// Validate checks that the graph is runnable: exactly one entry node,
// every node reachable from it over control-flow edges, no unexplained
// cycles, the variant-specific required ports connected, and no two
// loops claiming the same tail target.
func (g *Graph) Validate() error {
	entries := g.EntryNodes()
	if len(entries) != 1 {
		return &ExecutionError{Reason: fmt.Sprintf("workflow must have exactly one entry node, found %d", len(entries))}
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}

	seen := map[NodeID]bool{entries[0]: true}
	queue := []NodeID{entries[0]}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.out[id] {
			if !g.isControlFlow(e) || seen[e.Target] {
				continue
			}
			seen[e.Target] = true
			queue = append(queue, e.Target)
		}
	}
	for _, id := range g.order {
		if !seen[id] {
			return &ExecutionError{NodeID: id, NodeTitle: g.nodes[id].Title(), Reason: "node is not reachable from the entry node"}
		}
	}

	tails := make(map[NodeID]NodeID)
	for _, id := range g.order {
		n := g.nodes[id]
		switch n.Kind() {
		case KindCondition:
			if _, ok := g.EdgeFrom(id, 1); !ok {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "condition result output is not connected"}
			}
		case KindBranch:
			if _, ok := g.EdgeFrom(id, 0); !ok {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "true output is not connected"}
			}
			if _, ok := g.EdgeFrom(id, 1); !ok {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "false output is not connected"}
			}
			if _, ok := g.EdgeInto(id, 1); !ok {
				if src, _ := n.Config()["expression"].(string); src == "" {
					return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "branch has no condition input and no expression"}
				}
			}
		case KindLoop:
			if _, ok := g.EdgeFrom(id, 1); !ok {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "loop body output is not connected"}
			}
			e, ok := g.EdgeFrom(id, 2)
			if !ok {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: "loop tail output is not connected"}
			}
			if owner, dup := tails[e.Target]; dup {
				return &ExecutionError{NodeID: id, NodeTitle: n.Title(), Reason: fmt.Sprintf("loop tail target %q is already claimed by loop %q", e.Target, owner)}
			}
			tails[e.Target] = id
		}
	}
	return nil
}

// TopologicalOrder returns the node ids in dependency order over
// control-flow edges. Loop tails are not part of the ordering, so the
// only cycles it can report are genuinely mis-wired ones.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	indeg := make(map[NodeID]int, len(g.order))
	for _, id := range g.order {
		for _, e := range g.out[id] {
			if g.isControlFlow(e) {
				indeg[e.Target]++
			}
		}
	}
	var queue []NodeID
	for _, id := range g.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	order := make([]NodeID, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, e := range g.out[id] {
			if !g.isControlFlow(e) {
				continue
			}
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}
	if len(order) != len(g.order) {
		return nil, &ExecutionError{Reason: "graph contains a cycle"}
	}
	return order, nil
}

// Copy returns a deep copy. Nodes are cloned, so configuration edits on
// one graph never leak into the other.
func (g *Graph) Copy() *Graph {
	c := NewGraph()
	for _, id := range g.order {
		c.order = append(c.order, id)
		c.nodes[id] = g.nodes[id].clone()
	}
	for id, edges := range g.out {
		c.out[id] = append([]Edge(nil), edges...)
	}
	for id, edges := range g.in {
		c.in[id] = append([]Edge(nil), edges...)
	}
	return c
}
