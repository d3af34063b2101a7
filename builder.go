package flowgrid

import (
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// GraphBuilder provides a fluent API for assembling workflow graphs in
// code, without going through the editor's document format:
//
//	g, err := flowgrid.NewBuilder().
//	    Node("probe", "pixel_color", map[string]any{"x": 10, "y": 20}).
//	    Then("check", "condition_greater", map[string]any{
//	        "left":  "value('probe').r",
//	        "right": "128",
//	    }).
//	    Then("decide", "if_condition", nil).
//	    Edge("check", 1, "decide", 1).
//	    Node("bright", "keyboard_input", map[string]any{"text": "bright"}).
//	    Node("dark", "keyboard_input", map[string]any{"text": "dark"}).
//	    Edge("decide", 0, "bright", 0).
//	    Edge("decide", 1, "dark", 0).
//	    Build()
//
// Node and Then create nodes through the built-in registry; Then also
// wires the new node after the previous one. Misusing the API (empty
// id, empty type, Then before any node) panics; data problems such as
// invalid config values or rejected edges are collected and reported
// by Build.
type GraphBuilder struct {
	reg   *workflow.Registry
	graph *workflow.Graph
	last  workflow.NodeID
	err   error
}

// NewBuilder creates an empty builder over the built-in node catalogue.
func NewBuilder() *GraphBuilder {
	return &GraphBuilder{
		reg:   workflow.NewRegistry(),
		graph: workflow.NewGraph(),
	}
}

// Node creates a node of the given type with the supplied config merged
// over the type's defaults, and adds it to the graph. A nil config
// yields the defaults.
func (b *GraphBuilder) Node(id NodeID, nodeType string, config map[string]any) *GraphBuilder {
	if id == "" {
		panic("flowgrid: node id must not be empty")
	}
	if nodeType == "" {
		panic(fmt.Sprintf("flowgrid: node %q has no type", id))
	}

	b.last = id
	if b.err != nil {
		return b
	}
	n, err := b.reg.NewWithConfig(nodeType, id, "", config)
	if err != nil {
		b.err = fmt.Errorf("node %q: %w", id, err)
		return b
	}
	if err := b.graph.AddNode(n); err != nil {
		b.err = err
	}
	return b
}

// Then creates a node like Node and additionally wires it after the
// previously added node (previous output 0 to new input 0).
func (b *GraphBuilder) Then(id NodeID, nodeType string, config map[string]any) *GraphBuilder {
	if b.last == "" {
		panic("flowgrid: Then called before any node was added")
	}
	prev := b.last
	b.Node(id, nodeType, config)
	return b.Edge(prev, 0, id, 0)
}

// Connect wires source's output 0 to target's input 0.
func (b *GraphBuilder) Connect(source, target NodeID) *GraphBuilder {
	return b.Edge(source, 0, target, 0)
}

// Edge wires an explicit port pair, for condition results, branch
// outputs, and loop bodies and tails.
func (b *GraphBuilder) Edge(source NodeID, sourcePort int, target NodeID, targetPort int) *GraphBuilder {
	if b.err != nil {
		return b
	}
	if err := b.graph.AddEdge(source, sourcePort, target, targetPort); err != nil {
		b.err = err
	}
	return b
}

// Title sets the title of the most recently added node.
func (b *GraphBuilder) Title(title string) *GraphBuilder {
	if b.err != nil || b.last == "" {
		return b
	}
	if n, ok := b.graph.Node(b.last); ok {
		n.SetTitle(title)
	}
	return b
}

// Configure patches the config of a previously added node.
func (b *GraphBuilder) Configure(id NodeID, patch map[string]any) *GraphBuilder {
	if b.err != nil {
		return b
	}
	n, ok := b.graph.Node(id)
	if !ok {
		b.err = fmt.Errorf("configure: unknown node %q", id)
		return b
	}
	if err := n.Configure(patch); err != nil {
		b.err = fmt.Errorf("node %q: %w", id, err)
	}
	return b
}

// Build validates the assembled graph and returns it. The first error
// encountered while building, or the validation error, is returned and
// the graph is withheld.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph, nil
}

// MustBuild is like Build but panics on error. Useful for examples and
// graphs that are fixed at compile time.
func (b *GraphBuilder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("flowgrid: %v", err))
	}
	return g
}
