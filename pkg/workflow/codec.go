package workflow

import "fmt"

// DocumentSchema is the current GraphDocument schema version.
const DocumentSchema = 1

// GraphDocument is the persisted shape of a workflow, shared with the
// external editor. It is plain data, ready for encoding/json.
type GraphDocument struct {
	Schema int            `json:"schema"`
	Nodes  []NodeDocument `json:"nodes"`
	Edges  []EdgeDocument `json:"edges"`
}

// NodeDocument describes one node. Position is opaque editor layout
// payload; the core carries it untouched.
type NodeDocument struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Config   map[string]any `json:"config"`
	Position Position       `json:"position"`
}

// EdgeDocument describes one edge.
type EdgeDocument struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourcePort int    `json:"source_port"`
	TargetPort int    `json:"target_port"`
}

// Position is a node's location on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EncodeGraph captures g as a document. Nodes and edges follow the
// graph's insertion order, so encoding is deterministic.
func EncodeGraph(g *Graph) *GraphDocument {
	doc := &GraphDocument{Schema: DocumentSchema}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:     string(n.ID()),
			Type:   n.Type(),
			Title:  n.Title(),
			Config: n.Config(),
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDocument{
			Source:     string(e.Source),
			Target:     string(e.Target),
			SourcePort: e.SourcePort,
			TargetPort: e.TargetPort,
		})
	}
	return doc
}

// DecodeGraph reconstructs a graph from a document. Saved configs are
// merged over each type's defaults and revalidated, and edges are
// replayed through AddEdge, so a malformed document is rejected exactly
// the way a live mutation would be. DecodeGraph does not call Validate;
// the caller decides when the graph must also be runnable.
func DecodeGraph(doc *GraphDocument, reg *Registry) (*Graph, error) {
	if doc.Schema > DocumentSchema {
		return nil, fmt.Errorf("unsupported document schema %d", doc.Schema)
	}
	g := NewGraph()
	for _, nd := range doc.Nodes {
		n, err := reg.NewWithConfig(nd.Type, NodeID(nd.ID), nd.Title, nd.Config)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.ID, err)
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, ed := range doc.Edges {
		if err := g.AddEdge(NodeID(ed.Source), ed.SourcePort, NodeID(ed.Target), ed.TargetPort); err != nil {
			return nil, err
		}
	}
	return g, nil
}
