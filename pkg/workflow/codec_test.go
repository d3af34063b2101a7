package workflow

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeGraphFollowsInsertionOrder(t *testing.T) {
	reg := NewRegistry()
	g := NewGraph()
	addAll(t, g, reg, [][2]string{
		{"first", "mouse_click"}, {"second", "keyboard_input"}, {"third", "key_press"},
	})
	if err := g.AddEdge("first", 0, "second", 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge("second", 0, "third", 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	doc := EncodeGraph(g)
	if doc.Schema != DocumentSchema {
		t.Fatalf("unexpected schema %d", doc.Schema)
	}
	ids := make([]string, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		ids[i] = nd.ID
	}
	if !reflect.DeepEqual(ids, []string{"first", "second", "third"}) {
		t.Fatalf("unexpected node order %v", ids)
	}
	if len(doc.Edges) != 2 || doc.Edges[0].Source != "first" || doc.Edges[1].Source != "second" {
		t.Fatalf("unexpected edges %v", doc.Edges)
	}

	if !reflect.DeepEqual(doc, EncodeGraph(g)) {
		t.Fatal("encoding must be deterministic")
	}
}

// A document that went through JSON carries float64 numbers; decoding
// must hand back the config that was saved, int fields included.
func TestCodecRoundtripThroughJSON(t *testing.T) {
	reg := NewRegistry()
	g := NewGraph()
	n, err := reg.NewWithConfig("mouse_click", "click", "Open Menu", map[string]any{"x": 7, "clicks": 2})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	addAll(t, g, reg, [][2]string{{"loop", "for_loop"}, {"body", "keyboard_input"}})
	if err := g.AddEdge("click", 0, "loop", 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge("loop", 1, "body", 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge("loop", 2, "body", 0); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	raw, err := json.Marshal(EncodeGraph(g))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc GraphDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	decoded, err := DecodeGraph(&doc, reg)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if decoded.Len() != 3 || len(decoded.Edges()) != 3 {
		t.Fatalf("unexpected shape: %d nodes, %d edges", decoded.Len(), len(decoded.Edges()))
	}

	dn, _ := decoded.Node("click")
	if dn.Title() != "Open Menu" {
		t.Fatalf("title lost: %q", dn.Title())
	}
	cfg := dn.Config()
	if cfg["x"] != 7 || cfg["clicks"] != 2 {
		t.Fatalf("int config did not survive: %#v", cfg)
	}
	if cfg["interval"] != 0.1 {
		t.Fatalf("float config did not survive: %#v", cfg)
	}

	// The tail edge keeps its meaning, so the decoded graph is runnable.
	if err := decoded.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeGraphRejectsBadDocuments(t *testing.T) {
	reg := NewRegistry()

	_, err := DecodeGraph(&GraphDocument{Schema: 2}, reg)
	if err == nil || !strings.Contains(err.Error(), "unsupported document schema 2") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = DecodeGraph(&GraphDocument{
		Schema: DocumentSchema,
		Nodes:  []NodeDocument{{ID: "a", Type: "teleport"}},
	}, reg)
	if err == nil || !strings.Contains(err.Error(), `node "a": unknown node type "teleport"`) {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = DecodeGraph(&GraphDocument{
		Schema: DocumentSchema,
		Nodes: []NodeDocument{
			{ID: "a", Type: "mouse_click", Config: map[string]any{"clicks": 99.0}},
		},
	}, reg)
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "clicks" {
		t.Fatalf("expected a clicks config error, got %v", err)
	}
	if !strings.Contains(err.Error(), `node "a"`) {
		t.Fatalf("error must name the node: %v", err)
	}

	_, err = DecodeGraph(&GraphDocument{
		Schema: DocumentSchema,
		Nodes:  []NodeDocument{{ID: "a", Type: "mouse_click"}},
		Edges:  []EdgeDocument{{Source: "a", Target: "ghost"}},
	}, reg)
	var gerr *GraphError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected a graph error, got %v", err)
	}
}

// Documents saved mid-edit decode even when they would not run; only
// the caller decides when runnability matters.
func TestDecodeGraphDoesNotValidate(t *testing.T) {
	reg := NewRegistry()

	g, err := DecodeGraph(&GraphDocument{
		Schema: DocumentSchema,
		Nodes: []NodeDocument{
			{ID: "cond", Type: "condition_equals"},
			{ID: "orphan", Type: "mouse_click"},
		},
	}, reg)
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("unexpected node count %d", g.Len())
	}
	if err := g.Validate(); err == nil {
		t.Fatal("the partial document must still fail validation")
	}
}
