package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// NodeID uniquely identifies a node within a graph.
type NodeID string

// Kind is the variant tag validation and execution branch on. The set
// is closed; there is no way to add a kind from outside the package.
type Kind string

const (
	KindAction    Kind = "action"
	KindCondition Kind = "condition"
	KindBranch    Kind = "branch"
	KindLoop      Kind = "loop"
)

// Node is the contract every workflow node implements.
//
// The interface is sealed: the unexported clone method restricts
// implementations to this package, keeping the variant set closed so
// Graph.Validate can reason about every kind exhaustively. New node
// behaviour is added through the Registry catalogue, not by
// implementing Node elsewhere.
type Node interface {
	ID() NodeID
	Title() string
	SetTitle(title string)

	// Type is the node's persisted type tag, e.g. "mouse_click".
	Type() string
	// Category is the presentation group, e.g. "Mouse".
	Category() string
	Kind() Kind

	// Config returns a copy of the current configuration.
	Config() map[string]any
	// Configure merges patch over the current configuration and
	// revalidates. On failure the configuration is left unchanged.
	Configure(patch map[string]any) error
	ValidateConfig() error
	// ConfigSchema declares the fields Configure accepts, for the
	// external editor's form generation.
	ConfigSchema() []ConfigField

	InputPorts() []string
	OutputPorts() []string

	// Execute performs the node's one effect and returns the result the
	// executor records under the node's ID.
	Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error)
	// DetermineNext returns the node to run after this one, or "" to
	// end the path.
	DetermineNext(g *Graph, run *Context) (NodeID, error)

	clone() Node
}

// nodeSpec is the registry's immutable description of one node type.
type nodeSpec struct {
	typ      string
	display  string
	category string
	kind     Kind
	inputs   []string
	outputs  []string
	fields   []ConfigField
	// check runs cross-field validation after the per-field checks.
	check func(cfg map[string]any) error
	build func(b baseNode) Node
}

// baseNode carries the state and behaviour shared by every variant.
type baseNode struct {
	id     NodeID
	title  string
	spec   *nodeSpec
	config map[string]any
}

func (b *baseNode) ID() NodeID        { return b.id }
func (b *baseNode) Title() string     { return b.title }
func (b *baseNode) SetTitle(t string) { b.title = t }
func (b *baseNode) Type() string      { return b.spec.typ }
func (b *baseNode) Category() string  { return b.spec.category }
func (b *baseNode) Kind() Kind        { return b.spec.kind }

func (b *baseNode) Config() map[string]any {
	return cloneConfig(b.config)
}

func (b *baseNode) ValidateConfig() error {
	if err := validateFields(b.config, b.spec.fields); err != nil {
		return err
	}
	if b.spec.check != nil {
		return b.spec.check(b.config)
	}
	return nil
}

func (b *baseNode) Configure(patch map[string]any) error {
	next := cloneConfig(b.config)
	for k, v := range patch {
		next[k] = v
	}
	if err := validateFields(next, b.spec.fields); err != nil {
		return err
	}
	if b.spec.check != nil {
		if err := b.spec.check(next); err != nil {
			return err
		}
	}
	b.config = next
	return nil
}

func (b *baseNode) ConfigSchema() []ConfigField {
	out := make([]ConfigField, len(b.spec.fields))
	copy(out, b.spec.fields)
	return out
}

func (b *baseNode) InputPorts() []string {
	out := make([]string, len(b.spec.inputs))
	copy(out, b.spec.inputs)
	return out
}

func (b *baseNode) OutputPorts() []string {
	out := make([]string, len(b.spec.outputs))
	copy(out, b.spec.outputs)
	return out
}

func (b *baseNode) cloneBase() baseNode {
	return baseNode{id: b.id, title: b.title, spec: b.spec, config: cloneConfig(b.config)}
}

// Typed accessors for validated config values. Validation has already
// normalised the types, so failed assertions yield zero values only for
// keys that were never declared.

func (b *baseNode) intConfig(key string) int {
	v, _ := coerceInt(b.config[key])
	return v
}

func (b *baseNode) floatConfig(key string) float64 {
	v, _ := coerceFloat(b.config[key])
	return v
}

func (b *baseNode) stringConfig(key string) string {
	s, _ := b.config[key].(string)
	return s
}

func (b *baseNode) boolConfig(key string) bool {
	v, _ := b.config[key].(bool)
	return v
}

// newNode builds a node of the given spec: defaults merged under the
// supplied config, then validated. A nil config yields the defaults.
func newNode(spec *nodeSpec, id NodeID, title string, config map[string]any) (Node, error) {
	if id == "" {
		return nil, &ConfigError{Field: "id", Reason: "node id must not be empty"}
	}
	cfg := defaultsOf(spec.fields)
	for k, v := range config {
		cfg[k] = v
	}
	if title == "" {
		title = spec.display
	}
	n := spec.build(baseNode{id: id, title: title, spec: spec, config: cfg})
	if err := n.ValidateConfig(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewNodeID generates an id in the editor's format: the type tag's
// first segment followed by six hex characters, e.g. "mouse_3fa91c".
func NewNodeID(nodeType string) NodeID {
	prefix := nodeType
	if i := strings.IndexByte(nodeType, '_'); i > 0 {
		prefix = nodeType[:i]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return NodeID(prefix + "_" + suffix)
}

// followOutput resolves the target wired to one of a node's outputs,
// or "" when the port is unconnected.
func followOutput(g *Graph, id NodeID, port int) NodeID {
	if e, ok := g.EdgeFrom(id, port); ok {
		return e.Target
	}
	return ""
}

// effectFunc is an action node's single side effect.
type effectFunc func(n *actionNode, ctx context.Context, run *Context, rt Runtime) (any, error)

// actionNode is the leaf variant: one control input, one continuation
// output, an unconditional next.
type actionNode struct {
	baseNode
	effect effectFunc
}

var _ Node = (*actionNode)(nil)

func (n *actionNode) Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error) {
	return n.effect(n, ctx, run, rt)
}

func (n *actionNode) DetermineNext(g *Graph, run *Context) (NodeID, error) {
	return followOutput(g, n.id, 0), nil
}

func (n *actionNode) clone() Node {
	return &actionNode{baseNode: n.cloneBase(), effect: n.effect}
}
