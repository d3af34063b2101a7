package workflow

import "fmt"

// Registry is the catalogue of node types. It is fully populated by
// NewRegistry and immutable afterwards, so it is safe to share across
// goroutines and there is no global mutable type table anywhere in the
// package.
type Registry struct {
	specs map[string]*nodeSpec
	order []string
}

// NewRegistry builds the complete built-in catalogue.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]*nodeSpec)}
	for _, group := range [][]*nodeSpec{
		mouseSpecs(),
		keyboardSpecs(),
		visionSpecs(),
		systemSpecs(),
		conditionSpecs(),
		branchSpecs(),
		loopSpecs(),
	} {
		for _, spec := range group {
			r.add(spec)
		}
	}
	return r
}

func (r *Registry) add(spec *nodeSpec) {
	if _, dup := r.specs[spec.typ]; dup {
		panic(fmt.Sprintf("flowgrid: duplicate node type %q", spec.typ))
	}
	r.specs[spec.typ] = spec
	r.order = append(r.order, spec.typ)
}

// Types lists every registered node type tag, in catalogue order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether a node type is registered.
func (r *Registry) Has(nodeType string) bool {
	_, ok := r.specs[nodeType]
	return ok
}

// New constructs a node of the given type with its default title and
// configuration.
func (r *Registry) New(nodeType string, id NodeID) (Node, error) {
	return r.NewWithConfig(nodeType, id, "", nil)
}

// NewWithConfig constructs a node with the defaults merged under the
// supplied config, then validates. An empty title falls back to the
// type's display name.
func (r *Registry) NewWithConfig(nodeType string, id NodeID, title string, config map[string]any) (Node, error) {
	spec, ok := r.specs[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
	return newNode(spec, id, title, config)
}
