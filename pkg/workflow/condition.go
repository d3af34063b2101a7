package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/expr"
)

const categoryLogic = "Logic"

// checkExpression compiles the expression stored under key, reporting
// syntax and sandbox violations as configuration errors.
func checkExpression(cfg map[string]any, key string) error {
	src, _ := cfg[key].(string)
	if _, err := expr.Compile(src); err != nil {
		return &ConfigError{Field: key, Reason: err.Error()}
	}
	return nil
}

func evalExpression(src string, env expr.Env) (any, error) {
	out, err := expr.Eval(src, env)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	return out, nil
}

type compareOp int

const (
	opEquals compareOp = iota
	opNotEquals
	opGreater
	opGreaterEqual
	opLess
	opLessEqual
	opContains
)

// conditionNode evaluates two configured expressions and compares them.
// Output 0 carries control to the next node; output 1 carries the
// boolean result into a branch node's condition input.
type conditionNode struct {
	baseNode
	op compareOp
}

var _ Node = (*conditionNode)(nil)

func (n *conditionNode) Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error) {
	env := run.Env()
	left, err := evalExpression(n.stringConfig("left"), env)
	if err != nil {
		return nil, err
	}
	right, err := evalExpression(n.stringConfig("right"), env)
	if err != nil {
		return nil, err
	}
	ok, err := n.compare(left, right)
	if err != nil {
		return nil, err
	}
	return map[string]any{"condition": ok, "left": left, "right": right}, nil
}

func (n *conditionNode) compare(left, right any) (bool, error) {
	switch n.op {
	case opEquals:
		return expr.Equal(left, right), nil
	case opNotEquals:
		return !expr.Equal(left, right), nil
	case opContains:
		return expr.Contains(left, right)
	}
	l, lok := expr.Number(left)
	r, rok := expr.Number(right)
	if !lok || !rok {
		return false, fmt.Errorf("%s requires numeric operands, got %T and %T", n.spec.typ, left, right)
	}
	switch n.op {
	case opGreater:
		return l > r, nil
	case opGreaterEqual:
		return l >= r, nil
	case opLess:
		return l < r, nil
	case opLessEqual:
		return l <= r, nil
	}
	return false, fmt.Errorf("unknown comparison operator %d", n.op)
}

func (n *conditionNode) DetermineNext(g *Graph, run *Context) (NodeID, error) {
	return followOutput(g, n.id, 0), nil
}

func (n *conditionNode) clone() Node {
	return &conditionNode{baseNode: n.cloneBase(), op: n.op}
}

func conditionSpec(typ, display string, op compareOp) *nodeSpec {
	spec := &nodeSpec{
		typ:      typ,
		display:  display,
		category: categoryLogic,
		kind:     KindCondition,
		inputs:   []string{"execute"},
		outputs:  []string{"next", "result"},
		fields: []ConfigField{
			{Key: "left", Label: "Left Expression", Kind: FieldString, Required: true, Default: "0"},
			{Key: "right", Label: "Right Expression", Kind: FieldString, Required: true, Default: "0"},
		},
		check: func(cfg map[string]any) error {
			if err := checkExpression(cfg, "left"); err != nil {
				return err
			}
			return checkExpression(cfg, "right")
		},
	}
	spec.build = func(b baseNode) Node {
		return &conditionNode{baseNode: b, op: op}
	}
	return spec
}

func conditionSpecs() []*nodeSpec {
	return []*nodeSpec{
		conditionSpec("condition_equals", "Equals", opEquals),
		conditionSpec("condition_not_equals", "Not Equals", opNotEquals),
		conditionSpec("condition_greater", "Greater Than", opGreater),
		conditionSpec("condition_greater_equal", "Greater or Equal", opGreaterEqual),
		conditionSpec("condition_less", "Less Than", opLess),
		conditionSpec("condition_less_equal", "Less or Equal", opLessEqual),
		conditionSpec("condition_contains", "Contains", opContains),
	}
}

// branchNode selects between its two outputs. The boolean comes from
// the wired condition input when present, otherwise from the node's own
// expression.
type branchNode struct {
	baseNode
}

var _ Node = (*branchNode)(nil)

func (n *branchNode) Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error) {
	if e, ok := g.EdgeInto(n.id, 1); ok {
		res, ok := run.Result(e.Source)
		if !ok {
			return nil, fmt.Errorf("condition node %q has not run", e.Source)
		}
		m, ok := res.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition node %q recorded %T, want a condition result", e.Source, res)
		}
		b, ok := m["condition"].(bool)
		if !ok {
			return nil, fmt.Errorf("condition node %q recorded no boolean", e.Source)
		}
		return b, nil
	}
	src := n.stringConfig("expression")
	if src == "" {
		return nil, errors.New("no condition input wired and no expression configured")
	}
	out, err := evalExpression(src, run.Env())
	if err != nil {
		return nil, err
	}
	return expr.Truth(out), nil
}

func (n *branchNode) DetermineNext(g *Graph, run *Context) (NodeID, error) {
	res, ok := run.Result(n.id)
	if !ok {
		return "", fmt.Errorf("branch %q has no recorded result", n.id)
	}
	b, ok := res.(bool)
	if !ok {
		return "", fmt.Errorf("branch %q recorded %T, want bool", n.id, res)
	}
	if b {
		return followOutput(g, n.id, 0), nil
	}
	return followOutput(g, n.id, 1), nil
}

func (n *branchNode) clone() Node {
	return &branchNode{baseNode: n.cloneBase()}
}

func branchSpecs() []*nodeSpec {
	spec := &nodeSpec{
		typ:      "if_condition",
		display:  "If",
		category: categoryLogic,
		kind:     KindBranch,
		inputs:   []string{"execute", "condition"},
		outputs:  []string{"true", "false"},
		fields: []ConfigField{
			{Key: "expression", Label: "Expression", Kind: FieldString, Default: ""},
		},
		check: func(cfg map[string]any) error {
			if src, _ := cfg["expression"].(string); src != "" {
				return checkExpression(cfg, "expression")
			}
			return nil
		},
	}
	spec.build = func(b baseNode) Node { return &branchNode{baseNode: b} }
	return []*nodeSpec{spec}
}
