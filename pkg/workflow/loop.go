package workflow

import (
	"context"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/expr"
)

// Loop nodes own the graph's only sanctioned cycle. Output 0 is taken
// once the loop finishes, output 1 enters the body, and output 2 is the
// tail edge back from the last body node, which the executor follows to
// revisit the loop.

func loopNext(g *Graph, id NodeID, run *Context) (NodeID, error) {
	st, ok := run.LoopState(id)
	if !ok {
		return "", fmt.Errorf("loop %q has no recorded state", id)
	}
	if st.ShouldContinue {
		return followOutput(g, id, 1), nil
	}
	return followOutput(g, id, 0), nil
}

type whileNode struct {
	baseNode
}

var _ Node = (*whileNode)(nil)

func (n *whileNode) Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error) {
	max := n.intConfig("max_iterations")
	st, _ := run.LoopState(n.id)

	env := run.Env()
	env.Vars = map[string]any{"iteration": st.Iteration}
	out, err := evalExpression(n.stringConfig("condition"), env)
	if err != nil {
		return nil, err
	}
	cond := expr.Truth(out)

	if cond {
		st.Iteration++
		if st.Iteration > max {
			return nil, fmt.Errorf("loop exceeded maximum of %d iterations", max)
		}
		st.ShouldContinue = true
	} else {
		st.ShouldContinue = false
		st.Completed = true
	}
	run.setLoopState(n.id, st)
	return map[string]any{"condition": cond, "iteration": st.Iteration}, nil
}

func (n *whileNode) DetermineNext(g *Graph, run *Context) (NodeID, error) {
	return loopNext(g, n.id, run)
}

func (n *whileNode) clone() Node {
	return &whileNode{baseNode: n.cloneBase()}
}

type forNode struct {
	baseNode
}

var _ Node = (*forNode)(nil)

// inRange reports whether value has not yet passed end in the
// direction of step.
func inRange(value, end, step int) bool {
	if step > 0 {
		return value < end
	}
	return value > end
}

func (n *forNode) Execute(ctx context.Context, g *Graph, run *Context, rt Runtime) (any, error) {
	start := n.intConfig("start")
	end := n.intConfig("end")
	step := n.intConfig("step")
	max := n.intConfig("max_iterations")

	st, ok := run.LoopState(n.id)
	if !ok {
		st = LoopState{Value: start, NextValue: start}
	} else {
		st.Value = st.NextValue
	}
	if inRange(st.Value, end, step) {
		st.Iteration++
		if st.Iteration > max {
			return nil, fmt.Errorf("loop exceeded maximum of %d iterations", max)
		}
		st.ShouldContinue = true
		st.NextValue = st.Value + step
	} else {
		st.ShouldContinue = false
		st.Completed = true
	}
	run.setLoopState(n.id, st)
	return map[string]any{
		"value":           st.Value,
		"iteration":       st.Iteration,
		"next_value":      st.NextValue,
		"should_continue": st.ShouldContinue,
		"completed":       st.Completed,
	}, nil
}

func (n *forNode) DetermineNext(g *Graph, run *Context) (NodeID, error) {
	return loopNext(g, n.id, run)
}

func (n *forNode) clone() Node {
	return &forNode{baseNode: n.cloneBase()}
}

func loopSpecs() []*nodeSpec {
	while := &nodeSpec{
		typ:      "while_loop",
		display:  "While Loop",
		category: categoryFlow,
		kind:     KindLoop,
		inputs:   []string{"execute"},
		outputs:  []string{"finished", "body", "tail"},
		fields: []ConfigField{
			{Key: "condition", Label: "Condition", Kind: FieldString, Required: true, Default: "iteration < 3"},
			{Key: "max_iterations", Label: "Max Iterations", Kind: FieldInt, Min: 1, Max: 1000000, Default: 100},
		},
		check: func(cfg map[string]any) error {
			return checkExpression(cfg, "condition")
		},
	}
	while.build = func(b baseNode) Node { return &whileNode{baseNode: b} }

	forLoop := &nodeSpec{
		typ:      "for_loop",
		display:  "For Loop",
		category: categoryFlow,
		kind:     KindLoop,
		inputs:   []string{"execute"},
		outputs:  []string{"finished", "body", "tail"},
		fields: []ConfigField{
			{Key: "start", Label: "Start", Kind: FieldInt, Default: 0},
			{Key: "end", Label: "End (exclusive)", Kind: FieldInt, Default: 10},
			{Key: "step", Label: "Step", Kind: FieldInt, Default: 1},
			{Key: "max_iterations", Label: "Max Iterations", Kind: FieldInt, Min: 1, Max: 1000000, Default: 100},
		},
		check: func(cfg map[string]any) error {
			if v, _ := coerceInt(cfg["step"]); v == 0 {
				return &ConfigError{Field: "step", Reason: "step must not be zero"}
			}
			return nil
		},
	}
	forLoop.build = func(b baseNode) Node { return &forNode{baseNode: b} }

	return []*nodeSpec{while, forLoop}
}
