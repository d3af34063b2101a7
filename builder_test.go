package flowgrid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraphBuilder_BuildLinear(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		Node("click", "mouse_click", map[string]any{"x": 10, "y": 20}).
		Then("type", "keyboard_input", map[string]any{"text": "hi"}).
		Then("enter", "key_press", map[string]any{"key": "enter"}).
		Build()
	require.NoError(t, err)
	require.NotNil(t, g)

	require.Equal(t, 3, g.Len())
	require.Len(t, g.Edges(), 2)
	require.Equal(t, []NodeID{"click"}, g.EntryNodes())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	require.Equal(t, []NodeID{"click", "type", "enter"}, order)
}

func TestGraphBuilder_BranchWiring(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		Node("check", "condition_greater", map[string]any{"left": "5", "right": "3"}).
		Then("decide", "if_condition", nil).
		Edge("check", 1, "decide", 1).
		Node("yes", "keyboard_input", map[string]any{"text": "yes"}).
		Node("no", "keyboard_input", map[string]any{"text": "no"}).
		Edge("decide", 0, "yes", 0).
		Edge("decide", 1, "no", 0).
		Build()
	require.NoError(t, err)

	// 5 > 3, so the run takes the true path.
	run, err := Run(context.Background(), g, NopRuntime{})
	require.NoError(t, err)
	require.Equal(t, 3, run.Steps())

	_, yesRan := run.Result("yes")
	_, noRan := run.Result("no")
	require.True(t, yesRan, "true path should have executed")
	require.False(t, noRan, "false path should not have executed")
}

func TestGraphBuilder_CollectsConfigError(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		Node("click", "mouse_click", map[string]any{"x": 10, "clicks": 0}).
		Build()
	require.Nil(t, g, "graph should be withheld on error")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "clicks", cfgErr.Field)
}

func TestGraphBuilder_CollectsEdgeError(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().
		Node("click", "mouse_click", nil).
		Edge("click", 0, "ghost", 0).
		Build()
	require.Error(t, err)

	var graphErr *GraphError
	require.True(t, errors.As(err, &graphErr))
}

func TestGraphBuilder_FirstErrorWins(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().
		Node("a", "no_such_type", nil).
		Node("b", "mouse_click", map[string]any{"clicks": 0}).
		Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no_such_type")
}

func TestGraphBuilder_ValidationFailure(t *testing.T) {
	t.Parallel()

	// Two disconnected nodes: two entry nodes, invalid.
	g, err := NewBuilder().
		Node("a", "mouse_click", nil).
		Node("b", "keyboard_input", nil).
		Build()
	require.Nil(t, g)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Contains(t, execErr.Reason, "exactly one entry node")
}

func TestGraphBuilder_TitleAndConfigure(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		Node("click", "mouse_click", map[string]any{"x": 10}).
		Title("First Click").
		Configure("click", map[string]any{"y": 99}).
		Build()
	require.NoError(t, err)

	n, ok := g.Node("click")
	require.True(t, ok)
	require.Equal(t, "First Click", n.Title())
	require.Equal(t, 99, n.Config()["y"])
}

func TestGraphBuilder_ConfigureUnknownNode(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().
		Node("click", "mouse_click", nil).
		Configure("ghost", map[string]any{"x": 1}).
		Build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown node")
}

func TestGraphBuilder_PanicsOnMisuse(t *testing.T) {
	t.Parallel()

	requirePanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	requirePanic("empty id", func() {
		NewBuilder().Node("", "mouse_click", nil)
	})
	requirePanic("empty type", func() {
		NewBuilder().Node("a", "", nil)
	})
	requirePanic("Then before Node", func() {
		NewBuilder().Then("a", "mouse_click", nil)
	})
	requirePanic("MustBuild on invalid graph", func() {
		NewBuilder().
			Node("a", "mouse_click", map[string]any{"clicks": 0}).
			MustBuild()
	})
}
