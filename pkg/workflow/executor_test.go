package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/testutil"
	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// captureObserver counts lifecycle callbacks and remembers the order
// nodes were started in.
type captureObserver struct {
	workflow.NoopObserver

	mu        sync.Mutex
	runStarts int
	completed int
	failed    int
	failedErr error
	lastSteps int
	nodeSeq   []workflow.NodeID
	nodeDone  int
}

func (o *captureObserver) OnRunStart(ctx context.Context, runID string, g *workflow.Graph) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runStarts++
}

func (o *captureObserver) OnRunCompleted(ctx context.Context, runID string, steps int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
	o.lastSteps = steps
}

func (o *captureObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
	o.failedErr = err
}

func (o *captureObserver) OnNodeStart(ctx context.Context, runID string, n workflow.Node, step int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nodeSeq = append(o.nodeSeq, n.ID())
}

func (o *captureObserver) OnNodeCompleted(ctx context.Context, runID string, n workflow.Node, step int, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nodeDone++
}

func addNode(t *testing.T, g *workflow.Graph, reg *workflow.Registry, typ string, id workflow.NodeID, cfg map[string]any) {
	t.Helper()
	n, err := reg.NewWithConfig(typ, id, "", cfg)
	require.NoError(t, err, "new %s node", typ)
	require.NoError(t, g.AddNode(n), "add node %s", id)
}

func wire(t *testing.T, g *workflow.Graph, source workflow.NodeID, sourcePort int, target workflow.NodeID, targetPort int) {
	t.Helper()
	require.NoError(t, g.AddEdge(source, sourcePort, target, targetPort), "edge %s:%d -> %s:%d", source, sourcePort, target, targetPort)
}

func TestExecutorRunsLinearChain(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "mouse_click", "click", map[string]any{"x": 10, "y": 20})
	addNode(t, g, reg, "keyboard_input", "type", map[string]any{"text": "hi", "interval": 0.0})
	addNode(t, g, reg, "key_press", "enter", nil)
	wire(t, g, "click", 0, "type", 0)
	wire(t, g, "type", 0, "enter", 0)

	rt := &testutil.ScriptedRuntime{}
	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt, Observer: obs}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")
	require.Equal(t, 3, run.Steps(), "one step per node")

	calls := rt.Calls()
	require.Len(t, calls, 3, "one effect per node")
	require.Equal(t, "MouseClick(10,20,left,1)", calls[0], "click effect")
	require.Equal(t, `TypeText("hi")`, calls[1], "type effect")
	require.Equal(t, "PressKey(enter,1)", calls[2], "press effect")

	require.Equal(t, []workflow.NodeID{"click", "type", "enter"}, obs.nodeSeq, "visit order")
	require.Equal(t, 1, obs.runStarts, "exactly one OnRunStart")
	require.Equal(t, 1, obs.completed, "exactly one OnRunCompleted")
	require.Equal(t, 0, obs.failed, "no OnRunFailed")
	require.Equal(t, 3, obs.nodeDone, "OnNodeCompleted per step")
	require.Equal(t, 3, obs.lastSteps, "completed callback carries the step count")
	require.NotEmpty(t, run.RunID(), "runs get an id")
}

func TestExecutorBranchFollowsConditionResult(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		right string
		want  string
		skip  string
	}{
		{name: "equal takes true", right: "5", want: `TypeText("yes")`, skip: `TypeText("no")`},
		{name: "unequal takes false", right: "6", want: `TypeText("no")`, skip: `TypeText("yes")`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg := workflow.NewRegistry()
			g := workflow.NewGraph()
			addNode(t, g, reg, "condition_equals", "cond", map[string]any{"left": "5", "right": tc.right})
			addNode(t, g, reg, "if_condition", "decide", nil)
			addNode(t, g, reg, "keyboard_input", "yes", map[string]any{"text": "yes"})
			addNode(t, g, reg, "keyboard_input", "no", map[string]any{"text": "no"})
			wire(t, g, "cond", 0, "decide", 0)
			wire(t, g, "cond", 1, "decide", 1)
			wire(t, g, "decide", 0, "yes", 0)
			wire(t, g, "decide", 1, "no", 0)

			rt := &testutil.ScriptedRuntime{}
			run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(context.Background(), g)
			require.NoError(t, err, "run should complete")
			require.Equal(t, 3, run.Steps(), "cond, branch, one leaf")
			require.Equal(t, 1, rt.Count(tc.want), "chosen leaf runs")
			require.Equal(t, 0, rt.Count(tc.skip), "other leaf is skipped")

			res, ok := run.Result("decide")
			require.True(t, ok, "branch records its decision")
			require.Equal(t, tc.right == "5", res, "decision value")
		})
	}
}

func TestExecutorBranchEvaluatesOwnExpression(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "mouse_click", "start", nil)
	addNode(t, g, reg, "if_condition", "decide", map[string]any{"expression": "2 + 3 * 4 == 14"})
	addNode(t, g, reg, "keyboard_input", "yes", map[string]any{"text": "yes"})
	addNode(t, g, reg, "keyboard_input", "no", map[string]any{"text": "no"})
	wire(t, g, "start", 0, "decide", 0)
	wire(t, g, "decide", 0, "yes", 0)
	wire(t, g, "decide", 1, "no", 0)

	rt := &testutil.ScriptedRuntime{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")
	require.Equal(t, 1, rt.Count(`TypeText("yes")`), "expression decides the branch")

	res, _ := run.Result("decide")
	require.Equal(t, true, res, "recorded decision")
}

func TestExecutorForLoop(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "for_loop", "count", map[string]any{"start": 0, "end": 3, "step": 1})
	addNode(t, g, reg, "keyboard_input", "body", map[string]any{"text": "pass"})
	wire(t, g, "count", 1, "body", 0)
	wire(t, g, "count", 2, "body", 0)

	rt := &testutil.ScriptedRuntime{}
	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt, Observer: obs}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")
	require.Equal(t, 7, run.Steps(), "four loop visits, three body passes")
	require.Equal(t, 3, rt.Count("TypeText"), "body runs once per iteration")
	require.Equal(t, []workflow.NodeID{
		"count", "body", "count", "body", "count", "body", "count",
	}, obs.nodeSeq, "loop alternates with its body")

	res, ok := run.Result("count")
	require.True(t, ok, "loop records its state")
	m := res.(map[string]any)
	require.Equal(t, true, m["completed"], "terminal visit marks completion")
	require.Equal(t, false, m["should_continue"], "terminal visit stops the loop")
	require.Equal(t, 3, m["iteration"], "three iterations")

	st, ok := run.LoopState("count")
	require.True(t, ok, "loop state is kept")
	require.True(t, st.Completed, "state marks completion")
	require.Equal(t, 3, st.Iteration, "state iteration count")
}

// Every body pass checks that the loop's current value equals
// iteration-1; a wrong or out-of-order value would divert the branch
// and end the run early. Completing all passes therefore proves the
// loop yielded 0, 1, 2 in order.
func TestExecutorForLoopValueSequence(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "for_loop", "count", map[string]any{"start": 0, "end": 3, "step": 1})
	addNode(t, g, reg, "condition_equals", "check", map[string]any{
		"left":  "value('count').value",
		"right": "value('count').iteration - 1",
	})
	addNode(t, g, reg, "if_condition", "decide", nil)
	addNode(t, g, reg, "keyboard_input", "good", map[string]any{"text": "ok"})
	addNode(t, g, reg, "keyboard_input", "bad", map[string]any{"text": "bad"})
	wire(t, g, "count", 1, "check", 0)
	wire(t, g, "check", 0, "decide", 0)
	wire(t, g, "check", 1, "decide", 1)
	wire(t, g, "decide", 0, "good", 0)
	wire(t, g, "decide", 1, "bad", 0)
	wire(t, g, "count", 2, "good", 0)

	rt := &testutil.ScriptedRuntime{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")
	require.Equal(t, 13, run.Steps(), "three full body passes plus four loop visits")
	require.Equal(t, 3, rt.Count(`TypeText("ok")`), "every pass saw the expected value")
	require.Equal(t, 0, rt.Count(`TypeText("bad")`), "no pass saw a wrong value")
}

func TestExecutorWhileLoopCompletes(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "while_loop", "loop", map[string]any{"condition": "iteration < 3"})
	addNode(t, g, reg, "keyboard_input", "body", map[string]any{"text": "pass"})
	wire(t, g, "loop", 1, "body", 0)
	wire(t, g, "loop", 2, "body", 0)

	rt := &testutil.ScriptedRuntime{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")
	require.Equal(t, 7, run.Steps(), "three iterations plus the terminal visit")
	require.Equal(t, 3, rt.Count("TypeText"), "three body passes")

	res, _ := run.Result("loop")
	m := res.(map[string]any)
	require.Equal(t, false, m["condition"], "terminal guard evaluation")
	require.Equal(t, 3, m["iteration"], "iterations run")
}

func TestExecutorWhileLoopMaxIterations(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "while_loop", "loop", map[string]any{"condition": "1 < 2", "max_iterations": 5})
	addNode(t, g, reg, "keyboard_input", "body", map[string]any{"text": "pass"})
	wire(t, g, "loop", 1, "body", 0)
	wire(t, g, "loop", 2, "body", 0)

	rt := &testutil.ScriptedRuntime{}
	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt, Observer: obs}).Run(context.Background(), g)
	require.Error(t, err, "unbounded guard must trip the iteration cap")
	require.Nil(t, run, "failed runs return no context")

	var xerr *workflow.ExecutionError
	require.ErrorAs(t, err, &xerr, "typed execution error")
	require.Equal(t, workflow.NodeID("loop"), xerr.NodeID, "error names the loop")
	require.Contains(t, err.Error(), "loop exceeded maximum of 5 iterations", "cap message")

	require.Equal(t, 5, rt.Count("TypeText"), "five full iterations before the sixth guard trips")
	require.Equal(t, 1, obs.failed, "exactly one OnRunFailed")
	require.Equal(t, 0, obs.completed, "no OnRunCompleted")
	require.Equal(t, 11, len(obs.nodeSeq), "failure happens on the sixth loop visit")
}

func TestExecutorCancellation(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "mouse_click", "click", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Observer: obs}).Run(ctx, g)
	require.Error(t, err, "cancelled context stops the run")
	require.Nil(t, run, "no context on failure")
	require.ErrorIs(t, err, context.Canceled, "cause is preserved")

	var xerr *workflow.ExecutionError
	require.ErrorAs(t, err, &xerr, "typed execution error")
	require.Equal(t, "cancelled", xerr.Reason, "cancellation reason")

	require.Equal(t, 1, obs.runStarts, "run start fires before the first poll")
	require.Equal(t, 1, obs.failed, "failure is reported")
	require.Empty(t, obs.nodeSeq, "no node executes")
}

func TestExecutorStepLimit(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "for_loop", "count", map[string]any{"start": 0, "end": 50, "step": 1})
	addNode(t, g, reg, "keyboard_input", "body", nil)
	wire(t, g, "count", 1, "body", 0)
	wire(t, g, "count", 2, "body", 0)

	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Observer: obs, MaxSteps: 5}).Run(context.Background(), g)
	require.Error(t, err, "step ceiling must trip")
	require.Nil(t, run, "no context on failure")
	require.Contains(t, err.Error(), "step limit exceeded (max 5)", "limit message")
	require.Len(t, obs.nodeSeq, 5, "exactly MaxSteps nodes ran")
}

func TestExecutorValidatesBeforeRunning(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "mouse_click", "a", nil)
	addNode(t, g, reg, "mouse_click", "b", nil)

	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Observer: obs}).Run(context.Background(), g)
	require.Error(t, err, "invalid graphs are rejected")
	require.Nil(t, run, "no context on failure")
	require.Contains(t, err.Error(), "exactly one entry node", "validation message")
	require.Equal(t, 0, obs.runStarts, "validation failures never start a run")
}

func TestExecutorNodeFailureStopsRun(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "run_command", "sh", map[string]any{"command": "deploy"})
	addNode(t, g, reg, "keyboard_input", "never", nil)
	wire(t, g, "sh", 0, "never", 0)

	rt := &testutil.ScriptedRuntime{Commands: []workflow.CommandResult{{ExitCode: 1, Stderr: "denied"}}}
	obs := &captureObserver{}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt, Observer: obs}).Run(context.Background(), g)
	require.Error(t, err, "failing node stops the run")
	require.Nil(t, run, "no context on failure")

	var xerr *workflow.ExecutionError
	require.ErrorAs(t, err, &xerr, "typed execution error")
	require.Equal(t, workflow.NodeID("sh"), xerr.NodeID, "error names the failing node")
	require.Contains(t, err.Error(), "command exited with code 1: denied", "effect error is preserved")

	require.Equal(t, []workflow.NodeID{"sh"}, obs.nodeSeq, "downstream nodes never run")
	require.Equal(t, 1, obs.nodeDone, "completion callback fires with the error")
	require.Equal(t, 1, obs.failed, "failure is reported once")
}

func TestExecutorResultsFlowIntoExpressions(t *testing.T) {
	t.Parallel()

	reg := workflow.NewRegistry()
	g := workflow.NewGraph()
	addNode(t, g, reg, "pixel_color", "probe", map[string]any{"x": 3, "y": 4})
	addNode(t, g, reg, "condition_less", "dim", map[string]any{
		"left":  "value('probe').r + value('probe').g + value('probe').b",
		"right": "384",
	})
	addNode(t, g, reg, "keyboard_input", "after", nil)
	wire(t, g, "probe", 0, "dim", 0)
	wire(t, g, "dim", 0, "after", 0)
	// The boolean result must land somewhere for the graph to be valid.
	addNode(t, g, reg, "if_condition", "decide", nil)
	addNode(t, g, reg, "keyboard_input", "yes", nil)
	addNode(t, g, reg, "keyboard_input", "no", nil)
	wire(t, g, "dim", 1, "decide", 1)
	wire(t, g, "after", 0, "decide", 0)
	wire(t, g, "decide", 0, "yes", 0)
	wire(t, g, "decide", 1, "no", 0)

	rt := &testutil.ScriptedRuntime{Colors: []workflow.RGB{{R: 10, G: 20, B: 30}}}
	run, err := workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(context.Background(), g)
	require.NoError(t, err, "run should complete")

	res, ok := run.Result("dim")
	require.True(t, ok, "condition records its evaluation")
	m := res.(map[string]any)
	require.Equal(t, true, m["condition"], "60 is less than 384")
	require.EqualValues(t, 60, m["left"], "left operand sums the recorded channels")
}
