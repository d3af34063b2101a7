package workflow

import "github.com/flowgrid/flowgrid/pkg/expr"

// LoopState carries a loop node's iteration state across repeated
// visits within one run.
type LoopState struct {
	// Value is the loop variable for the current body pass (for loops).
	Value int
	// Iteration counts completed guard passes, starting at 1 for the
	// first body pass.
	Iteration int
	// NextValue is the value the next visit will use (for loops).
	NextValue int
	// ShouldContinue reports whether the most recent visit entered the
	// loop body.
	ShouldContinue bool
	// Completed is set on the terminal visit, after which the loop's
	// finished output is taken.
	Completed bool
}

// Context holds the state of one run: the per-node recorded results and
// the loop iteration states. It is created by the executor, owned by
// exactly one run, and never reused.
//
// Loop state lives in its own map rather than the result map so that a
// loop's bookkeeping can never collide with the result a downstream
// node reads through value("...").
type Context struct {
	runID   string
	results map[NodeID]any
	loops   map[NodeID]LoopState
	steps   int
}

func newContext(runID string) *Context {
	return &Context{
		runID:   runID,
		results: make(map[NodeID]any),
		loops:   make(map[NodeID]LoopState),
	}
}

// RunID returns the unique identifier the executor assigned to this run.
func (c *Context) RunID() string { return c.runID }

// Record stores a node's result, replacing any earlier one.
func (c *Context) Record(id NodeID, result any) {
	c.results[id] = result
}

// Result returns the last recorded result for a node.
func (c *Context) Result(id NodeID) (any, bool) {
	v, ok := c.results[id]
	return v, ok
}

// Results returns a copy of all recorded results.
func (c *Context) Results() map[NodeID]any {
	out := make(map[NodeID]any, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// LoopState returns the stored loop state for a node.
func (c *Context) LoopState(id NodeID) (LoopState, bool) {
	st, ok := c.loops[id]
	return st, ok
}

func (c *Context) setLoopState(id NodeID, st LoopState) {
	c.loops[id] = st
}

// Steps returns how many node executions this run has performed.
func (c *Context) Steps() int { return c.steps }

// Env builds the expression environment for this run: value("id")
// resolves to the named node's recorded result.
func (c *Context) Env() expr.Env {
	return expr.Env{
		Value: func(name string) (any, bool) {
			v, ok := c.results[NodeID(name)]
			return v, ok
		},
	}
}
