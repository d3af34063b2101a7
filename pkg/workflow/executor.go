package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSteps is the per-run ceiling on node executions when
// ExecutorConfig.MaxSteps is zero. It defends against runaway loops
// even when each loop is individually bounded.
const DefaultMaxSteps = 10000

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Runtime performs the node effects. Defaults to NopRuntime.
	Runtime Runtime

	// Observer receives run and node lifecycle callbacks.
	// Defaults to NoopObserver.
	Observer Observer

	// MaxSteps caps the number of node executions in one run.
	// Defaults to DefaultMaxSteps.
	MaxSteps int
}

// Executor runs workflow graphs: it validates the graph, then walks
// forward from the entry node one node at a time, following each
// node's DetermineNext decision and the loop tail map.
//
// Execution is strictly sequential. Cancellation is cooperative: the
// context is polled between steps only, so a node effect already in
// progress must finish or time out on its own.
type Executor struct {
	cfg ExecutorConfig
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Runtime == nil {
		cfg.Runtime = NopRuntime{}
	}
	if cfg.Observer == nil {
		cfg.Observer = NoopObserver{}
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return &Executor{cfg: cfg}
}

// Run executes g and returns the run's context of recorded results.
// The first failure stops the run; the returned error is always an
// *ExecutionError describing the node, port, or expression at fault.
func (x *Executor) Run(ctx context.Context, g *Graph) (*Context, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	tails := g.tailMap()
	run := newContext(uuid.NewString())
	obs := x.cfg.Observer
	obs.OnRunStart(ctx, run.runID, g)

	current := g.EntryNodes()[0]
	for current != "" {
		select {
		case <-ctx.Done():
			err := &ExecutionError{Reason: "cancelled", Err: ctx.Err()}
			obs.OnRunFailed(ctx, run.runID, err)
			return nil, err
		default:
		}

		run.steps++
		if run.steps > x.cfg.MaxSteps {
			err := &ExecutionError{Reason: fmt.Sprintf("step limit exceeded (max %d)", x.cfg.MaxSteps)}
			obs.OnRunFailed(ctx, run.runID, err)
			return nil, err
		}

		node, ok := g.Node(current)
		if !ok {
			err := &ExecutionError{NodeID: current, Reason: fmt.Sprintf("unknown node %q", current)}
			obs.OnRunFailed(ctx, run.runID, err)
			return nil, err
		}

		obs.OnNodeStart(ctx, run.runID, node, run.steps)
		start := time.Now()
		result, err := node.Execute(ctx, g, run, x.cfg.Runtime)
		obs.OnNodeCompleted(ctx, run.runID, node, run.steps, err, time.Since(start))
		if err != nil {
			werr := wrapNodeError(node, err)
			obs.OnRunFailed(ctx, run.runID, werr)
			return nil, werr
		}
		run.Record(current, result)

		next, err := node.DetermineNext(g, run)
		if err != nil {
			werr := wrapNodeError(node, err)
			obs.OnRunFailed(ctx, run.runID, werr)
			return nil, werr
		}
		// A loop's tail target hands control back to the owning loop,
		// whatever the node itself decided.
		if owner, ok := tails[current]; ok {
			next = owner
		}
		current = next
	}

	obs.OnRunCompleted(ctx, run.runID, run.steps)
	return run, nil
}

func wrapNodeError(n Node, err error) *ExecutionError {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	return &ExecutionError{NodeID: n.ID(), NodeTitle: n.Title(), Reason: "failed", Err: err}
}
