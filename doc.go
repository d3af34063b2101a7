// Package flowgrid provides an embeddable workflow graph engine for Go.
//
// Flowgrid models desktop-automation workflows as directed graphs of
// typed nodes (mouse and keyboard actions, screen queries, comparisons,
// branches, and bounded loops) and executes them one node at a time over
// a pluggable Runtime. It contains no automation code itself: the engine
// validates graphs, evaluates condition expressions in a sandboxed
// interpreter, and walks control flow, while an external backend supplies
// the actual input synthesis and screen capture.
//
// # Core Concepts
//
// The programming model is small:
//
//  1. Node and Registry
//  2. Graph
//  3. Executor and Runtime
//  4. Expressions
//  5. Runner
//  6. Library
//
// # Node and Registry
//
// A Node is one unit of work with typed ports: a fixed list of named
// inputs and outputs identified by index. Input 0 is the control input;
// output 0 is the success continuation. Condition nodes add a "result"
// output, branch nodes a second "condition" input and a "false" output,
// loop nodes "body" and "tail" outputs.
//
// Nodes are created through the Registry, the immutable catalogue of all
// built-in types:
//
//	reg := flowgrid.NewRegistry()
//	n, err := reg.NewWithConfig("mouse_click", "click_1", "", map[string]any{
//	    "x": 100, "y": 200, "button": "left",
//	})
//
// Every type declares a ConfigSchema of field kinds, bounds, and choices
// that editor frontends render as forms, and every config change goes
// through ValidateConfig, so a constructed node is always well-formed.
//
// # Graph
//
// A Graph owns nodes and directed, port-indexed edges. Structural rules
// are enforced at AddEdge time (one edge per output, one per input,
// condition results only into branch condition inputs, no self-edges),
// and Validate checks the whole-graph invariants: exactly one entry
// node, everything reachable from it, required ports wired, and no
// cycles beyond the sanctioned loop tails.
//
// Graphs can be assembled three ways: directly through AddNode/AddEdge,
// fluently through GraphBuilder, or decoded from the editor's JSON
// document format with DecodeGraph.
//
// # Executor and Runtime
//
// The Executor walks a validated graph from its entry node, asking each
// node for its effect and its successor. Effects run against the
// Runtime interface (mouse, keyboard, screen, shell), so the engine
// stays testable and portable:
//
//	exec := flowgrid.NewExecutor(flowgrid.ExecutorConfig{
//	    Runtime:  myBackend,
//	    Observer: flowgrid.NewLoggingObserver(nil),
//	})
//	run, err := exec.Run(ctx, g)
//
// Execution is strictly sequential, cancellable between steps through
// the context, and bounded by a global step limit on top of each loop's
// own iteration bound. Observers receive run and node lifecycle
// callbacks; NewLoggingObserver logs them through log/slog and
// BasicMetrics counts them.
//
// # Expressions
//
// Conditions, branch guards, and loop guards are written in a small
// Python-flavoured expression language evaluated by pkg/expr: literals,
// arithmetic, comparisons with chaining, boolean logic, subscripts and
// attributes, and a short allow-list of builtins. The results of
// earlier nodes are reachable as value("nodeID"). Expressions are
// checked against the allow-list when a node is configured, so an
// expression that could not run is rejected before the graph does.
//
// # Runner
//
// Runner executes one graph at a time on a background goroutine with
// Start, Stop, Wait, and IsRunning, which is the shape an editor's run
// button needs. It runs a deep copy of the graph, so the editor may keep
// mutating the original while a run is in flight.
//
// # Library
//
// Library persists named graph documents and run history, in memory or
// in SQLite, and can drive recorded runs end to end:
//
//	lib, err := flowgrid.NewSQLiteLibrary(db)
//	...
//	run, err := lib.Run(ctx, "daily-report", flowgrid.ExecutorConfig{Runtime: rt})
//
// Its Recorder observer can also be attached to any Executor to capture
// run history without handing the whole run to the library.
//
// For complete programs, see the examples directory.
package flowgrid
