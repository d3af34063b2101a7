// Package workflow contains the core building blocks of the flowgrid
// automation engine: the node catalogue, the port-indexed workflow
// graph, the expression-driven control-flow nodes, and the executor
// that walks a validated graph.
//
// Most users interact with the higher-level flowgrid package, which
// re-exports selected types and adds a builder, a runner, and a
// persistence facade. The workflow package is intended for custom
// integrations and for contributors extending the engine itself.
//
// # Nodes
//
// Every node implements the Node interface: identity, a persisted type
// tag, a schema-described configuration, fixed input and output ports,
// one execution effect, and a DetermineNext decision. The variant set
// is closed; behaviour is added by registering new specs in the
// catalogue, not by implementing Node elsewhere.
//
// A node's configuration is validated at construction and on every
// Configure call, so a node that exists is always runnable as far as
// its own settings are concerned. ConfigSchema exposes the declared
// fields for external form generation.
//
// # Graph
//
// A Graph connects node output ports to input ports with directed
// edges. Structural rules are enforced on every mutation: port ranges,
// single occupancy, no self-edges, and the semantic pairing between
// condition results and branch inputs. Validate then checks the whole
// graph before a run: exactly one entry node, full reachability, the
// variant-specific required ports, and acyclicity over control-flow
// edges.
//
// The one sanctioned cycle is the loop tail: a loop node's third
// output wired to the last node of its body. The executor recognises
// the tail and hands control back to the owning loop.
//
// # Execution
//
// The Executor walks from the entry node, executing one node at a
// time and following each node's DetermineNext decision. Results are
// recorded in a per-run Context keyed by node id, where condition and
// loop guards can reach them through the expression language's
// value("id") accessor. Runs stop at the first failure with an
// ExecutionError naming the node, port, or expression at fault.
//
// Execution is strictly sequential and cancellation is cooperative:
// the context is polled between steps, never during a node effect.
//
// # Effects and the Runtime
//
// Action nodes perform their effects through the Runtime interface:
// pointer and keyboard events, screen probes, subprocesses, window
// management. The engine never inspects how a Runtime is implemented;
// tests script one, and embedders bring their own.
//
// # Observability
//
// The Observer interface reports run and node lifecycle events.
// Ready-made implementations cover structured logging (log/slog) and
// basic in-memory metrics, and NewCompositeObserver combines several
// observers into one.
package workflow
