package flowgrid

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// Re-export key types so users don't need to dig into pkg/workflow.

type (
	Graph    = workflow.Graph
	Edge     = workflow.Edge
	Node     = workflow.Node
	NodeID   = workflow.NodeID
	Kind     = workflow.Kind
	Registry = workflow.Registry

	Context   = workflow.Context
	LoopState = workflow.LoopState

	Executor       = workflow.Executor
	ExecutorConfig = workflow.ExecutorConfig

	Runtime       = workflow.Runtime
	NopRuntime    = workflow.NopRuntime
	Point         = workflow.Point
	Region        = workflow.Region
	RGB           = workflow.RGB
	CommandResult = workflow.CommandResult

	Observer             = workflow.Observer
	LoggingObserver      = workflow.LoggingObserver
	BasicMetrics         = workflow.BasicMetrics
	BasicMetricsSnapshot = workflow.BasicMetricsSnapshot
	CompositeObserver    = workflow.CompositeObserver
	NoopObserver         = workflow.NoopObserver

	GraphDocument = workflow.GraphDocument
	NodeDocument  = workflow.NodeDocument
	EdgeDocument  = workflow.EdgeDocument
	Position      = workflow.Position

	ConfigField = workflow.ConfigField
	FieldKind   = workflow.FieldKind
	Choice      = workflow.Choice

	ConfigError    = workflow.ConfigError
	GraphError     = workflow.GraphError
	ExecutionError = workflow.ExecutionError
)

// Re-export common constructors and helpers.

var (
	NewGraph             = workflow.NewGraph
	NewRegistry          = workflow.NewRegistry
	NewExecutor          = workflow.NewExecutor
	NewNodeID            = workflow.NewNodeID
	NewLoggingObserver   = workflow.NewLoggingObserver
	NewCompositeObserver = workflow.NewCompositeObserver
	EncodeGraph          = workflow.EncodeGraph
	DecodeGraph          = workflow.DecodeGraph
)

// Re-export node kinds for convenience.

const (
	KindAction    = workflow.KindAction
	KindCondition = workflow.KindCondition
	KindBranch    = workflow.KindBranch
	KindLoop      = workflow.KindLoop
)

// Re-export config field kinds so editor frontends can switch on
// flowgrid.FieldChoice etc. without importing pkg/workflow.

const (
	FieldInt       = workflow.FieldInt
	FieldFloat     = workflow.FieldFloat
	FieldString    = workflow.FieldString
	FieldMultiline = workflow.FieldMultiline
	FieldChoice    = workflow.FieldChoice
	FieldBool      = workflow.FieldBool
	FieldPath      = workflow.FieldPath
	FieldWindow    = workflow.FieldWindow
)

const (
	// DocumentSchema is the persisted graph document version this
	// release reads and writes.
	DocumentSchema = workflow.DocumentSchema

	// DefaultMaxSteps is the executor's default per-run step ceiling.
	DefaultMaxSteps = workflow.DefaultMaxSteps

	DesktopLeft  = workflow.DesktopLeft
	DesktopRight = workflow.DesktopRight
)

// Run executes g with a one-off Executor using the given Runtime.
//
// It is shorthand for
//
//	flowgrid.NewExecutor(flowgrid.ExecutorConfig{Runtime: rt}).Run(ctx, g)
//
// Use NewExecutor directly when you need an observer or a custom step
// limit, or Library.Run when the run should be recorded.
func Run(ctx context.Context, g *Graph, rt Runtime) (*Context, error) {
	return workflow.NewExecutor(workflow.ExecutorConfig{Runtime: rt}).Run(ctx, g)
}
