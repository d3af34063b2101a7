package workflow

import "fmt"

// ConfigError reports an invalid node configuration value. It is raised
// at construction or Configure time, never during a run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// GraphError reports a rejected graph mutation. The graph is never left
// in a partially-applied state when one is returned.
type GraphError struct {
	Op     string
	Reason string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ExecutionError reports a run-time failure: validation, a node effect,
// an expression, an exceeded bound, or cancellation. NodeID and
// NodeTitle are empty for failures not attributable to a single node.
type ExecutionError struct {
	NodeID    NodeID
	NodeTitle string
	Reason    string
	Err       error
}

func (e *ExecutionError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.NodeTitle != "" {
		return fmt.Sprintf("node %q: %s", e.NodeTitle, msg)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }
