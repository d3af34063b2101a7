package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the executor for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay node execution.
type Observer interface {
	// OnRunStart is called once per run, after validation and before
	// the first node executes.
	OnRunStart(ctx context.Context, runID string, g *Graph)

	// OnRunCompleted is called when a run walks off the end of the
	// graph without failing. steps is the total number of node
	// executions performed.
	OnRunCompleted(ctx context.Context, runID string, steps int)

	// OnRunFailed is called when a run stops on an error, including
	// cancellation and the step-limit ceiling.
	OnRunFailed(ctx context.Context, runID string, err error)

	// OnNodeStart is called before a node executes. step is the
	// 1-based position of this execution within the run.
	OnNodeStart(ctx context.Context, runID string, node Node, step int)

	// OnNodeCompleted is called after a node executes, for both
	// successes and failures (err != nil).
	OnNodeCompleted(ctx context.Context, runID string, node Node, step int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, runID string, g *Graph)       {}
func (NoopObserver) OnRunCompleted(ctx context.Context, runID string, steps int)  {}
func (NoopObserver) OnRunFailed(ctx context.Context, runID string, err error)     {}
func (NoopObserver) OnNodeStart(ctx context.Context, runID string, n Node, s int) {}
func (NoopObserver) OnNodeCompleted(ctx context.Context, runID string, n Node, s int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, runID string, g *Graph) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, runID, g)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, runID string, steps int) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, runID, steps)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, runID, err)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, runID string, n Node, step int) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, runID, n, step)
	}
}

func (c *CompositeObserver) OnNodeCompleted(ctx context.Context, runID string, n Node, step int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeCompleted(ctx, runID, n, step, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run and node
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, runID string, g *Graph) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Int("nodes", g.Len()),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, runID string, steps int) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("run_id", runID),
		slog.Int("steps", steps),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run_id", runID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, runID string, n Node, step int) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("run_id", runID),
		slog.String("node", string(n.ID())),
		slog.String("type", n.Type()),
		slog.Int("step", step),
	)
}

func (o *LoggingObserver) OnNodeCompleted(ctx context.Context, runID string, n Node, step int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "node_completed",
		slog.String("run_id", runID),
		slog.String("node", string(n.ID())),
		slog.String("type", n.Type()),
		slog.Int("step", step),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate node durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	nodesExecuted     atomic.Int64
	totalNodeDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	PendingRuns   int64

	NodesExecuted   int64
	AvgNodeDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, runID string, g *Graph) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, runID string, steps int) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, runID string, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnNodeCompleted(ctx context.Context, runID string, n Node, step int, err error, d time.Duration) {
	// Only count successful executions for average duration.
	if err == nil {
		m.nodesExecuted.Add(1)
		m.totalNodeDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	nodes := m.nodesExecuted.Load()
	totalNs := m.totalNodeDuration.Load()

	var avg time.Duration
	if nodes > 0 {
		avg = time.Duration(totalNs / nodes)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		PendingRuns:     started - completed - failed,
		NodesExecuted:   nodes,
		AvgNodeDuration: avg,
	}
}
