package flowgrid

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/internal/persistence"
	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// Re-export the persistence surface the Library hands out.

type (
	GraphStore = persistence.GraphStore
	RunStore   = persistence.RunStore
	RunRecord  = persistence.RunRecord
	RunFilter  = persistence.RunFilter
	Status     = persistence.Status
)

const (
	StatusRunning   = persistence.StatusRunning
	StatusCompleted = persistence.StatusCompleted
	StatusFailed    = persistence.StatusFailed
)

var (
	ErrGraphNotFound = persistence.ErrGraphNotFound
	ErrRunNotFound   = persistence.ErrRunNotFound
)

// Library stores named workflow graphs and the history of their runs.
// It is the integration point for editor frontends: saved documents
// keep their node positions, and every run launched through the library
// leaves a RunRecord behind.
//
// Typical usage:
//
//	lib := flowgrid.NewLibrary()
//	if err := lib.SaveGraph("demo", g); err != nil {
//	    log.Fatal(err)
//	}
//	run, err := lib.Run(ctx, "demo", flowgrid.ExecutorConfig{Runtime: rt})
//	...
//	history, err := lib.ListRuns(flowgrid.RunFilter{Graph: "demo"})
//
// All methods are safe for concurrent use when the underlying stores
// are.
type Library struct {
	graphs persistence.GraphStore
	runs   persistence.RunStore
	reg    *workflow.Registry
}

// NewLibrary returns a Library backed entirely by in-memory stores.
// Nothing survives process exit; intended for tests and development.
func NewLibrary() *Library {
	store := persistence.NewInMemoryStore()
	return &Library{graphs: store, runs: store, reg: workflow.NewRegistry()}
}

// NewSQLiteLibrary returns a Library that persists graphs and run
// history in the given SQLite database, creating the schema if needed.
// The caller owns the *sql.DB:
//
//	db, err := sql.Open("sqlite", "flowgrid.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//	lib, err := flowgrid.NewSQLiteLibrary(db)
func NewSQLiteLibrary(db *sql.DB) (*Library, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return &Library{graphs: store, runs: store, reg: workflow.NewRegistry()}, nil
}

// Registry returns the node catalogue used to decode stored graphs.
func (l *Library) Registry() *Registry { return l.reg }

// SaveGraph encodes g and stores it under name, replacing any previous
// document. Graphs built in code carry no editor layout; to preserve
// node positions from an editor, store its document with SaveDocument.
func (l *Library) SaveGraph(name string, g *Graph) error {
	return l.graphs.SaveGraph(name, workflow.EncodeGraph(g))
}

// SaveDocument stores an already-encoded graph document under name,
// editor payload included.
func (l *Library) SaveDocument(name string, doc *GraphDocument) error {
	return l.graphs.SaveGraph(name, doc)
}

// LoadGraph decodes the named document into a runnable graph.
// An unknown name yields ErrGraphNotFound.
func (l *Library) LoadGraph(name string) (*Graph, error) {
	doc, err := l.graphs.GetGraph(name)
	if err != nil {
		return nil, err
	}
	return workflow.DecodeGraph(doc, l.reg)
}

// LoadDocument returns the stored document as saved, without decoding.
func (l *Library) LoadDocument(name string) (*GraphDocument, error) {
	return l.graphs.GetGraph(name)
}

// ListGraphs returns the stored graph names in lexical order.
func (l *Library) ListGraphs() ([]string, error) {
	return l.graphs.ListGraphs()
}

// DeleteGraph removes the named document. Run history is kept.
func (l *Library) DeleteGraph(name string) error {
	return l.graphs.DeleteGraph(name)
}

// GetRun returns one recorded run by its run ID.
func (l *Library) GetRun(id string) (*RunRecord, error) {
	return l.runs.GetRun(id)
}

// ListRuns returns recorded runs matching the filter, ordered by start
// time.
func (l *Library) ListRuns(filter RunFilter) ([]*RunRecord, error) {
	return l.runs.ListRuns(filter)
}

// Run loads the named graph and executes it, recording the run in the
// library's history. An Observer in cfg is composed with the library's
// recorder, so both see every callback.
func (l *Library) Run(ctx context.Context, name string, cfg ExecutorConfig) (*Context, error) {
	g, err := l.LoadGraph(name)
	if err != nil {
		return nil, err
	}
	cfg.Observer = NewCompositeObserver(l.Recorder(name), cfg.Observer)
	return NewExecutor(cfg).Run(ctx, g)
}

// Recorder returns an Observer that persists a RunRecord for every run
// it sees: StatusRunning on start, then StatusCompleted with the step
// count or StatusFailed with the error string. graphName labels the
// records for ListRuns filtering.
//
// Use it directly when driving an Executor yourself:
//
//	exec := flowgrid.NewExecutor(flowgrid.ExecutorConfig{
//	    Runtime:  rt,
//	    Observer: flowgrid.NewCompositeObserver(lib.Recorder("demo"), metrics),
//	})
func (l *Library) Recorder(graphName string) Observer {
	return &recordingObserver{runs: l.runs, graph: graphName}
}

// recordingObserver writes run history through the observer seam.
// Store failures cannot be returned to the executor, so they are
// logged and the run proceeds.
type recordingObserver struct {
	NoopObserver
	runs  persistence.RunStore
	graph string

	mu    sync.Mutex
	steps map[string]int
}

func (o *recordingObserver) OnRunStart(ctx context.Context, runID string, g *Graph) {
	rec := &persistence.RunRecord{
		ID:        runID,
		Graph:     o.graph,
		Status:    persistence.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.runs.SaveRun(rec); err != nil {
		slog.ErrorContext(ctx, "run record save failed",
			slog.String("run_id", runID), slog.Any("error", err))
	}
}

func (o *recordingObserver) OnNodeStart(ctx context.Context, runID string, n Node, step int) {
	o.mu.Lock()
	if o.steps == nil {
		o.steps = make(map[string]int)
	}
	o.steps[runID] = step
	o.mu.Unlock()
}

func (o *recordingObserver) OnRunCompleted(ctx context.Context, runID string, steps int) {
	o.finish(ctx, runID, func(rec *persistence.RunRecord) {
		rec.Status = persistence.StatusCompleted
		rec.Steps = steps
	})
}

func (o *recordingObserver) OnRunFailed(ctx context.Context, runID string, err error) {
	o.finish(ctx, runID, func(rec *persistence.RunRecord) {
		rec.Status = persistence.StatusFailed
		rec.Error = err.Error()
	})
}

func (o *recordingObserver) finish(ctx context.Context, runID string, update func(*persistence.RunRecord)) {
	o.mu.Lock()
	lastStep := o.steps[runID]
	delete(o.steps, runID)
	o.mu.Unlock()

	rec, err := o.runs.GetRun(runID)
	if err != nil {
		slog.ErrorContext(ctx, "run record load failed",
			slog.String("run_id", runID), slog.Any("error", err))
		return
	}
	rec.FinishedAt = time.Now().UTC()
	rec.Steps = lastStep
	update(rec)
	if err := o.runs.UpdateRun(rec); err != nil {
		slog.ErrorContext(ctx, "run record update failed",
			slog.String("run_id", runID), slog.Any("error", err))
	}
}
