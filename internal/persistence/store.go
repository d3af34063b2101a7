// Package persistence stores named workflow documents and run history
// for the flowgrid library facade.
package persistence

import (
	"errors"
	"time"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

var (
	// ErrGraphNotFound is returned when a named workflow graph is not stored.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrRunNotFound is returned when a run record is not stored.
	ErrRunNotFound = errors.New("run not found")
)

// Status describes where a recorded run ended up.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// RunRecord is the persisted history of one run.
type RunRecord struct {
	ID         string
	Graph      string // name of the stored graph the run executed
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Steps      int
	Error      string // empty unless Status is StatusFailed
}

// GraphStore persists named workflow documents. Documents are stored
// as given, editor payload included.
type GraphStore interface {
	// SaveGraph stores doc under name, replacing any previous document.
	SaveGraph(name string, doc *workflow.GraphDocument) error
	GetGraph(name string) (*workflow.GraphDocument, error)
	// ListGraphs returns the stored names in lexical order.
	ListGraphs() ([]string, error)
	DeleteGraph(name string) error
}

// RunFilter selects run records from a store.
// Empty string / zero status mean "no filter" for that field.
type RunFilter struct {
	Graph  string
	Status Status
}

// RunStore persists run history.
type RunStore interface {
	SaveRun(rec *RunRecord) error
	UpdateRun(rec *RunRecord) error
	GetRun(id string) (*RunRecord, error)
	// ListRuns returns matching records ordered by start time.
	ListRuns(filter RunFilter) ([]*RunRecord, error)
}
