package persistence

import (
	"sort"
	"sync"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// InMemoryStore is a simple, goroutine-safe implementation of
// GraphStore and RunStore backed by maps.
type InMemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*workflow.GraphDocument
	runs   map[string]*RunRecord
	order  []string // run ids in insertion order
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		graphs: make(map[string]*workflow.GraphDocument),
		runs:   make(map[string]*RunRecord),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ GraphStore = (*InMemoryStore)(nil)

var _ RunStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveGraph(name string, doc *workflow.GraphDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graphs[name] = copyDocument(doc)
	return nil
}

func (s *InMemoryStore) GetGraph(name string) (*workflow.GraphDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.graphs[name]
	if !ok {
		return nil, ErrGraphNotFound
	}

	return copyDocument(doc), nil
}

func (s *InMemoryStore) ListGraphs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func (s *InMemoryStore) DeleteGraph(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graphs[name]; !ok {
		return ErrGraphNotFound
	}

	delete(s.graphs, name)
	return nil
}

func (s *InMemoryStore) SaveRun(rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	copied := *rec
	s.runs[rec.ID] = &copied
	return nil
}

func (s *InMemoryStore) UpdateRun(rec *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.ID]; !ok {
		return ErrRunNotFound
	}

	copied := *rec
	s.runs[rec.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetRun(id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	copied := *rec
	return &copied, nil
}

func (s *InMemoryStore) ListRuns(filter RunFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*RunRecord

	for _, id := range s.order {
		rec := s.runs[id]
		if filter.Graph != "" && rec.Graph != filter.Graph {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}

	return result, nil
}

// copyDocument returns a copy deep enough that callers mutating node
// configs cannot corrupt the stored document.
func copyDocument(doc *workflow.GraphDocument) *workflow.GraphDocument {
	out := &workflow.GraphDocument{Schema: doc.Schema}
	for _, n := range doc.Nodes {
		cfg := make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			cfg[k] = v
		}
		n.Config = cfg
		out.Nodes = append(out.Nodes, n)
	}
	out.Edges = append([]workflow.EdgeDocument(nil), doc.Edges...)
	return out
}
