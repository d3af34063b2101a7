package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/flowgrid/flowgrid/pkg/workflow"
)

// SQLiteStore is a GraphStore and RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the interfaces.
var _ GraphStore = (*SQLiteStore)(nil)

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS graphs (
			name TEXT PRIMARY KEY,
			document BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			graph_name TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			error TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveGraph(name string, doc *workflow.GraphDocument) error {
	blob, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO graphs (name, document)
		VALUES (?, ?)`,
		name,
		blob,
	)
	return err
}

func (s *SQLiteStore) GetGraph(name string) (*workflow.GraphDocument, error) {
	row := s.db.QueryRow(`SELECT document FROM graphs WHERE name = ?`, name)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGraphNotFound
		}
		return nil, err
	}

	var doc workflow.GraphDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (s *SQLiteStore) ListGraphs() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM graphs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (s *SQLiteStore) DeleteGraph(name string) error {
	res, err := s.db.Exec(`DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGraphNotFound
	}

	return nil
}

func (s *SQLiteStore) SaveRun(rec *RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, graph_name, status, started_at, finished_at, steps, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Graph,
		string(rec.Status),
		timeToNanos(rec.StartedAt),
		timeToNanos(rec.FinishedAt),
		rec.Steps,
		rec.Error,
	)
	return err
}

func (s *SQLiteStore) UpdateRun(rec *RunRecord) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET graph_name = ?, status = ?, started_at = ?, finished_at = ?, steps = ?, error = ?
		WHERE id = ?`,
		rec.Graph,
		string(rec.Status),
		timeToNanos(rec.StartedAt),
		timeToNanos(rec.FinishedAt),
		rec.Steps,
		rec.Error,
		rec.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (s *SQLiteStore) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, graph_name, status, started_at, finished_at, steps, error
		FROM runs
		WHERE id = ?`,
		id,
	)

	rec, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return rec, nil
}

func (s *SQLiteStore) ListRuns(filter RunFilter) ([]*RunRecord, error) {
	query := `
		SELECT id, graph_name, status, started_at, finished_at, steps, error
		FROM runs`
	var args []any
	var clauses []string

	if filter.Graph != "" {
		clauses = append(clauses, "graph_name = ?")
		args = append(args, filter.Graph)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query = query + " ORDER BY started_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*RunRecord

	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanRun(scan func(...any) error) (*RunRecord, error) {
	var rec RunRecord
	var statusStr string
	var startedNs, finishedNs int64
	var errStr sql.NullString

	if err := scan(&rec.ID, &rec.Graph, &statusStr, &startedNs, &finishedNs, &rec.Steps, &errStr); err != nil {
		return nil, err
	}

	rec.Status = Status(statusStr)
	rec.StartedAt = nanosToTime(startedNs)
	rec.FinishedAt = nanosToTime(finishedNs)
	if errStr.Valid {
		rec.Error = errStr.String
	}

	return &rec, nil
}

// Times are stored as Unix nanoseconds; zero marks the zero time so a
// still-running record round-trips.
func timeToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nanosToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
