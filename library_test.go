package flowgrid

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowgrid/flowgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestLibrary_SaveLoadListDelete(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()

	g, err := NewBuilder().
		Node("click", "mouse_click", map[string]any{"x": 7, "y": 9}).
		Then("type", "keyboard_input", map[string]any{"text": "hi"}).
		Build()
	require.NoError(t, err)

	require.NoError(t, lib.SaveGraph("beta", g))
	require.NoError(t, lib.SaveGraph("alpha", g))

	names, err := lib.ListGraphs()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, names)

	loaded, err := lib.LoadGraph("beta")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	n, ok := loaded.Node("click")
	require.True(t, ok)
	require.Equal(t, 7, n.Config()["x"])

	require.NoError(t, lib.DeleteGraph("beta"))
	_, err = lib.LoadGraph("beta")
	require.ErrorIs(t, err, ErrGraphNotFound)
}

// TestLibrary_DocumentKeepsPositions verifies that editor documents
// round-trip through the library with their layout intact.
func TestLibrary_DocumentKeepsPositions(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()

	doc := &GraphDocument{
		Schema: DocumentSchema,
		Nodes: []NodeDocument{{
			ID:       "click_1",
			Type:     "mouse_click",
			Title:    "Click",
			Config:   map[string]any{"x": 120, "y": 80},
			Position: Position{X: 42.5, Y: -10},
		}},
	}
	require.NoError(t, lib.SaveDocument("layout", doc))

	got, err := lib.LoadDocument("layout")
	require.NoError(t, err)
	require.Equal(t, Position{X: 42.5, Y: -10}, got.Nodes[0].Position)

	// The same document still decodes into a runnable graph.
	g, err := lib.LoadGraph("layout")
	require.NoError(t, err)
	require.Equal(t, 1, g.Len())
}

func TestLibrary_RunRecordsHistory(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()

	g, err := NewBuilder().
		Node("click", "mouse_click", nil).
		Then("type", "keyboard_input", map[string]any{"text": "hi"}).
		Build()
	require.NoError(t, err)
	require.NoError(t, lib.SaveGraph("demo", g))

	run, err := lib.Run(context.Background(), "demo", ExecutorConfig{Runtime: NopRuntime{}})
	require.NoError(t, err)
	require.Equal(t, 2, run.Steps())

	rec, err := lib.GetRun(run.RunID())
	require.NoError(t, err)
	require.Equal(t, "demo", rec.Graph)
	require.Equal(t, StatusCompleted, rec.Status)
	require.Equal(t, 2, rec.Steps)
	require.False(t, rec.StartedAt.IsZero())
	require.False(t, rec.FinishedAt.IsZero())
	require.Empty(t, rec.Error)

	history, err := lib.ListRuns(RunFilter{Graph: "demo"})
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestLibrary_RunRecordsFailure(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()

	g, err := NewBuilder().
		Node("cmd", "run_command", map[string]any{"command": "make deploy"}).
		Build()
	require.NoError(t, err)
	require.NoError(t, lib.SaveGraph("deploy", g))

	rt := &testutil.ScriptedRuntime{
		Commands: []CommandResult{{ExitCode: 2, Stderr: "boom"}},
	}
	_, err = lib.Run(context.Background(), "deploy", ExecutorConfig{Runtime: rt})
	require.Error(t, err)

	failed, err := lib.ListRuns(RunFilter{Graph: "deploy", Status: StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)

	rec := failed[0]
	require.Contains(t, rec.Error, "command exited with code 2")
	require.Equal(t, 1, rec.Steps, "the failing node was the first step")
	require.False(t, rec.FinishedAt.IsZero())
}

func TestLibrary_RunUnknownGraph(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()
	_, err := lib.Run(context.Background(), "ghost", ExecutorConfig{})
	require.ErrorIs(t, err, ErrGraphNotFound)
}

// TestLibrary_RecorderOnForeignExecutor attaches the recorder to an
// executor the library does not drive.
func TestLibrary_RecorderOnForeignExecutor(t *testing.T) {
	t.Parallel()

	lib := NewLibrary()

	g, err := NewBuilder().
		Node("click", "mouse_click", nil).
		Build()
	require.NoError(t, err)

	exec := NewExecutor(ExecutorConfig{
		Runtime:  NopRuntime{},
		Observer: lib.Recorder("adhoc"),
	})
	run, err := exec.Run(context.Background(), g)
	require.NoError(t, err)

	rec, err := lib.GetRun(run.RunID())
	require.NoError(t, err)
	require.Equal(t, "adhoc", rec.Graph)
	require.Equal(t, StatusCompleted, rec.Status)
	require.Equal(t, 1, rec.Steps)
}

// TestSQLiteLibrary_DurableAcrossRestart saves a graph and runs it, then
// reopens the database with a fresh Library and expects both the graph
// and the run history to still be there.
func TestSQLiteLibrary_DurableAcrossRestart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPath := filepath.Join(t.TempDir(), "flowgrid.db")
	dsn := "file:" + dbPath + "?_journal=WAL"

	// --- Phase 1: save and run.

	db1, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)

	lib1, err := NewSQLiteLibrary(db1)
	require.NoError(t, err)

	g, err := NewBuilder().
		Node("click", "mouse_click", map[string]any{"x": 3, "y": 4}).
		Then("type", "keyboard_input", map[string]any{"text": "saved"}).
		Build()
	require.NoError(t, err)

	require.NoError(t, lib1.SaveGraph("durable", g))

	run, err := lib1.Run(ctx, "durable", ExecutorConfig{Runtime: NopRuntime{}})
	require.NoError(t, err)

	// Simulate process exit.
	require.NoError(t, db1.Close())

	// --- Phase 2: reopen.

	db2, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db2.Close()

	lib2, err := NewSQLiteLibrary(db2)
	require.NoError(t, err)

	loaded, err := lib2.LoadGraph("durable")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	n, ok := loaded.Node("click")
	require.True(t, ok)
	require.Equal(t, 3, n.Config()["x"], "int config survives the JSON roundtrip")

	rec, err := lib2.GetRun(run.RunID())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, rec.Status)
	require.Equal(t, 2, rec.Steps)

	_, err = lib2.GetRun("missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}
