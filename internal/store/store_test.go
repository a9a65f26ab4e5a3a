package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sherpa/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleModel() *model.UnifiedModel {
	entry := "app.py"
	return &model.UnifiedModel{
		EntryPoint: &entry,
		Files: map[string]model.FileView{
			"app.py": {
				Entry:   true,
				Imports: []string{"service"},
				Functions: map[string]model.FunctionView{
					"main": {Calls: []string{"run"}, ResolvedCalls: []string{"service.run"}},
				},
				DependsOn: []string{"service.py"},
				Module:    "app",
			},
			"service.py": {
				Imports:   []string{},
				Functions: map[string]model.FunctionView{"run": {Calls: []string{}, ResolvedCalls: []string{}}},
				DependsOn: []string{},
			},
			"broken.py": {
				Imports:   []string{},
				Functions: map[string]model.FunctionView{},
				DependsOn: []string{},
			},
		},
		Metadata: model.Metadata{
			ParseErrors:       []model.ParseError{{File: "broken.py", Error: "syntax error at line 1, column 12"}},
			ResolvedCallEdges: []model.CallEdge{{From: "app.main", To: "service.run"}},
		},
		Order: []string{"app.py", "broken.py", "service.py"},
	}
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"runs", "files", "functions", "calls"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestSaveModel_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleModel()
	runID, err := s.SaveModel(ctx, "/repo", want)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got, err := s.LoadModel(ctx, runID)
	require.NoError(t, err)

	assert.Equal(t, want.Files, got.Files)
	assert.Equal(t, want.Metadata, got.Metadata)
	assert.Equal(t, want.Order, got.Order)
	require.NotNil(t, got.EntryPoint)
	assert.Equal(t, "app.py", *got.EntryPoint)
}

func TestLatestRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx, "/repo")
	require.ErrorIs(t, err, ErrNoRun)

	first, err := s.SaveModel(ctx, "/repo", sampleModel())
	require.NoError(t, err)
	second, err := s.SaveModel(ctx, "/repo", &model.UnifiedModel{Files: map[string]model.FileView{}})
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	run, err := s.LatestRun(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, second, run.ID)
	assert.Equal(t, "", run.EntryPoint)

	_, err = s.LatestRun(ctx, "/other")
	require.ErrorIs(t, err, ErrNoRun)
}

func TestLoadCallEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	m := sampleModel()
	m.Metadata.ResolvedCallEdges = []model.CallEdge{
		{From: "a.main", To: "b.helper"},
		{From: "b.helper", To: "c.util"},
	}
	runID, err := s.SaveModel(ctx, "/repo", m)
	require.NoError(t, err)

	edges, err := s.LoadCallEdges(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, m.Metadata.ResolvedCallEdges, edges)

	edges, err = s.LoadCallEdges(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestLoadModel_Missing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.LoadModel(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNoRun)
}
