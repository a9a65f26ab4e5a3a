// Package store persists analysis runs in SQLite so later queries can reuse
// a snapshot without re-parsing the repository.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/phobologic/sherpa/internal/model"
)

// ErrNoRun is returned when a requested run does not exist.
var ErrNoRun = errors.New("no stored run")

// Store is the SQLite data access layer.
type Store struct {
	db *sql.DB
}

// Run describes one stored analysis.
type Run struct {
	ID         string
	Root       string
	CreatedAt  time.Time
	EntryPoint string
}

// Open opens a SQLite database at dbPath with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  root            TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL,
  entry_point     TEXT
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  path            TEXT NOT NULL,
  module          TEXT NOT NULL DEFAULT '',
  entry           BOOLEAN NOT NULL DEFAULT FALSE,
  imports         TEXT NOT NULL,
  depends_on      TEXT NOT NULL,
  parse_error     TEXT,
  UNIQUE (run_id, path)
);

CREATE TABLE IF NOT EXISTS functions (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  calls           TEXT NOT NULL,
  resolved_calls  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calls (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  caller          TEXT NOT NULL,
  callee          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root, created_at);
CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_functions_file ON functions(file_id);
CREATE INDEX IF NOT EXISTS idx_calls_run ON calls(run_id, caller);
`

// SaveModel writes m as a new run for root in one transaction and returns the
// run ID.
func (s *Store) SaveModel(ctx context.Context, root string, m *model.UnifiedModel) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var entry sql.NullString
	if m.EntryPoint != nil {
		entry = sql.NullString{String: *m.EntryPoint, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, created_at, entry_point) VALUES (?, ?, ?, ?)`,
		runID, root, time.Now().UTC(), entry,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	parseErrors := make(map[string]string, len(m.Metadata.ParseErrors))
	for _, pe := range m.Metadata.ParseErrors {
		parseErrors[pe.File] = pe.Error
	}

	for i, path := range m.Paths() {
		view := m.Files[path]
		if err := insertFileTx(ctx, tx, runID, i, path, view, parseErrors[path]); err != nil {
			return "", err
		}
	}

	for _, e := range m.Metadata.ResolvedCallEdges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calls (run_id, caller, callee) VALUES (?, ?, ?)`,
			runID, e.From, e.To,
		); err != nil {
			return "", fmt.Errorf("insert call %s -> %s: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

func insertFileTx(ctx context.Context, tx *sql.Tx, runID string, ordinal int, path string, view model.FileView, parseError string) error {
	var perr sql.NullString
	if parseError != "" {
		perr = sql.NullString{String: parseError, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (run_id, ordinal, path, module, entry, imports, depends_on, parse_error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ordinal, path, view.Module, view.Entry, marshalList(view.Imports), marshalList(view.DependsOn), perr,
	)
	if err != nil {
		return fmt.Errorf("insert file %s: %w", path, err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert file %s: %w", path, err)
	}

	for _, name := range sortedNames(view.Functions) {
		fn := view.Functions[name]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO functions (file_id, name, calls, resolved_calls) VALUES (?, ?, ?, ?)`,
			fileID, name, marshalList(fn.Calls), marshalList(fn.ResolvedCalls),
		); err != nil {
			return fmt.Errorf("insert function %s in %s: %w", name, path, err)
		}
	}
	return nil
}

// LatestRun returns the most recent run stored for root.
func (s *Store) LatestRun(ctx context.Context, root string) (Run, error) {
	var (
		r     Run
		entry sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, root, created_at, entry_point FROM runs WHERE root = ? ORDER BY rowid DESC LIMIT 1`,
		root,
	).Scan(&r.ID, &r.Root, &r.CreatedAt, &entry)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w for %s", ErrNoRun, root)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query latest run: %w", err)
	}
	r.EntryPoint = entry.String
	return r, nil
}

// LoadCallEdges returns the resolved call edges of a run, sorted by
// (from, to).
func (s *Store) LoadCallEdges(ctx context.Context, runID string) ([]model.CallEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT caller, callee FROM calls WHERE run_id = ? ORDER BY caller, callee`, runID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	edges := []model.CallEdge{}
	for rows.Next() {
		var e model.CallEdge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// LoadModel rebuilds the UnifiedModel stored for a run.
func (s *Store) LoadModel(ctx context.Context, runID string) (*model.UnifiedModel, error) {
	var entry sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT entry_point FROM runs WHERE id = ?`, runID).Scan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	m := &model.UnifiedModel{
		Files:    make(map[string]model.FileView),
		Metadata: model.Metadata{ParseErrors: []model.ParseError{}},
	}
	if entry.Valid {
		m.EntryPoint = &entry.String
	}

	byID, err := s.loadFiles(ctx, runID, m)
	if err != nil {
		return nil, err
	}
	if err := s.loadFunctions(ctx, runID, m, byID); err != nil {
		return nil, err
	}

	m.Metadata.ResolvedCallEdges, err = s.LoadCallEdges(ctx, runID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) loadFiles(ctx context.Context, runID string, m *model.UnifiedModel) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, module, entry, imports, depends_on, parse_error FROM files WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]string)
	for rows.Next() {
		var (
			id               int64
			path             string
			module           string
			entry            bool
			imports, depends string
			parseError       sql.NullString
		)
		if err := rows.Scan(&id, &path, &module, &entry, &imports, &depends, &parseError); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		view := model.FileView{
			Entry:     entry,
			Module:    module,
			Functions: make(map[string]model.FunctionView),
		}
		if view.Imports, err = unmarshalList(imports); err != nil {
			return nil, fmt.Errorf("file %s imports: %w", path, err)
		}
		if view.DependsOn, err = unmarshalList(depends); err != nil {
			return nil, fmt.Errorf("file %s depends_on: %w", path, err)
		}
		m.Files[path] = view
		m.Order = append(m.Order, path)
		byID[id] = path
		if parseError.Valid {
			m.Metadata.ParseErrors = append(m.Metadata.ParseErrors, model.ParseError{File: path, Error: parseError.String})
		}
	}
	return byID, rows.Err()
}

func (s *Store) loadFunctions(ctx context.Context, runID string, m *model.UnifiedModel, byID map[int64]string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.file_id, f.name, f.calls, f.resolved_calls
		 FROM functions f JOIN files fl ON fl.id = f.file_id
		 WHERE fl.run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fileID          int64
			name            string
			calls, resolved string
		)
		if err := rows.Scan(&fileID, &name, &calls, &resolved); err != nil {
			return fmt.Errorf("scan function: %w", err)
		}
		var fn model.FunctionView
		if fn.Calls, err = unmarshalList(calls); err != nil {
			return fmt.Errorf("function %s calls: %w", name, err)
		}
		if fn.ResolvedCalls, err = unmarshalList(resolved); err != nil {
			return fmt.Errorf("function %s resolved_calls: %w", name, err)
		}
		path := byID[fileID]
		m.Files[path].Functions[name] = fn
	}
	return rows.Err()
}
