// Package store maintains a small sqlite index of scanned sessions so the
// CLI and the Flight server can list known sessions without re-walking the
// filesystem.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/23skdu/longbow-spyglass/internal/metrics"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  root_path TEXT NOT NULL UNIQUE,
  model_name TEXT NOT NULL,
  total_size_bytes INTEGER NOT NULL DEFAULT 0,
  tensor_count INTEGER NOT NULL DEFAULT 0,
  trace_count INTEGER NOT NULL DEFAULT 0,
  indexed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS traces (
  session_id TEXT NOT NULL,
  token INTEGER NOT NULL,
  path TEXT NOT NULL,
  entries INTEGER NOT NULL DEFAULT 0,
  duration_ms REAL NOT NULL DEFAULT 0,
  disk_entries INTEGER NOT NULL DEFAULT 0,
  expert_entries INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (session_id, token)
);
`)
	return err
}

// SessionRecord describes one indexed session directory.
type SessionRecord struct {
	ID             string
	RootPath       string
	ModelName      string
	TotalSizeBytes uint64
	TensorCount    int
	TraceCount     int
	IndexedAt      time.Time
}

// TraceRecord describes one trace file inside an indexed session.
type TraceRecord struct {
	SessionID     string
	Token         int
	Path          string
	Entries       int
	DurationMS    float64
	DiskEntries   int
	ExpertEntries int
}

// IndexSession records a session and its traces, replacing any previous
// index entry for the same root path. The session keeps its existing ID on
// re-index; a new ID is minted otherwise. Returns the session ID.
func (s *Store) IndexSession(ctx context.Context, rec SessionRecord, traces []TraceRecord) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	id := rec.ID
	if id == "" {
		row := tx.QueryRowContext(ctx, "SELECT session_id FROM sessions WHERE root_path=?;", rec.RootPath)
		if err := row.Scan(&id); err == sql.ErrNoRows {
			id = uuid.NewString()
		} else if err != nil {
			return "", err
		}
	}

	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions(session_id, root_path, model_name, total_size_bytes, tensor_count, trace_count, indexed_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(root_path) DO UPDATE SET
  model_name=excluded.model_name,
  total_size_bytes=excluded.total_size_bytes,
  tensor_count=excluded.tensor_count,
  trace_count=excluded.trace_count,
  indexed_at=excluded.indexed_at;
`, id, rec.RootPath, rec.ModelName, rec.TotalSizeBytes, rec.TensorCount, rec.TraceCount, indexedAt)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM traces WHERE session_id=?;", id); err != nil {
		return "", err
	}
	for _, tr := range traces {
		_, err := tx.ExecContext(ctx, `
INSERT INTO traces(session_id, token, path, entries, duration_ms, disk_entries, expert_entries)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, id, tr.Token, tr.Path, tr.Entries, tr.DurationMS, tr.DiskEntries, tr.ExpertEntries)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	metrics.RecordSessionIndexed()
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, root_path, model_name, total_size_bytes, tensor_count, trace_count, indexed_at
FROM sessions WHERE session_id=?;
`, id)
	return scanSession(row)
}

// FindByRoot looks a session up by its directory path.
func (s *Store) FindByRoot(ctx context.Context, root string) (SessionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, root_path, model_name, total_size_bytes, tensor_count, trace_count, indexed_at
FROM sessions WHERE root_path=?;
`, root)
	return scanSession(row)
}

func scanSession(row *sql.Row) (SessionRecord, bool, error) {
	var r SessionRecord
	err := row.Scan(&r.ID, &r.RootPath, &r.ModelName, &r.TotalSizeBytes, &r.TensorCount, &r.TraceCount, &r.IndexedAt)
	if err == sql.ErrNoRows {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, err
	}
	return r, true, nil
}

// ListSessions returns all indexed sessions, most recently indexed first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, root_path, model_name, total_size_bytes, tensor_count, trace_count, indexed_at
FROM sessions ORDER BY indexed_at DESC, root_path ASC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.RootPath, &r.ModelName, &r.TotalSizeBytes, &r.TensorCount, &r.TraceCount, &r.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionTraces returns the trace rows for one session in token order.
func (s *Store) SessionTraces(ctx context.Context, id string) ([]TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, token, path, entries, duration_ms, disk_entries, expert_entries
FROM traces WHERE session_id=? ORDER BY token ASC;
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TraceRecord
	for rows.Next() {
		var t TraceRecord
		if err := rows.Scan(&t.SessionID, &t.Token, &t.Path, &t.Entries, &t.DurationMS, &t.DiskEntries, &t.ExpertEntries); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its trace rows.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM traces WHERE session_id=?;", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id=?;", id); err != nil {
		return err
	}
	return tx.Commit()
}
