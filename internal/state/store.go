// Package state persists temp-file mappings and run history in SQLite so
// extraction passes can span several invocations.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/restore"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS temp_files (
	schema_name TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	sources     TEXT NOT NULL,
	context_id  INTEGER NOT NULL,
	pool_id     INTEGER NOT NULL,
	schema_name TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS update_tasks (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	context_id    INTEGER NOT NULL,
	task_name     TEXT NOT NULL,
	successful    INTEGER NOT NULL,
	last_modified INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Store is a SQLite backed state database.
type Store struct {
	db *sql.DB
}

// Run is one recorded restore run.
type Run struct {
	ID          string        `json:"id"`
	Sources     []string      `json:"sources"`
	ContextID   int           `json:"contextId"`
	PoolID      int           `json:"poolId"`
	Schema      string        `json:"schema,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"durationNs"`
	UpdateTasks int           `json:"updateTasks"`
}

// Open opens or creates the state database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	err = withRetry(ctx, "migrate", func() error {
		_, err := db.ExecContext(ctx, schemaSQL)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores out and its update tasks and returns the new run id.
func (s *Store) RecordRun(ctx context.Context, out *restore.Outcome) (string, error) {
	id := uuid.NewString()
	sources, err := json.Marshal(out.Sources())
	if err != nil {
		return "", fmt.Errorf("encode sources: %w", err)
	}

	err = withRetry(ctx, "record run", func() error {
		return s.insertRun(ctx, id, string(sources), out)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) insertRun(ctx context.Context, id, sources string, out *restore.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, sources, context_id, pool_id, schema_name, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sources, out.ContextID, out.PoolID, out.Schema,
		out.StartedAt.UTC().Format(time.RFC3339Nano), out.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, task := range out.UpdateTasks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO update_tasks (run_id, seq, context_id, task_name, successful, last_modified)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, task.ContextID, task.TaskName, task.Successful, task.LastModified)
		if err != nil {
			return fmt.Errorf("insert update task %s: %w", task.TaskName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Runs returns the most recent runs first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.sources, r.context_id, r.pool_id, r.schema_name, r.started_at, r.duration_ms,
		        (SELECT COUNT(*) FROM update_tasks u WHERE u.run_id = r.id)
		   FROM runs r
		  ORDER BY r.started_at DESC, r.rowid DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			sources    string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &sources, &r.ContextID, &r.PoolID, &r.Schema, &startedAt, &durationMS, &r.UpdateTasks); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &r.Sources); err != nil {
			return nil, fmt.Errorf("decode sources of run %s: %w", r.ID, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("decode start of run %s: %w", r.ID, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UpdateTasks returns the update tasks recorded for a run.
func (s *Store) UpdateTasks(ctx context.Context, runID string) (dump.UpdateTaskInformation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT context_id, task_name, successful, last_modified
		   FROM update_tasks WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query update tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	info := dump.UpdateTaskInformation{}
	for rows.Next() {
		var e dump.UpdateTaskEntry
		if err := rows.Scan(&e.ContextID, &e.TaskName, &e.Successful, &e.LastModified); err != nil {
			return nil, fmt.Errorf("scan update task: %w", err)
		}
		info = append(info, e)
	}
	return info, rows.Err()
}

// ResetTempFiles forgets all temp-file mappings and returns how many were
// removed. With removeFiles the files themselves are deleted too; files
// that are already gone are ignored.
func (s *Store) ResetTempFiles(ctx context.Context, removeFiles bool) (int, error) {
	files, err := s.tempFiles(ctx)
	if err != nil {
		return 0, err
	}
	if removeFiles {
		for _, path := range files {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return 0, fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM temp_files`); err != nil {
		return 0, fmt.Errorf("delete temp files: %w", err)
	}
	return len(files), nil
}

func (s *Store) tempFiles(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT schema_name, path FROM temp_files`)
	if err != nil {
		return nil, fmt.Errorf("query temp files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := make(map[string]string)
	for rows.Next() {
		var schema, path string
		if err := rows.Scan(&schema, &path); err != nil {
			return nil, fmt.Errorf("scan temp file: %w", err)
		}
		files[schema] = path
	}
	return files, rows.Err()
}
