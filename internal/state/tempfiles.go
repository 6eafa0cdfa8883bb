package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"
)

// TempFiles is a persistent schema to temp-file map. Mappings whose file
// has disappeared are dropped on lookup. A lookup that fails on the
// database makes the following Create for that schema fail, so a broken
// state database aborts the parse instead of extracting the schema again.
type TempFiles struct {
	store *Store
	dir   string
	// lookup errors by schema, reported by Create
	failed map[string]error
}

// TempFiles returns a map that creates new files in dir.
func (s *Store) TempFiles(dir string) *TempFiles {
	return &TempFiles{store: s, dir: dir, failed: make(map[string]error)}
}

// Lookup implements dump.TempFiles.
func (t *TempFiles) Lookup(schema string) (string, bool) {
	ctx := context.Background()
	var path string
	err := withRetry(ctx, "look up temp file", func() error {
		return t.store.db.QueryRowContext(ctx,
			`SELECT path FROM temp_files WHERE schema_name = ?`, schema).Scan(&path)
	})
	if errors.Is(err, sql.ErrNoRows) {
		delete(t.failed, schema)
		return "", false
	}
	if err != nil {
		slog.Warn("temp file lookup failed", "schema", schema, "error", err)
		t.failed[schema] = err
		return "", false
	}
	delete(t.failed, schema)
	if _, err := os.Stat(path); err != nil {
		slog.Debug("dropping stale temp file mapping", "schema", schema, "path", path)
		_, _ = t.store.db.ExecContext(ctx, `DELETE FROM temp_files WHERE schema_name = ?`, schema)
		return "", false
	}
	return path, true
}

// Create implements dump.TempFiles.
func (t *TempFiles) Create(schema string) (io.WriteCloser, string, error) {
	if err := t.failed[schema]; err != nil {
		return nil, "", fmt.Errorf("look up temp file for %s: %w", schema, err)
	}
	f, err := os.CreateTemp(t.dir, schema+"-*.sql")
	if err != nil {
		return nil, "", fmt.Errorf("create temp file for %s: %w", schema, err)
	}
	ctx := context.Background()
	err = withRetry(ctx, "record temp file", func() error {
		_, err := t.store.db.ExecContext(ctx,
			`INSERT INTO temp_files (schema_name, path, created_at) VALUES (?, ?, ?)
			 ON CONFLICT(schema_name) DO UPDATE SET path = excluded.path, created_at = excluded.created_at`,
			schema, f.Name(), time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, "", fmt.Errorf("record temp file for %s: %w", schema, err)
	}
	return f, f.Name(), nil
}

// Schemas returns the mapped schema names, sorted.
func (t *TempFiles) Schemas() []string {
	files, err := t.store.tempFiles(context.Background())
	if err != nil {
		slog.Warn("listing temp files failed", "error", err)
		return nil
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
