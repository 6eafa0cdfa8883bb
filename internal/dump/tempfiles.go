package dump

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// TempFileMap is an in-memory TempFiles that creates files in Dir.
// It is not safe for concurrent use.
type TempFileMap struct {
	// Dir defaults to os.TempDir().
	Dir   string
	files map[string]string
}

// NewTempFileMap returns an empty map creating files in dir.
func NewTempFileMap(dir string) *TempFileMap {
	return &TempFileMap{Dir: dir, files: make(map[string]string)}
}

// Lookup implements TempFiles.
func (m *TempFileMap) Lookup(schema string) (string, bool) {
	path, ok := m.files[schema]
	return path, ok
}

// Create implements TempFiles.
func (m *TempFileMap) Create(schema string) (io.WriteCloser, string, error) {
	f, err := os.CreateTemp(m.Dir, schema+"-*.sql")
	if err != nil {
		return nil, "", fmt.Errorf("create temp file for %s: %w", schema, err)
	}
	if m.files == nil {
		m.files = make(map[string]string)
	}
	m.files[schema] = f.Name()
	return f, f.Name(), nil
}

// Put registers an existing file for schema.
func (m *TempFileMap) Put(schema, path string) {
	if m.files == nil {
		m.files = make(map[string]string)
	}
	m.files[schema] = path
}

// Schemas returns the registered schema names, sorted.
func (m *TempFileMap) Schemas() []string {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
