package restore

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ppiankov/ctxrestore/internal/testutil"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	b := testutil.WriteFile(t, dir, "b_oxdb_5.sql.gz", "")
	a := testutil.WriteFile(t, dir, "a_configdb.sql", "")
	nested := testutil.WriteFile(t, dir, "nested/c_oxdb_6.SQL.ZST", "")
	testutil.WriteFile(t, dir, "README.md", "")
	testutil.WriteFile(t, dir, ".snapshots/old.sql", "")
	single := testutil.WriteFile(t, t.TempDir(), "export.txt", "")

	got, err := ExpandInputs([]string{single, dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{single, a, b, nested}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandInputs = %v, want %v", got, want)
	}
}

func TestExpandInputs_Missing(t *testing.T) {
	if _, err := ExpandInputs([]string{filepath.Join(t.TempDir(), "missing.sql")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestExpandInputs_EmptyDirectory(t *testing.T) {
	got, err := ExpandInputs([]string{t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}
