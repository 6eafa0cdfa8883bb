package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/ctxrestore/internal/testutil"
)

// runCmd executes a CLI command and returns stdout and error.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(BuildInfo{Version: "test", Commit: "abc123", Date: "2026-10-01"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeDumps writes the configdb and oxdb_5 fixture dumps into dir.
func writeDumps(t *testing.T, dir string) (string, string) {
	t.Helper()
	config := testutil.WriteFile(t, dir, "configdb.sql", testutil.ConfigDB().String())
	tenant := testutil.WriteFile(t, dir, "oxdb_5.sql", testutil.TenantSchema("oxdb_5").String())
	return config, tenant
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ctxrestore test (commit abc123, built 2026-10-01)\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestCommands_RequireCID(t *testing.T) {
	dump := testutil.WriteFile(t, t.TempDir(), "configdb.sql", testutil.ConfigDB().String())
	for _, name := range []string{"parse", "tasks", "check"} {
		t.Run(name, func(t *testing.T) {
			_, err := runCmd(t, name, dump)
			if err == nil || !strings.Contains(err.Error(), "--cid is required") {
				t.Fatalf("expected --cid error, got %v", err)
			}
		})
	}
}

func TestCommands_RequireDumps(t *testing.T) {
	if _, err := runCmd(t, "parse", "--cid", "5"); err == nil {
		t.Fatal("expected error without dump arguments")
	}
}

func TestCommands_UnknownFormat(t *testing.T) {
	dump := testutil.WriteFile(t, t.TempDir(), "configdb.sql", testutil.ConfigDB().String())
	_, err := runCmd(t, "tasks", "--cid", "5", "--format", "xml", dump)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestStateCommands_RequireStateDB(t *testing.T) {
	t.Setenv("CTXRESTORE_STATE_DB", "")
	for _, name := range []string{"history", "reset"} {
		if _, err := runCmd(t, name); err == nil || !strings.Contains(err.Error(), "--state-db is required") {
			t.Errorf("%s: expected --state-db error, got %v", name, err)
		}
	}
}

func TestStateDB_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)
	t.Setenv("CTXRESTORE_STATE_DB", filepath.Join(dir, "state.db"))

	if _, err := runCmd(t, "parse", "--cid", "5", "--temp-dir", t.TempDir(), config, tenant); err != nil {
		t.Fatal(err)
	}
	out, err := runCmd(t, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "cid=5 pool=4 schema=oxdb_5 tasks=3") {
		t.Errorf("unexpected history:\n%s", out)
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	var ee *ExitError
	if !errors.As(err, &ee) || ee.Code != 2 {
		t.Fatalf("errors.As failed for %v", err)
	}
	if err.Error() != "exit status 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}
