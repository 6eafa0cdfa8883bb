package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/reporter"
	"github.com/ppiankov/ctxrestore/internal/testutil"
)

func TestParseCmd_Text(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)
	tempDir := t.TempDir()

	out, err := runCmd(t, "parse", "--cid", "5", "--temp-dir", tempDir, config, tenant)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Context 5: pool 4, schema oxdb_5",
		"Update tasks: 3 (1 failed)",
		"oxdb_5.prg_contacts: 2 rows",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 temp files, got %d", len(entries))
	}
}

func TestParseCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)

	out, err := runCmd(t, "parse", "--cid", "5", "--temp-dir", t.TempDir(), "--format", "json", config, tenant)
	if err != nil {
		t.Fatal(err)
	}
	var report reporter.OutcomeReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if report.PoolID != 4 || report.Schema != "oxdb_5" {
		t.Errorf("pool, schema = %d, %q", report.PoolID, report.Schema)
	}
	if report.Metadata.Version != "test" || report.Metadata.Command != "parse" {
		t.Errorf("metadata = %+v", report.Metadata)
	}

	schemas := make(map[string]string)
	for _, f := range report.TempFiles {
		schemas[f.Schema] = f.Path
	}
	data, err := os.ReadFile(schemas["oxdb_5"])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "INSERT INTO `user` VALUES (5,2,'john@example.com',1);") {
		t.Errorf("tenant file missing user row:\n%s", data)
	}
	if strings.Contains(string(data), "jane@example.com") {
		t.Errorf("tenant file contains rows of another context:\n%s", data)
	}
}

func TestParseCmd_CustomConfigDB(t *testing.T) {
	dir := t.TempDir()
	config := testutil.WriteFile(t, dir, "ox_config.sql", testutil.NewDump("ox_config").ConfigDBTables().String())

	out, err := runCmd(t, "parse", "--cid", "5", "--config-db", "ox_config", "--temp-dir", t.TempDir(), config)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "pool 4, schema oxdb_5") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseCmd_MetricsFile(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)
	metricsPath := filepath.Join(dir, "ctxrestore.prom")

	if _, err := runCmd(t, "parse", "--cid", "5", "--temp-dir", t.TempDir(), "--metrics-file", metricsPath, config, tenant); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ctxrestore_bytes_read_total", "ctxrestore_last_run_pool_id 4"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %q in metrics:\n%s", want, data)
		}
	}
}

func TestParseCmd_StateSharedAcrossInvocations(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)
	stateDB := filepath.Join(dir, "state.db")
	tempDir := t.TempDir()

	// first invocation sees only the configdb and learns the schema
	if _, err := runCmd(t, "parse", "--state-db", stateDB, "--cid", "5", "--temp-dir", tempDir, config); err != nil {
		t.Fatal(err)
	}
	out, err := runCmd(t, "parse", "--state-db", stateDB, "--cid", "5", "--schema", "oxdb_5",
		"--temp-dir", tempDir, "--format", "json", config, tenant)
	if err != nil {
		t.Fatal(err)
	}
	var report reporter.OutcomeReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if report.Stats.SchemasOpened != 1 {
		t.Errorf("second invocation opened %d schemas, want 1", report.Stats.SchemasOpened)
	}
	if len(report.TempFiles) != 2 {
		t.Errorf("temp files = %+v", report.TempFiles)
	}

	history, err := runCmd(t, "history", "--state-db", stateDB)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(history, "cid=5 pool=4"); got != 2 {
		t.Errorf("expected 2 runs in history, got %d:\n%s", got, history)
	}

	reset, err := runCmd(t, "reset", "--state-db", stateDB, "--remove-files")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reset, "Forgot 2 temp files.") {
		t.Errorf("unexpected reset output %q", reset)
	}
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp dir to be empty after reset, got %d files", len(entries))
	}
}

func TestParseCmd_MissingDump(t *testing.T) {
	_, err := runCmd(t, "parse", "--cid", "5", filepath.Join(t.TempDir(), "missing.sql"))
	if err == nil || !strings.Contains(err.Error(), "open dump") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestTasksCmd(t *testing.T) {
	dir := t.TempDir()
	config, tenant := writeDumps(t, dir)

	out, err := runCmd(t, "tasks", "--cid", "5", "--format", "json", config, tenant)
	if err != nil {
		t.Fatal(err)
	}
	var tasks dump.UpdateTaskInformation
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %+v", tasks)
	}
	for _, task := range tasks {
		if task.ContextID != 0 && task.ContextID != 5 {
			t.Errorf("task of context %d reported", task.ContextID)
		}
	}

	// nothing but the dumps themselves in dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("tasks wrote files: %d entries in dump dir", len(entries))
	}
}

func TestTasksCmd_KnownSchema(t *testing.T) {
	_, tenant := writeDumps(t, t.TempDir())

	out, err := runCmd(t, "tasks", "--cid", "5", "--schema", "oxdb_5", tenant)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Update tasks: 3 (1 failed)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestParseCmd_Directory(t *testing.T) {
	dir := t.TempDir()
	writeDumps(t, dir)
	testutil.WriteFile(t, dir, "notes.txt", "not a dump")

	out, err := runCmd(t, "parse", "--cid", "5", "--temp-dir", t.TempDir(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Context 5: pool 4, schema oxdb_5") || !strings.Contains(out, "Scanned 2 files") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
