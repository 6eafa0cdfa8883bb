package analyzer

import (
	"context"
	"testing"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/restore"
	"github.com/ppiankov/ctxrestore/internal/testutil"
)

func outcome(poolID int, schema string, tasks dump.UpdateTaskInformation, tables ...dump.TableInfo) *restore.Outcome {
	return &restore.Outcome{
		ContextID:   5,
		PoolID:      poolID,
		Schema:      schema,
		UpdateTasks: tasks,
		Results: []restore.Parsed{
			{Pass: 1, Result: &dump.Result{Tables: tables}},
		},
	}
}

func countType(findings []Finding, ft FindingType) int {
	n := 0
	for _, f := range findings {
		if f.Type == ft {
			n++
		}
	}
	return n
}

func TestDetectUnresolved(t *testing.T) {
	tests := []struct {
		name       string
		poolID     int
		schema     string
		wantPool   int
		wantSchema int
	}{
		{"resolved", 4, "oxdb_5", 0, 0},
		{"nothing found", -1, "", 1, 1},
		{"schema given, pool missing", -1, "oxdb_5", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := detectUnresolved(outcome(tt.poolID, tt.schema, nil))
			if got := countType(findings, FindingPoolIDUnresolved); got != tt.wantPool {
				t.Errorf("POOL_ID_UNRESOLVED = %d, want %d", got, tt.wantPool)
			}
			if got := countType(findings, FindingSchemaUnresolved); got != tt.wantSchema {
				t.Errorf("SCHEMA_UNRESOLVED = %d, want %d", got, tt.wantSchema)
			}
			for _, f := range findings {
				if f.Severity != SeverityHigh {
					t.Errorf("%s severity = %s, want high", f.Type, f.Severity)
				}
			}
		})
	}
}

func TestDetectUpdateTasks(t *testing.T) {
	tests := []struct {
		name       string
		tasks      dump.UpdateTaskInformation
		wantNone   int
		wantFailed int
	}{
		{"nil", nil, 1, 0},
		{"empty", dump.UpdateTaskInformation{}, 1, 0},
		{"all successful", dump.UpdateTaskInformation{{TaskName: "a", Successful: true}}, 0, 0},
		{"one failed", dump.UpdateTaskInformation{
			{TaskName: "a", Successful: true},
			{ContextID: 5, TaskName: "b", LastModified: 42},
		}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := detectUpdateTasks("oxdb_5", tt.tasks)
			if got := countType(findings, FindingNoUpdateTasks); got != tt.wantNone {
				t.Errorf("NO_UPDATE_TASKS = %d, want %d", got, tt.wantNone)
			}
			if got := countType(findings, FindingFailedUpdateTask); got != tt.wantFailed {
				t.Errorf("FAILED_UPDATE_TASK = %d, want %d", got, tt.wantFailed)
			}
		})
	}
}

func TestDetectUpdateTasks_Detail(t *testing.T) {
	findings := detectUpdateTasks("oxdb_5", dump.UpdateTaskInformation{
		{ContextID: 5, TaskName: "com.example.Task", LastModified: 1690000000003},
	})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Task != "com.example.Task" || f.Schema != "oxdb_5" || f.Severity != SeverityMedium {
		t.Errorf("finding = %+v", f)
	}
	if f.Detail["last_modified"] != "1690000000003" || f.Detail["context_id"] != "5" {
		t.Errorf("detail = %v", f.Detail)
	}
}

func TestDetectNoCIDColumn(t *testing.T) {
	tables := []dump.TableInfo{
		{Database: "configdb", Name: "server", CIDColumn: -1, Inserts: 1},
		{Database: "configdb", Name: "context", CIDColumn: 1, Inserts: 1},
		{Database: "oxdb_5", Name: "empty_no_cid", CIDColumn: -1},
	}
	findings := detectNoCIDColumn(tables)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	if findings[0].Table != "server" || findings[0].Severity != SeverityLow {
		t.Errorf("finding = %+v", findings[0])
	}
}

func TestAudit_ExcludeTables(t *testing.T) {
	out := outcome(4, "oxdb_5", dump.UpdateTaskInformation{{TaskName: "a", Successful: true}},
		dump.TableInfo{Database: "configdb", Name: "server", CIDColumn: -1, Inserts: 1},
		dump.TableInfo{Database: "oxdb_5", Name: "sessiond_tokens", CIDColumn: -1, Inserts: 3},
	)

	if got := countType(Audit(out, AuditOptions{}), FindingNoCIDColumn); got != 2 {
		t.Errorf("without exclusions: %d NO_CID_COLUMN, want 2", got)
	}
	if got := countType(Audit(out, AuditOptions{ExcludeTables: []string{"sessiond_*"}}), FindingNoCIDColumn); got != 1 {
		t.Errorf("with exclusion: %d NO_CID_COLUMN, want 1", got)
	}
	if got := len(Audit(out, AuditOptions{ExcludeTables: []string{"all"}})); got != 0 {
		t.Errorf("excluding all tables left %d findings", got)
	}
}

func TestAudit_RepeatedPassesReportOnce(t *testing.T) {
	table := dump.TableInfo{Database: "configdb", Name: "server", CIDColumn: -1, Inserts: 1}
	out := &restore.Outcome{
		PoolID: 4,
		Schema: "oxdb_5",
		Results: []restore.Parsed{
			{Pass: 1, Result: &dump.Result{Tables: []dump.TableInfo{table}}},
			{Pass: 2, Result: &dump.Result{Tables: []dump.TableInfo{table}}},
		},
		UpdateTasks: dump.UpdateTaskInformation{{TaskName: "a", Successful: true}},
	}
	if got := countType(Audit(out, AuditOptions{}), FindingNoCIDColumn); got != 1 {
		t.Errorf("NO_CID_COLUMN = %d, want 1", got)
	}
}

func TestAudit_FixtureDumps(t *testing.T) {
	dir := t.TempDir()
	config := testutil.WriteFile(t, dir, "configdb.sql", testutil.ConfigDB().String())
	tenant := testutil.WriteFile(t, dir, "oxdb_5.sql", testutil.TenantSchema("oxdb_5").String())

	out, err := restore.Run(context.Background(), []string{config, tenant}, restore.Options{
		ContextID: 5,
		TempFiles: dump.NewTempFileMap(t.TempDir()),
	})
	if err != nil {
		t.Fatal(err)
	}

	findings := Audit(out, AuditOptions{})
	want := map[FindingType]int{
		FindingNoCIDColumn:      1, // configdb.server
		FindingFailedUpdateTask: 1, // MailAccountAddReplyToTask
	}
	if len(findings) != 2 {
		t.Fatalf("findings = %+v", findings)
	}
	for ft, n := range want {
		if got := countType(findings, ft); got != n {
			t.Errorf("%s = %d, want %d", ft, got, n)
		}
	}
	if MaxSeverity(findings) != SeverityMedium {
		t.Errorf("MaxSeverity = %s, want medium", MaxSeverity(findings))
	}
}
