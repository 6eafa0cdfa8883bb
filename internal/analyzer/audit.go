package analyzer

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/restore"
)

// Audit checks a restore outcome for gaps that would make the extracted
// context incomplete or unsafe to import.
func Audit(out *restore.Outcome, opts AuditOptions) []Finding {
	results := make([]*dump.Result, 0, len(out.Results))
	for _, p := range out.Results {
		results = append(results, p.Result)
	}
	patterns := ResolvePatterns(opts.ExcludeTables)
	tables := collectTables(results, patterns)

	var findings []Finding

	findings = append(findings, detectUnresolved(out)...)
	findings = append(findings, detectUpdateTasks(out.Schema, out.UpdateTasks)...)
	findings = append(findings, detectNoCIDColumn(tables)...)
	findings = append(findings, DetectDanglingReferences(tables)...)

	return findings
}

func detectUnresolved(out *restore.Outcome) []Finding {
	cid := strconv.Itoa(out.ContextID)
	var findings []Finding
	if out.PoolID == -1 {
		findings = append(findings, Finding{
			Type:     FindingPoolIDUnresolved,
			Severity: SeverityHigh,
			Table:    "context_server2db_pool",
			Message:  fmt.Sprintf("no pool id found for context %d", out.ContextID),
			Detail:   map[string]string{"context_id": cid},
		})
	}
	if out.Schema == "" {
		findings = append(findings, Finding{
			Type:     FindingSchemaUnresolved,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("tenant schema of context %d is unknown", out.ContextID),
			Detail:   map[string]string{"context_id": cid},
		})
	}
	return findings
}

func detectUpdateTasks(schema string, tasks dump.UpdateTaskInformation) []Finding {
	if len(tasks) == 0 {
		return []Finding{{
			Type:     FindingNoUpdateTasks,
			Severity: SeverityInfo,
			Schema:   schema,
			Table:    "updateTask",
			Message:  "no update task information found in the dump",
		}}
	}

	var findings []Finding
	for _, t := range tasks {
		if t.Successful {
			continue
		}
		findings = append(findings, Finding{
			Type:     FindingFailedUpdateTask,
			Severity: SeverityMedium,
			Schema:   schema,
			Table:    "updateTask",
			Task:     t.TaskName,
			Message:  fmt.Sprintf("update task %q did not complete successfully", t.TaskName),
			Detail: map[string]string{
				"context_id":    strconv.Itoa(t.ContextID),
				"last_modified": strconv.FormatInt(t.LastModified, 10),
			},
		})
	}
	return findings
}

func detectNoCIDColumn(tables []dump.TableInfo) []Finding {
	var findings []Finding
	for _, t := range tables {
		if t.CIDColumn != -1 || t.Inserts == 0 {
			continue
		}
		findings = append(findings, Finding{
			Type:     FindingNoCIDColumn,
			Severity: SeverityLow,
			Schema:   t.Database,
			Table:    t.Name,
			Message:  fmt.Sprintf("table has data but no cid column, %d INSERT statements skipped", t.Inserts),
			Detail:   map[string]string{"inserts": strconv.Itoa(t.Inserts)},
		})
	}
	return findings
}
