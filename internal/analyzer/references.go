package analyzer

import (
	"fmt"
	"strings"

	"github.com/ppiankov/ctxrestore/internal/dump"
)

// DetectDanglingReferences finds foreign keys whose referenced table is
// not part of the extracted rows: either it never appeared in the dump of
// the same database, or it has no cid column and therefore contributed no
// rows.
func DetectDanglingReferences(tables []dump.TableInfo) []Finding {
	byKey := make(map[string]dump.TableInfo, len(tables))
	for _, t := range tables {
		byKey[strings.ToLower(tableKey(t.Database, t.Name))] = t
	}

	var findings []Finding
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			ref, ok := byKey[strings.ToLower(tableKey(t.Database, fk.RefTable))]
			var reason string
			switch {
			case !ok:
				reason = "is not in the dump"
			case ref.CIDColumn == -1:
				reason = "has no cid column"
			default:
				continue
			}
			findings = append(findings, Finding{
				Type:     FindingDanglingReference,
				Severity: SeverityLow,
				Schema:   t.Database,
				Table:    t.Name,
				Message:  fmt.Sprintf("foreign key (%s) references %q which %s", strings.Join(fk.Columns, ", "), fk.RefTable, reason),
				Detail: map[string]string{
					"columns":     strings.Join(fk.Columns, ","),
					"ref_table":   fk.RefTable,
					"ref_columns": strings.Join(fk.RefColumns, ","),
				},
			})
		}
	}
	return findings
}
