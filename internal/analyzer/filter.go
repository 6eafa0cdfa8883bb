package analyzer

import (
	"strings"

	"github.com/ppiankov/ctxrestore/internal/dump"
)

// ResolvePatterns trims table patterns and drops empty ones. "all" or "*"
// anywhere in the list matches every table.
func ResolvePatterns(patterns []string) []string {
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if strings.EqualFold(p, "all") {
			p = "*"
		}
		if p == "*" {
			return []string{"*"}
		}
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// MatchTable matches a table name case-insensitively against a pattern
// that may end in '*'.
func MatchTable(pattern, table string) bool {
	pattern = strings.ToLower(pattern)
	table = strings.ToLower(table)

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(table, prefix)
	}
	return pattern == table
}

func excluded(patterns []string, table string) bool {
	for _, p := range patterns {
		if MatchTable(p, table) {
			return true
		}
	}
	return false
}

// collectTables merges the table sections seen across all parsed files,
// keyed by database and table. Repeated passes over the same file report
// the same tables; the larger counters win.
func collectTables(results []*dump.Result, patterns []string) []dump.TableInfo {
	index := make(map[string]int)
	var tables []dump.TableInfo
	for _, res := range results {
		for _, t := range res.Tables {
			if excluded(patterns, t.Name) {
				continue
			}
			key := tableKey(t.Database, t.Name)
			i, ok := index[key]
			if !ok {
				index[key] = len(tables)
				tables = append(tables, t)
				continue
			}
			prev := &tables[i]
			prev.Inserts = max(prev.Inserts, t.Inserts)
			prev.RowsWritten = max(prev.RowsWritten, t.RowsWritten)
			if prev.CIDColumn == -1 {
				prev.CIDColumn = t.CIDColumn
			}
		}
	}
	return tables
}

// tableKey builds a lookup key from database and table name.
func tableKey(database, table string) string {
	return database + "." + table
}
