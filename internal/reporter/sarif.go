package reporter

import (
	"fmt"
	"io"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
)

// SARIF 2.1.0 types, the subset needed for valid output.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

var ruleDescriptions = map[analyzer.FindingType]string{
	analyzer.FindingPoolIDUnresolved:  "No context_server2db_pool row names a pool for the context",
	analyzer.FindingSchemaUnresolved:  "The tenant schema of the context could not be determined",
	analyzer.FindingNoUpdateTasks:     "The dump carries no updateTask rows for the context",
	analyzer.FindingFailedUpdateTask:  "An update task is recorded as unsuccessful",
	analyzer.FindingNoCIDColumn:       "Table has data but no cid column, its rows are not extracted",
	analyzer.FindingDanglingReference: "Foreign key references a table whose rows are not extracted",
	analyzer.FindingMissingUpdateTask: "Update task ran on the reference system but is missing from the dump",
	analyzer.FindingUnknownUpdateTask: "Update task in the dump is unknown to the reference system",
	analyzer.FindingTaskStateMismatch: "Update task outcome differs from the reference system",
}

var severityToLevel = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   "error",
	analyzer.SeverityMedium: "warning",
	analyzer.SeverityLow:    "note",
	analyzer.SeverityInfo:   "note",
}

const sarifRulePrefix = "ctxrestore/"

func writeSARIF(w io.Writer, report *Report) error {
	// rules in first-seen order
	var rules []sarifRule
	seen := make(map[analyzer.FindingType]bool)
	for _, f := range report.Findings {
		if seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		desc := ruleDescriptions[f.Type]
		if desc == "" {
			desc = string(f.Type)
		}
		rules = append(rules, sarifRule{
			ID:               sarifRulePrefix + string(f.Type),
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaults{Level: levelOf(f.Severity)},
		})
	}
	if rules == nil {
		rules = []sarifRule{}
	}

	results := make([]sarifResult, 0, len(report.Findings))
	for i := range report.Findings {
		f := &report.Findings[i]

		msgText := f.Message
		for _, k := range sortedDetailKeys(f.Detail) {
			msgText += fmt.Sprintf(" [%s=%s]", k, f.Detail[k])
		}

		logical := sarifLogicalLocation{
			Name:               f.Table,
			FullyQualifiedName: location(f),
			Kind:               "database/table",
		}
		if f.Task != "" {
			logical = sarifLogicalLocation{
				Name:               f.Task,
				FullyQualifiedName: location(f) + "/" + f.Task,
				Kind:               "updateTask",
			}
		}

		results = append(results, sarifResult{
			RuleID:    sarifRulePrefix + string(f.Type),
			Level:     levelOf(f.Severity),
			Message:   sarifMessage{Text: msgText},
			Locations: []sarifLocation{{LogicalLocations: []sarifLogicalLocation{logical}}},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "ctxrestore",
						Version:        report.Metadata.Version,
						InformationURI: "https://github.com/ppiankov/ctxrestore",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	if err := writeJSON(w, log); err != nil {
		return fmt.Errorf("SARIF: %w", err)
	}
	return nil
}

func levelOf(s analyzer.Severity) string {
	if level, ok := severityToLevel[s]; ok {
		return level
	}
	return "note"
}
