package analyzer

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// FindingType identifies what kind of issue was detected.
type FindingType string

const (
	FindingPoolIDUnresolved  FindingType = "POOL_ID_UNRESOLVED"
	FindingSchemaUnresolved  FindingType = "SCHEMA_UNRESOLVED"
	FindingNoUpdateTasks     FindingType = "NO_UPDATE_TASKS"
	FindingFailedUpdateTask  FindingType = "FAILED_UPDATE_TASK"
	FindingNoCIDColumn       FindingType = "NO_CID_COLUMN"
	FindingDanglingReference FindingType = "DANGLING_REFERENCE"
	FindingMissingUpdateTask FindingType = "MISSING_UPDATE_TASK"
	FindingUnknownUpdateTask FindingType = "UNKNOWN_UPDATE_TASK"
	FindingTaskStateMismatch FindingType = "TASK_STATE_MISMATCH"
)

// Finding represents a single audit or check result.
type Finding struct {
	Type     FindingType       `json:"type"`
	Severity Severity          `json:"severity"`
	Schema   string            `json:"schema,omitempty"`
	Table    string            `json:"table,omitempty"`
	Task     string            `json:"task,omitempty"`
	Message  string            `json:"message"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// AuditOptions controls exclusions for analysis.
type AuditOptions struct {
	// ExcludeTables holds table names or trailing-* patterns.
	ExcludeTables []string
}

var severityOrder = map[Severity]int{
	SeverityInfo:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// SeverityRank orders severities from info (0) to high (3); unknown
// values rank as info.
func SeverityRank(s Severity) int {
	return severityOrder[s]
}

// MaxSeverity returns the highest severity among findings.
func MaxSeverity(findings []Finding) Severity {
	max := SeverityInfo
	for _, f := range findings {
		if severityOrder[f.Severity] > severityOrder[max] {
			max = f.Severity
		}
	}
	return max
}

// ExitCode maps severity to a CLI exit code.
func ExitCode(s Severity) int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}
