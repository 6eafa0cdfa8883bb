package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
)

// Format controls report output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatSARIF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or sarif)", s)
	}
}

// Metadata holds report context.
type Metadata struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

// ScanContext describes what was examined, so an empty report still says
// how much ground it covered.
type ScanContext struct {
	Files       int `json:"files"`
	Tables      int `json:"tables"`
	UpdateTasks int `json:"updateTasks"`
}

// Summary counts findings by severity.
type Summary struct {
	Total      int `json:"total"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	Info       int `json:"info"`
	Suppressed int `json:"suppressed,omitempty"`
}

// Report is the top-level check output.
type Report struct {
	Metadata    Metadata           `json:"metadata"`
	Scanned     ScanContext        `json:"scanned"`
	Findings    []analyzer.Finding `json:"findings"`
	MaxSeverity analyzer.Severity  `json:"maxSeverity"`
	Summary     Summary            `json:"summary"`
}

// NewReport builds a report from findings.
func NewReport(command string, findings []analyzer.Finding, version string) Report {
	var summary Summary
	for _, f := range findings {
		summary.Total++
		switch f.Severity {
		case analyzer.SeverityHigh:
			summary.High++
		case analyzer.SeverityMedium:
			summary.Medium++
		case analyzer.SeverityLow:
			summary.Low++
		case analyzer.SeverityInfo:
			summary.Info++
		}
	}

	if findings == nil {
		findings = []analyzer.Finding{}
	}

	return Report{
		Metadata: Metadata{
			Tool:      "ctxrestore",
			Version:   version,
			Command:   command,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Findings:    findings,
		MaxSeverity: analyzer.MaxSeverity(findings),
		Summary:     summary,
	}
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatSARIF:
		return writeSARIF(w, report)
	default:
		return writeText(w, report, isTTY(w))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

var severityLabel = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   "HIGH",
	analyzer.SeverityMedium: "MEDIUM",
	analyzer.SeverityLow:    "LOW",
	analyzer.SeverityInfo:   "INFO",
}

// location names the object a finding is about.
func location(f *analyzer.Finding) string {
	switch {
	case f.Schema != "" && f.Table != "":
		return f.Schema + "." + f.Table
	case f.Table != "":
		return f.Table
	case f.Schema != "":
		return f.Schema
	default:
		return "(context)"
	}
}

func writeText(w io.Writer, report *Report, color bool) error {
	tw := &textWriter{w: w, color: color}

	if report.Summary.Total == 0 {
		if report.Scanned.Files > 0 {
			tw.printf("No issues detected (%d files, %d tables, %d update tasks).\n",
				report.Scanned.Files, report.Scanned.Tables, report.Scanned.UpdateTasks)
		} else {
			tw.printf("No findings.\n")
		}
		return tw.err
	}

	// group by location, first appearance wins the order
	var order []string
	groups := make(map[string][]analyzer.Finding)
	for i := range report.Findings {
		loc := location(&report.Findings[i])
		if _, ok := groups[loc]; !ok {
			order = append(order, loc)
		}
		groups[loc] = append(groups[loc], report.Findings[i])
	}

	for _, loc := range order {
		tw.printf("%s\n", tw.bold(loc))
		for _, f := range groups[loc] {
			tw.printf("  %s %s: %s", tw.severity(f.Severity), f.Type, f.Message)
			if f.Task != "" && !strings.Contains(f.Message, f.Task) {
				tw.printf(" (%s)", f.Task)
			}
			tw.printf("\n")
			for _, k := range sortedDetailKeys(f.Detail) {
				tw.printf("    %s: %s\n", k, f.Detail[k])
			}
		}
	}

	s := report.Summary
	tw.printf("\nSummary: %d findings (high=%d medium=%d low=%d info=%d)", s.Total, s.High, s.Medium, s.Low, s.Info)
	if s.Suppressed > 0 {
		tw.printf(", %d suppressed", s.Suppressed)
	}
	tw.printf("\nTop types: %s\n", topTypes(report.Findings, 3))
	return tw.err
}

// textWriter keeps the first write error so callers check once.
type textWriter struct {
	w     io.Writer
	color bool
	err   error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) bold(s string) string {
	if !t.color {
		return s
	}
	return colorBold + s + colorReset
}

func (t *textWriter) severity(s analyzer.Severity) string {
	label := "[" + severityLabel[s] + "]"
	if !t.color {
		return label
	}
	return severityColor[s] + label + colorReset
}

func sortedDetailKeys(detail map[string]string) []string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func topTypes(findings []analyzer.Finding, n int) string {
	counts := make(map[analyzer.FindingType]int)
	for _, f := range findings {
		counts[f.Type]++
	}
	types := make([]analyzer.FindingType, 0, len(counts))
	for ft := range counts {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > n {
		types = types[:n]
	}
	parts := make([]string, len(types))
	for i, ft := range types {
		parts[i] = fmt.Sprintf("%s=%d", ft, counts[ft])
	}
	return strings.Join(parts, " ")
}
