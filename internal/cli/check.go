package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
	"github.com/ppiankov/ctxrestore/internal/baseline"
	"github.com/ppiankov/ctxrestore/internal/reporter"
	"github.com/ppiankov/ctxrestore/internal/restore"
	"github.com/ppiankov/ctxrestore/internal/suppress"
	"github.com/spf13/cobra"
)

func newCheckCmd(info BuildInfo) *cobra.Command {
	var (
		cid            int
		schema         string
		references     []string
		format         string
		failOn         string
		minSeverity    string
		baselinePath   string
		updateBaseline string
	)

	cmd := &cobra.Command{
		Use:   "check DUMP|DIR...",
		Short: "Audit a context in the dumps and compare its update tasks with a reference",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cid") {
				return fmt.Errorf("--cid is required")
			}
			f, err := reporter.ParseFormat(outputFormat(cmd, format))
			if err != nil {
				return err
			}

			files, err := restore.ExpandInputs(args)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			out, err := restore.Run(ctx, files, restore.Options{
				ContextID:    cid,
				ConfigDBName: configDBName,
				Schema:       schema,
				TempFiles:    discardTempFiles{},
			})
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			findings := analyzer.Audit(out, analyzer.AuditOptions{ExcludeTables: cfg.Exclude.Tables})

			if len(references) > 0 {
				refFiles, err := restore.ExpandInputs(references)
				if err != nil {
					return err
				}
				ref, err := restore.Run(ctx, refFiles, restore.Options{
					ContextID:    cid,
					ConfigDBName: configDBName,
					TempFiles:    discardTempFiles{},
				})
				if err != nil {
					return fmt.Errorf("parse reference: %w", err)
				}
				slog.Info("reference parsed", "update_tasks", len(ref.UpdateTasks))
				findings = append(findings, analyzer.Diff(out.UpdateTasks, ref.UpdateTasks)...)
			}

			if updateBaseline != "" {
				if err := baseline.Save(updateBaseline, findings); err != nil {
					return fmt.Errorf("save baseline: %w", err)
				}
				slog.Info("baseline saved", "path", updateBaseline, "findings", len(findings))
			}

			findings, totalSuppressed, err := filterFindings(findings, baselinePath)
			if err != nil {
				return err
			}
			if minSeverity != "" {
				findings = filterBySeverity(findings, minSeverity)
			}

			report := reporter.NewReport("check", findings, info.Version)
			report.Scanned = scanContext(out)
			report.Summary.Suppressed = totalSuppressed
			if totalSuppressed > 0 {
				slog.Info("findings filtered", "total", report.Summary.Total+totalSuppressed, "suppressed", totalSuppressed)
			}

			if err := reporter.Write(cmd.OutOrStdout(), &report, f); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if failOn != "" && shouldFailOn(findings, failOn) {
				return &ExitError{Code: 2}
			}
			if code := analyzer.ExitCode(report.MaxSeverity); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cid, "cid", 0, "context id to check (required)")
	cmd.Flags().StringVar(&schema, "schema", "", "tenant schema, if already known")
	cmd.Flags().StringSliceVar(&references, "reference", nil, "dump of a reference system whose update tasks the context should match")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or sarif")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit 2 if findings match (comma-separated types or severity: high,medium)")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "only report findings at or above this severity")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline file (suppress known findings)")
	cmd.Flags().StringVar(&updateBaseline, "update-baseline", "", "save current findings as new baseline")

	return cmd
}

func scanContext(out *restore.Outcome) reporter.ScanContext {
	tables := make(map[string]bool)
	for _, p := range out.Results {
		for _, t := range p.Result.Tables {
			tables[t.Database+"."+t.Name] = true
		}
	}
	return reporter.ScanContext{
		Files:       len(out.Sources()),
		Tables:      len(tables),
		UpdateTasks: len(out.UpdateTasks),
	}
}

// filterFindings applies baseline and suppression rules to findings.
func filterFindings(findings []analyzer.Finding, baselinePath string) ([]analyzer.Finding, int, error) {
	totalSuppressed := 0

	if baselinePath != "" {
		bl, err := baseline.Load(baselinePath)
		if err != nil {
			return nil, 0, fmt.Errorf("load baseline: %w", err)
		}
		var n int
		findings, n = bl.Filter(findings)
		totalSuppressed += n
	}

	// .ctxrestore-ignore.yml plus config exclude.findings
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	rules, err := suppress.LoadRules(cwd)
	if err != nil {
		return nil, 0, fmt.Errorf("load suppress rules: %w", err)
	}
	rules.WithConfigFindings(cfg.Exclude.Findings)

	var n int
	findings, n = rules.Filter(findings)
	totalSuppressed += n

	return findings, totalSuppressed, nil
}

// filterBySeverity keeps findings at or above minimum. Unknown levels keep
// everything.
func filterBySeverity(findings []analyzer.Finding, minimum string) []analyzer.Finding {
	level := analyzer.Severity(strings.ToLower(minimum))
	switch level {
	case analyzer.SeverityHigh, analyzer.SeverityMedium, analyzer.SeverityLow, analyzer.SeverityInfo:
	default:
		return findings
	}
	threshold := analyzer.SeverityRank(level)

	var out []analyzer.Finding
	for _, f := range findings {
		if analyzer.SeverityRank(f.Severity) >= threshold {
			out = append(out, f)
		}
	}
	return out
}

// shouldFailOn returns true if any finding matches the fail-on criteria.
// Criteria can be finding types (FAILED_UPDATE_TASK) or severity levels (high, medium).
func shouldFailOn(findings []analyzer.Finding, failOn string) bool {
	types := make(map[string]bool)
	severities := make(map[string]bool)

	for _, p := range strings.Split(failOn, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lower := strings.ToLower(p)
		switch lower {
		case "high", "medium", "low", "info":
			severities[lower] = true
		default:
			types[strings.ToUpper(p)] = true
		}
	}

	for _, f := range findings {
		if types[string(f.Type)] || severities[string(f.Severity)] {
			return true
		}
	}
	return false
}
