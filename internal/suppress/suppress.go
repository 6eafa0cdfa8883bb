package suppress

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
)

// FileName is the ignore file looked up in the working directory.
const FileName = ".ctxrestore-ignore.yml"

// Suppression is a single rule in the ignore file. Table and Task accept a
// trailing '*'; empty fields match anything, but a rule needs at least one
// of Table, Task or Type.
type Suppression struct {
	Table  string `yaml:"table,omitempty"`
	Task   string `yaml:"task,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// IgnoreFile is the structure of .ctxrestore-ignore.yml.
type IgnoreFile struct {
	Suppressions []Suppression `yaml:"suppressions"`
}

// Rules holds loaded suppression rules from all sources.
type Rules struct {
	ignoreFile IgnoreFile
	// finding types from config exclude.findings
	configFindings []string
}

// LoadRules loads suppression rules from the ignore file in dir.
func LoadRules(dir string) (*Rules, error) {
	r := &Rules{}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &r.ignoreFile); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, s := range r.ignoreFile.Suppressions {
		if s.Table == "" && s.Task == "" && s.Type == "" {
			return nil, fmt.Errorf("%s: suppression %d matches nothing, set table, task or type", path, i+1)
		}
	}
	return r, nil
}

// WithConfigFindings adds finding-type suppressions from config.
func (r *Rules) WithConfigFindings(findings []string) {
	r.configFindings = findings
}

// IsSuppressed returns true if the finding should be suppressed.
func (r *Rules) IsSuppressed(f *analyzer.Finding) bool {
	for _, ft := range r.configFindings {
		if strings.EqualFold(string(f.Type), ft) {
			return true
		}
	}

	for _, s := range r.ignoreFile.Suppressions {
		if s.Table != "" && !analyzer.MatchTable(s.Table, f.Table) {
			continue
		}
		if s.Task != "" && !analyzer.MatchTable(s.Task, f.Task) {
			continue
		}
		if s.Type != "" && !strings.EqualFold(s.Type, string(f.Type)) {
			continue
		}
		return true
	}

	return false
}

// Filter removes suppressed findings and returns the remaining ones.
// Returns the filtered list and the number of suppressed findings.
func (r *Rules) Filter(findings []analyzer.Finding) ([]analyzer.Finding, int) {
	if len(r.ignoreFile.Suppressions) == 0 && len(r.configFindings) == 0 {
		return findings, 0
	}

	var filtered []analyzer.Finding
	suppressed := 0
	for i := range findings {
		if r.IsSuppressed(&findings[i]) {
			suppressed++
		} else {
			filtered = append(filtered, findings[i])
		}
	}
	return filtered, suppressed
}
