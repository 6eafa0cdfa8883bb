package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
)

// Baseline holds fingerprints of previously accepted findings.
type Baseline struct {
	Fingerprints []string `json:"fingerprints"`
	set          map[string]bool
}

// Load reads a baseline file. Returns an empty baseline if the file does not exist.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Baseline{set: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	b.set = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.set[fp] = true
	}
	return &b, nil
}

// Save writes the fingerprints of findings to path, replacing its content.
func Save(path string, findings []analyzer.Finding) error {
	return write(path, fingerprints(findings))
}

// Update adds the fingerprints of findings to the baseline at path,
// keeping the ones already accepted there.
func Update(path string, findings []analyzer.Finding) error {
	b, err := Load(path)
	if err != nil {
		return err
	}
	return write(path, append(b.Fingerprints, fingerprints(findings)...))
}

func fingerprints(findings []analyzer.Finding) []string {
	fps := make([]string, 0, len(findings))
	for i := range findings {
		fps = append(fps, Fingerprint(&findings[i]))
	}
	return fps
}

func write(path string, fps []string) error {
	sort.Strings(fps)
	unique := fps[:0]
	for i, fp := range fps {
		if i == 0 || fp != fps[i-1] {
			unique = append(unique, fp)
		}
	}

	data, err := json.MarshalIndent(Baseline{Fingerprints: unique}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// Contains returns true if the finding's fingerprint is in the baseline.
func (b *Baseline) Contains(f *analyzer.Finding) bool {
	return b.set[Fingerprint(f)]
}

// Filter removes baselined findings and returns the remaining ones.
// Returns the filtered list and the number of suppressed findings.
func (b *Baseline) Filter(findings []analyzer.Finding) ([]analyzer.Finding, int) {
	if len(b.set) == 0 {
		return findings, 0
	}

	var filtered []analyzer.Finding
	suppressed := 0
	for i := range findings {
		if b.Contains(&findings[i]) {
			suppressed++
		} else {
			filtered = append(filtered, findings[i])
		}
	}
	return filtered, suppressed
}

// Fingerprint computes a stable identifier for a finding from its type,
// schema, table and task. Messages and details are not part of it.
func Fingerprint(f *analyzer.Finding) string {
	key := strings.Join([]string{string(f.Type), f.Schema, f.Table, f.Task}, "|")
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:16])
}
