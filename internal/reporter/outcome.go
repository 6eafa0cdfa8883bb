package reporter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/restore"
	"github.com/ppiankov/ctxrestore/internal/state"
)

// FileSummary describes one produced temp file.
type FileSummary struct {
	Schema string `json:"schema"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// OutcomeReport is the printable form of a restore outcome.
type OutcomeReport struct {
	Metadata    Metadata                   `json:"metadata"`
	ContextID   int                        `json:"contextId"`
	PoolID      int                        `json:"poolId"`
	Schema      string                     `json:"schema,omitempty"`
	TempFiles   []FileSummary              `json:"tempFiles"`
	UpdateTasks dump.UpdateTaskInformation `json:"updateTasks"`
	Tables      []dump.TableInfo           `json:"tables"`
	Files       []string                   `json:"files"`
	Stats       dump.Stats                 `json:"stats"`
	Duration    string                     `json:"duration"`
}

// NewOutcomeReport summarizes out, hashing every temp file.
func NewOutcomeReport(out *restore.Outcome, version string) (*OutcomeReport, error) {
	files, err := DescribeTempFiles(out.TempFiles)
	if err != nil {
		return nil, err
	}

	r := &OutcomeReport{
		Metadata: Metadata{
			Tool:      "ctxrestore",
			Version:   version,
			Command:   "parse",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		ContextID:   out.ContextID,
		PoolID:      out.PoolID,
		Schema:      out.Schema,
		TempFiles:   files,
		UpdateTasks: out.UpdateTasks,
		Files:       out.Sources(),
		Duration:    out.Duration.Round(time.Millisecond).String(),
	}
	if r.UpdateTasks == nil {
		r.UpdateTasks = dump.UpdateTaskInformation{}
	}

	// the pass that wrote a table reports its rows; others report zero
	index := make(map[string]int)
	for _, p := range out.Results {
		st := p.Result.Stats
		r.Stats.BytesRead += st.BytesRead
		r.Stats.InsertStatements += st.InsertStatements
		r.Stats.RowsWritten += st.RowsWritten
		r.Stats.SchemasOpened += st.SchemasOpened

		for _, t := range p.Result.Tables {
			key := t.Database + "." + t.Name
			if i, ok := index[key]; ok {
				if t.RowsWritten > r.Tables[i].RowsWritten {
					r.Tables[i] = t
				}
				continue
			}
			index[key] = len(r.Tables)
			r.Tables = append(r.Tables, t)
		}
	}
	if r.Tables == nil {
		r.Tables = []dump.TableInfo{}
	}
	return r, nil
}

// DescribeTempFiles stats and hashes the files of a schema to path map,
// sorted by schema.
func DescribeTempFiles(files map[string]string) ([]FileSummary, error) {
	out := make([]FileSummary, 0, len(files))
	for schema, path := range files {
		sum, size, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, FileSummary{Schema: schema, Path: path, Size: size, SHA256: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schema < out[j].Schema })
	return out, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// WriteOutcome prints a restore outcome as text or JSON.
func WriteOutcome(w io.Writer, r *OutcomeReport, format Format) error {
	if format == FormatJSON {
		return writeJSON(w, r)
	}

	tw := &textWriter{w: w, color: isTTY(w)}
	pool := "unresolved"
	if r.PoolID != -1 {
		pool = fmt.Sprintf("%d", r.PoolID)
	}
	schema := r.Schema
	if schema == "" {
		schema = "unresolved"
	}
	tw.printf("%s %d: pool %s, schema %s\n", tw.bold("Context"), r.ContextID, pool, schema)

	if len(r.TempFiles) == 0 {
		tw.printf("\nNo temp files written.\n")
	} else {
		tw.printf("\nTemp files:\n")
		for _, f := range r.TempFiles {
			tw.printf("  %-12s %s  %s  sha256:%s\n", f.Schema, f.Path, formatBytes(f.Size), f.SHA256[:16])
		}
	}

	writeTaskLines(tw, r.UpdateTasks)

	var written []dump.TableInfo
	for _, t := range r.Tables {
		if t.RowsWritten > 0 {
			written = append(written, t)
		}
	}
	if len(written) > 0 {
		tw.printf("\nTables with extracted rows:\n")
		for _, t := range written {
			tw.printf("  %s.%s: %d rows\n", t.Database, t.Name, t.RowsWritten)
		}
	}

	tw.printf("\nScanned %d files, %s, %d INSERT statements in %s\n",
		len(r.Files), formatBytes(r.Stats.BytesRead), r.Stats.InsertStatements, r.Duration)
	return tw.err
}

// WriteTasks prints update task information alone.
func WriteTasks(w io.Writer, tasks dump.UpdateTaskInformation, format Format) error {
	if format == FormatJSON {
		if tasks == nil {
			tasks = dump.UpdateTaskInformation{}
		}
		return writeJSON(w, tasks)
	}
	tw := &textWriter{w: w, color: isTTY(w)}
	writeTaskLines(tw, tasks)
	return tw.err
}

func writeTaskLines(tw *textWriter, tasks dump.UpdateTaskInformation) {
	if len(tasks) == 0 {
		tw.printf("\nNo update tasks found.\n")
		return
	}
	failed := 0
	for _, t := range tasks {
		if !t.Successful {
			failed++
		}
	}
	tw.printf("\nUpdate tasks: %d (%d failed)\n", len(tasks), failed)
	for _, t := range tasks {
		status := "ok  "
		if !t.Successful {
			status = "FAIL"
			if tw.color {
				status = colorRed + status + colorReset
			}
		}
		modified := time.UnixMilli(t.LastModified).UTC().Format(time.RFC3339)
		tw.printf("  [%s] cid=%-4d %s  %s\n", status, t.ContextID, modified, t.TaskName)
	}
}

// WriteRuns prints recorded runs, newest first.
func WriteRuns(w io.Writer, runs []state.Run, format Format) error {
	if format == FormatJSON {
		if runs == nil {
			runs = []state.Run{}
		}
		return writeJSON(w, runs)
	}
	tw := &textWriter{w: w, color: isTTY(w)}
	if len(runs) == 0 {
		tw.printf("No runs recorded.\n")
		return tw.err
	}
	for _, r := range runs {
		schema := r.Schema
		if schema == "" {
			schema = "-"
		}
		tw.printf("%s  %s  cid=%d pool=%d schema=%s tasks=%d  %s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.ID, r.ContextID, r.PoolID, schema, r.UpdateTasks, r.Duration)
		for _, src := range r.Sources {
			tw.printf("    %s\n", src)
		}
	}
	return tw.err
}

func formatBytes(b int64) string {
	switch {
	case b >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(b)/(1024*1024*1024))
	case b >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(b)/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%.1f KB", float64(b)/1024)
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
