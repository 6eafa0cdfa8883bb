// Package restore drives the dump parser over a set of dump files until the
// context's tenant schema has been located and extracted.
package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/ctxrestore/internal/dump"
)

// TempFiles is a dump.TempFiles that can enumerate its schemas.
type TempFiles interface {
	dump.TempFiles
	Schemas() []string
}

// Options configures a restore run.
type Options struct {
	ContextID    int
	ConfigDBName string
	// Schema is the tenant schema if already known.
	Schema    string
	TempFiles TempFiles
	Logger    *slog.Logger
	// Observe, if set, is called after every parsed file.
	Observe func(res *dump.Result, elapsed time.Duration)
}

// Parsed is the result of parsing one file in one pass.
type Parsed struct {
	Pass     int           `json:"pass"`
	Result   *dump.Result  `json:"result"`
	Duration time.Duration `json:"durationNs"`
}

// Outcome summarizes a restore run over all passes.
type Outcome struct {
	ContextID   int                        `json:"contextId"`
	PoolID      int                        `json:"poolId"`
	Schema      string                     `json:"schema,omitempty"`
	UpdateTasks dump.UpdateTaskInformation `json:"updateTasks"`
	Results     []Parsed                   `json:"results"`
	// TempFiles maps schema names to the files holding their rows.
	TempFiles map[string]string `json:"tempFiles"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"durationNs"`
}

// Sources returns the distinct dump files in the order they were parsed.
func (o *Outcome) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range o.Results {
		if !seen[p.Result.SourceFile] {
			seen[p.Result.SourceFile] = true
			out = append(out, p.Result.SourceFile)
		}
	}
	return out
}

// Run parses files with opts.Schema, then, if that pass discovered a
// different tenant schema, parses them again so the tenant rows are
// extracted as well. Schemas that already have a temp file are not
// rewritten by the second pass.
func Run(ctx context.Context, files []string, opts Options) (*Outcome, error) {
	if len(files) == 0 {
		return nil, errors.New("no dump files given")
	}
	if opts.TempFiles == nil {
		opts.TempFiles = dump.NewTempFileMap("")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	out := &Outcome{
		ContextID: opts.ContextID,
		PoolID:    -1,
		Schema:    opts.Schema,
		StartedAt: time.Now(),
	}

	log.Info("pass started", "pass", 1, "files", len(files), "schema", opts.Schema)
	if err := runPass(ctx, 1, files, opts.Schema, opts, log, out); err != nil {
		return nil, err
	}

	if out.Schema != "" && out.Schema != opts.Schema {
		log.Info("pass started", "pass", 2, "files", len(files), "schema", out.Schema)
		if err := runPass(ctx, 2, files, out.Schema, opts, log, out); err != nil {
			return nil, err
		}
	}

	out.TempFiles = make(map[string]string)
	for _, schema := range opts.TempFiles.Schemas() {
		if path, ok := opts.TempFiles.Lookup(schema); ok {
			out.TempFiles[schema] = path
		}
	}
	out.Duration = time.Since(out.StartedAt)
	log.Info("restore finished", "pool_id", out.PoolID, "schema", out.Schema,
		"update_tasks", len(out.UpdateTasks), "duration", out.Duration)
	return out, nil
}

func runPass(ctx context.Context, pass int, files []string, schema string, opts Options, log *slog.Logger, out *Outcome) error {
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		res, err := dump.ParseFile(path, dump.Options{
			ContextID:    opts.ContextID,
			ConfigDBName: opts.ConfigDBName,
			Schema:       schema,
			TempFiles:    opts.TempFiles,
			Logger:       log.With("pass", pass),
		})
		if err != nil {
			return fmt.Errorf("pass %d: %w", pass, err)
		}
		elapsed := time.Since(start)

		out.Results = append(out.Results, Parsed{Pass: pass, Result: res, Duration: elapsed})
		if opts.Observe != nil {
			opts.Observe(res, elapsed)
		}

		if out.PoolID == -1 && res.PoolID != -1 {
			out.PoolID = res.PoolID
			out.Schema = res.Schema
		}
		if res.UpdateTasks != nil {
			out.UpdateTasks = res.UpdateTasks
		}
	}
	return nil
}
