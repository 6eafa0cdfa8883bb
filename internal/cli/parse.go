package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/ctxrestore/internal/dump"
	"github.com/ppiankov/ctxrestore/internal/metrics"
	"github.com/ppiankov/ctxrestore/internal/reporter"
	"github.com/ppiankov/ctxrestore/internal/restore"
	"github.com/ppiankov/ctxrestore/internal/state"
	"github.com/spf13/cobra"
)

func newParseCmd(info BuildInfo) *cobra.Command {
	var (
		cid         int
		schema      string
		tempDir     string
		format      string
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "parse DUMP|DIR...",
		Short: "Extract the rows of one context into per-schema SQL files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cid") {
				return fmt.Errorf("--cid is required")
			}
			f, err := reporter.ParseFormat(outputFormat(cmd, format))
			if err != nil {
				return err
			}
			if tempDir == "" {
				tempDir = cfg.TempDir
			}
			if metricsFile == "" {
				metricsFile = cfg.MetricsFile
			}

			files, err := restore.ExpandInputs(args)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			m := metrics.New()
			opts := restore.Options{
				ContextID:    cid,
				ConfigDBName: configDBName,
				Schema:       schema,
				Logger:       slog.Default(),
				Observe:      m.Observe,
			}

			var store *state.Store
			if stateDBPath != "" {
				store, err = state.Open(ctx, stateDBPath)
				if err != nil {
					return fmt.Errorf("open state: %w", err)
				}
				defer func() { _ = store.Close() }()
				opts.TempFiles = store.TempFiles(tempDir)
			} else {
				opts.TempFiles = dump.NewTempFileMap(tempDir)
			}

			out, err := restore.Run(ctx, files, opts)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			slog.Info("parse complete", "pool_id", out.PoolID, "schema", out.Schema,
				"temp_files", len(out.TempFiles), "update_tasks", len(out.UpdateTasks))

			if store != nil {
				id, err := store.RecordRun(ctx, out)
				if err != nil {
					return fmt.Errorf("record run: %w", err)
				}
				slog.Debug("run recorded", "id", id)
			}

			if metricsFile != "" {
				if err := m.WriteTextfile(metricsFile); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			report, err := reporter.NewOutcomeReport(out, info.Version)
			if err != nil {
				return err
			}
			if err := reporter.WriteOutcome(cmd.OutOrStdout(), report, f); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&cid, "cid", 0, "context id to extract (required)")
	cmd.Flags().StringVar(&schema, "schema", "", "tenant schema, if already known")
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "directory for extracted SQL files (default: os temp dir)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	return cmd
}

func newTasksCmd() *cobra.Command {
	var (
		cid    int
		schema string
		format string
	)

	cmd := &cobra.Command{
		Use:   "tasks DUMP|DIR...",
		Short: "List the update tasks recorded for a context without writing any files",
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

			start := time.Now()
			out, err := restore.Run(ctx, files, restore.Options{
				ContextID:    cid,
				ConfigDBName: configDBName,
				Schema:       schema,
				TempFiles:    discardTempFiles{},
			})
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			slog.Info("tasks extracted", "update_tasks", len(out.UpdateTasks), "duration", time.Since(start))

			return reporter.WriteTasks(cmd.OutOrStdout(), out.UpdateTasks, f)
		},
	}

	cmd.Flags().IntVar(&cid, "cid", 0, "context id (required)")
	cmd.Flags().StringVar(&schema, "schema", "", "tenant schema, if already known")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")

	return cmd
}

// discardTempFiles reports every schema as already extracted, so the
// parser scans without writing anything.
type discardTempFiles struct{}

func (discardTempFiles) Lookup(string) (string, bool) { return "", true }

func (discardTempFiles) Create(schema string) (io.WriteCloser, string, error) {
	return nil, "", fmt.Errorf("create %s: output is discarded", schema)
}

func (discardTempFiles) Schemas() []string { return nil }
