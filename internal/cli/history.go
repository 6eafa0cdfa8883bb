package cli

import (
	"fmt"

	"github.com/ppiankov/ctxrestore/internal/reporter"
	"github.com/ppiankov/ctxrestore/internal/state"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List parse runs recorded in the state database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDBPath == "" {
				return fmt.Errorf("--state-db is required")
			}
			f, err := reporter.ParseFormat(outputFormat(cmd, format))
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			store, err := state.Open(ctx, stateDBPath)
			if err != nil {
				return fmt.Errorf("open state: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.Runs(ctx, limit)
			if err != nil {
				return err
			}
			return reporter.WriteRuns(cmd.OutOrStdout(), runs, f)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")

	return cmd
}

func newResetCmd() *cobra.Command {
	var removeFiles bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the temp files recorded in the state database",
		Long:  "Drops the schema to temp file mappings so the next parse extracts every schema again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDBPath == "" {
				return fmt.Errorf("--state-db is required")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			store, err := state.Open(ctx, stateDBPath)
			if err != nil {
				return fmt.Errorf("open state: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.ResetTempFiles(ctx, removeFiles)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d temp files.\n", n)
			return err
		},
	}

	cmd.Flags().BoolVar(&removeFiles, "remove-files", false, "also delete the files from disk")

	return cmd
}
