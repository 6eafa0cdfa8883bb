package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ppiankov/ctxrestore/internal/config"
	"github.com/ppiankov/ctxrestore/internal/logging"
	"github.com/spf13/cobra"
)

// BuildInfo carries version metadata stamped in at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// ExitError asks main to exit with Code after output has been written.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var (
	verbose      bool
	logJSON      bool
	configDBName string
	stateDBPath  string
	cfg          config.Config
)

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "ctxrestore",
		Short: "Extract a single context from MySQL dumps",
		Long: "Scans mysqldump output for the rows of one context, writes them to per-schema\n" +
			"SQL files and reports the update tasks recorded for it.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Options{Verbose: verbose, JSON: logJSON, Output: cmd.ErrOrStderr()})

			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			cfg, err = config.Load(cwd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.Debug("config loaded", "path", cwd)

			if configDBName == "" {
				configDBName = cfg.ConfigDBName
			}
			if stateDBPath == "" {
				if env := os.Getenv("CTXRESTORE_STATE_DB"); env != "" {
					stateDBPath = env
				} else {
					stateDBPath = cfg.StateDB
				}
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	root.PersistentFlags().StringVar(&configDBName, "config-db", "", "name of the configdb schema (default from config: configdb)")
	root.PersistentFlags().StringVar(&stateDBPath, "state-db", "", "SQLite state database (or set CTXRESTORE_STATE_DB)")

	root.AddCommand(newVersionCmd(info))
	root.AddCommand(newParseCmd(info))
	root.AddCommand(newTasksCmd())
	root.AddCommand(newCheckCmd(info))
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newResetCmd())

	return root
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ctxrestore %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
			return err
		},
	}
}

// commandContext applies the configured timeout, if any.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := cfg.TimeoutDuration(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// outputFormat returns the flag value unless it was left at its default
// and the config names another one.
func outputFormat(cmd *cobra.Command, flagValue string) string {
	if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
		return cfg.Defaults.Format
	}
	return flagValue
}

// Execute runs the root command.
func Execute(version, commit, date string) error {
	return newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date}).Execute()
}
