// Package cmd provides the CLI commands for rankfuse.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rankfuse/internal/logging"
	"github.com/Aman-CERP/rankfuse/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the rankfuse CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rankfuse",
		Short: "Hybrid code search with BM25 and rank fusion",
		Long: `rankfuse indexes a codebase into a BM25 keyword index plus a
fuzzy full-text index, and answers queries by fusing the ranked
lists with weighted Reciprocal Rank Fusion.

Run 'rankfuse index' in a project directory, then 'rankfuse search'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("rankfuse version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the default slog logger before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg.Level = "debug"
	} else {
		// Keep command output clean; structured logs only in debug mode.
		logCfg.Level = "error"
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("command_failed", slog.String("error", err.Error()))
		root.PrintErrln("Error:", err.Error())
		return err
	}
	return nil
}
