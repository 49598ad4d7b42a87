// Package cmd provides the CLI commands for amanfind.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/logging"
	"github.com/Aman-CERP/amanfind/internal/profiling"
	"github.com/Aman-CERP/amanfind/pkg/version"
)

// Global flags
var (
	debugMode      bool
	catalogFlag    string
	loggingCleanup func()
)

// Profiling flags
var (
	profileTargets profiling.Targets
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the amanfind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amanfind",
		Short: "Adaptive fuzzy search over a file catalog",
		Long: `amanfind searches a catalog of file records by name, tags and
description. Queries can mix free text with filters:

  vacation @type:image @ext:jpg @size:>1mb @date:>2024-01-01

Typos are tolerated, category words expand to related terms, and results
you view, download or select rank higher next time.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amanfind version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (also mirrored to stderr)")
	cmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Catalog database path (default from config)")

	cmd.PersistentFlags().StringVar(&profileTargets.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileTargets.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTargets.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newInteractCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging installs the file logger and starts any requested
// profiles. A log file that cannot be opened degrades to a discarding logger
// rather than failing the command.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if profileTargets.Enabled() {
		s, err := profiling.Start(profileTargets)
		if err != nil {
			return err
		}
		profileSession = s
	}

	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	} else if lvl := os.Getenv("AMANFIND_LOG_LEVEL"); logging.ValidLevel(lvl) {
		cfg.Level = lvl
	}
	cfg.ImmediateSync = cmd.Name() == "watch"

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		slog.SetDefault(logging.Discard())
		if debugMode {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("command started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Short()))
	return nil
}

func stopProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if err := stopProfiling(); err != nil {
		return err
	}
	if loggingCleanup != nil {
		slog.Debug("command finished", slog.String("command", cmd.CommandPath()))
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		reportError(root.ErrOrStderr(), err)
	}
	return err
}

// reportError prints err in the CLI error format and logs it.
func reportError(w io.Writer, err error) {
	_, _ = fmt.Fprint(w, apperrors.FormatForCLI(err))
	attrs := apperrors.LogAttrs(err)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	slog.Error("command failed", args...)
	if err := stopProfiling(); err != nil {
		slog.Warn("failed to write profiles", slog.String("error", err.Error()))
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

func stopProfiling() error {
	if profileSession == nil {
		return nil
	}
	err := profileSession.Stop()
	profileSession = nil
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}
