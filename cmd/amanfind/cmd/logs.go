package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/logging"
	"github.com/Aman-CERP/amanfind/internal/output"
)

type logsOptions struct {
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the last entries of the amanfind log (~/.amanfind/logs/amanfind.log).
Run any command with --debug to log at debug level.`,
		Example: `  amanfind logs
  amanfind logs -n 200 --level warn
  amanfind logs --filter "search_complete"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")
	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	if opts.level != "" && !logging.ValidLevel(opts.level) {
		return apperrors.ValidationError(fmt.Sprintf("invalid level %q", opts.level), nil).
			WithSuggestion("Use one of: debug, info, warn, error")
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		var err error
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return apperrors.ValidationError("invalid filter pattern", err)
		}
	}

	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return apperrors.IOError(err.Error(), err)
	}

	noColor := opts.noColor || !output.IsTTY(cmd.OutOrStdout()) || output.DetectNoColor()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: noColor,
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return apperrors.IOError(err.Error(), err)
	}
	viewer.Print(entries)
	return nil
}
