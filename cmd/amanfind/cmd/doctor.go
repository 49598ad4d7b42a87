package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/config"
	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/logging"
	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/preflight"
)

// DoctorOutput is the JSON output of `amanfind doctor`.
type DoctorOutput struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd() *cobra.Command {
	var verbose, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and the catalog",
		Long: `Run diagnostics for amanfind.

Checks:
  - Configuration is valid
  - Disk space at the catalog location (10MB minimum)
  - Write permission in the catalog directory
  - File descriptor limit (256 minimum, warning only)
  - Catalog integrity
  - Log directory is writable (warning only)`,
		Example: `  amanfind doctor
  amanfind doctor --verbose
  amanfind doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command, verbose, jsonOutput bool) error {
	// An invalid config is reported as a check; the rest runs on defaults.
	cfg, cfgErr := loadConfig()
	if cfgErr != nil {
		cfg = config.NewConfig()
		if catalogFlag != "" {
			cfg.Catalog.Path = catalogFlag
		}
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithCheck(func(context.Context) preflight.CheckResult {
			return checkConfig(cfgErr)
		}),
		preflight.WithCheck(func(ctx context.Context) preflight.CheckResult {
			return checkCatalog(ctx, cfg.Catalog.Path)
		}),
		preflight.WithCheck(func(context.Context) preflight.CheckResult {
			return checkLogDir()
		}),
	)

	results := checker.RunAll(ctx, cfg.Catalog.Path)

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout()).JSON(DoctorOutput{
			Status: checker.SummaryStatus(results),
			Checks: results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return apperrors.New(apperrors.ErrCodeInternal, "system check failed", nil).
			WithSuggestion("Run 'amanfind doctor --verbose' for details")
	}
	return nil
}

func checkConfig(err error) preflight.CheckResult {
	r := preflight.CheckResult{Name: "config", Required: true, Status: preflight.StatusPass, Message: "OK"}
	if err != nil {
		r.Status = preflight.StatusFail
		r.Message = err.Error()
		if ae, ok := apperrors.As(err); ok {
			r.Message = ae.Message
			r.Details = ae.Suggestion
		}
	}
	return r
}

func checkCatalog(ctx context.Context, path string) preflight.CheckResult {
	r := preflight.CheckResult{Name: "catalog_integrity", Required: true, Details: path}

	store, err := catalog.OpenSQLite(path)
	if err != nil {
		r.Status = preflight.StatusFail
		r.Message = err.Error()
		return r
	}
	defer func() { _ = store.Close() }()

	if err := store.IntegrityCheck(ctx); err != nil {
		r.Status = preflight.StatusFail
		r.Message = err.Error()
		return r
	}
	n, err := store.Count(ctx)
	if err != nil {
		r.Status = preflight.StatusFail
		r.Message = err.Error()
		return r
	}

	r.Status = preflight.StatusPass
	r.Message = fmt.Sprintf("OK (%d records)", n)
	if n == 0 {
		r.Status = preflight.StatusWarn
		r.Message = "catalog is empty; run 'amanfind import <file>'"
	}
	return r
}

func checkLogDir() preflight.CheckResult {
	r := preflight.New().CheckWritePermissions(logging.DefaultLogDir())
	r.Name = "log_directory"
	r.Required = false
	if r.Status == preflight.StatusFail {
		r.Status = preflight.StatusWarn
	}
	return r
}
