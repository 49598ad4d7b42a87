package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amanfind/internal/config"
	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage amanfind configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/amanfind/config.yaml)
  3. Project config (.amanfind.yaml in the working directory)
  4. Environment variables (AMANFIND_*)
  5. The --catalog flag`,
		Example: `  amanfind config init
  amanfind config init --project
  amanfind config show --json
  amanfind config restore`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())
	return cmd
}

// configTarget returns the user config path, or the project config path in
// the working directory.
func configTarget(project bool) (string, error) {
	if !project {
		return config.GetUserConfigPath(), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, config.ProjectConfigName), nil
}

func newConfigInitCmd() *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Long: `Write the default configuration to the user config file, or with
--project to .amanfind.yaml in the working directory. An existing file is
only replaced with --force, and is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&project, "project", false, "Write .amanfind.yaml in the working directory")
	return cmd
}

func runConfigInit(cmd *cobra.Command, force, project bool) error {
	out := output.New(cmd.OutOrStdout())

	path, err := configTarget(project)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return apperrors.ConfigError("failed to back up existing config", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return apperrors.ConfigError("failed to write config", err)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")
	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg  *config.Config
		desc string
		err  error
	)
	switch source {
	case "merged":
		if cfg, err = loadConfig(); err != nil {
			return err
		}
		desc = "merged (defaults + user + project + env + flags)"
	case "defaults":
		cfg = config.NewConfig()
		desc = "defaults"
	default:
		return apperrors.ValidationError(fmt.Sprintf("invalid source: %s (use: merged, defaults)", source), nil)
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Statusf("📋", "Configuration source: %s", desc)
	out.Newline()
	_, _ = fmt.Fprint(out.Out(), string(data))
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if !config.UserConfigExists() {
				path += " (not created; run 'amanfind config init')"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the newest configuration backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigRestore(cmd, project)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Restore .amanfind.yaml in the working directory")
	return cmd
}

func runConfigRestore(cmd *cobra.Command, project bool) error {
	out := output.New(cmd.OutOrStdout())

	path, err := configTarget(project)
	if err != nil {
		return err
	}
	backups, err := config.ListBackups(path)
	if err != nil {
		return apperrors.ConfigError("failed to list backups", err)
	}
	if len(backups) == 0 {
		return apperrors.New(apperrors.ErrCodeConfigNotFound, "no configuration backups found", nil).
			WithDetail("path", path).
			WithSuggestion("Backups are created by 'amanfind config init --force'")
	}

	if err := config.RestoreBackup(backups[0], path); err != nil {
		return apperrors.ConfigError("failed to restore backup", err)
	}
	out.Successf("Restored %s", path)
	out.Statusf("💾", "From: %s", backups[0])
	return nil
}
