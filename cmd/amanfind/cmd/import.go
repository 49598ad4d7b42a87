package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/output"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import file records into the catalog",
		Long: `Import file records from a JSON or YAML file into the catalog.

The file holds either a list of records or an object with a "files" list.
Records with an existing ID replace the stored record. The whole file is
validated before anything is written.`,
		Example: `  amanfind import records.json
  amanfind import records.yaml --catalog ./catalog.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd, args[0])
		},
	}
}

func runImport(ctx context.Context, cmd *cobra.Command, path string) error {
	out := output.New(cmd.OutOrStdout())

	records, err := catalog.LoadRecords(path)
	if err != nil {
		return err
	}

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.PutAll(ctx, records)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	slog.Info("records imported",
		slog.String("source", path),
		slog.Int("imported", n),
		slog.Int("catalog_total", total))

	out.Successf("Imported %d records from %s", n, path)
	out.Statusf("📁", "Catalog: %s (%d records)", store.Path(), total)
	return nil
}
