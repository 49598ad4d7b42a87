package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/search"
)

// IndexOutput is the JSON output of `amanfind index`.
type IndexOutput struct {
	Catalog        string       `json:"catalog"`
	CatalogRecords int          `json:"catalog_records"`
	Coverage       float64      `json:"coverage_pct"`
	DurationMS     int64        `json:"duration_ms"`
	Engine         search.Stats `json:"engine"`
}

func newIndexCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the search index and report its state",
		Long: `Rebuild the in-memory search index from every record in the catalog
and report how much of the catalog it covers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())
	start := time.Now()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	total, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	stats := a.engine.Stats()
	res := IndexOutput{
		Catalog:        a.store.Path(),
		CatalogRecords: total,
		Coverage:       coverage(stats.TotalIndexed, total),
		DurationMS:     time.Since(start).Milliseconds(),
		Engine:         stats,
	}

	if jsonOutput {
		return out.JSON(res)
	}

	out.Progress(stats.TotalIndexed, total, "records indexed")
	if stats.TotalIndexed < total {
		out.Newline()
	}
	out.Successf("Indexed %d of %d records (%.1f%%) in %dms",
		stats.TotalIndexed, total, res.Coverage, res.DurationMS)
	out.Statusf("🔤", "Tokens: %d, trie depth: %d", stats.TrieTokens, stats.TrieDepth)
	return nil
}

// coverage is the indexed share of the catalog in percent. An empty catalog
// is fully covered.
func coverage(indexed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(indexed) / float64(total) * 100
}
