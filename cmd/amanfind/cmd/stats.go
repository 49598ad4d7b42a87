package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/search"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

// StatsOutput is the JSON output of `amanfind stats`.
type StatsOutput struct {
	Engine         search.Stats                      `json:"engine"`
	CatalogRecords int                               `json:"catalog_records"`
	Coverage       float64                           `json:"coverage_pct"`
	Days           int                               `json:"days"`
	QueryKinds     map[telemetry.QueryKind]int64     `json:"query_kinds,omitempty"`
	Latency        map[telemetry.LatencyBucket]int64 `json:"latency_distribution,omitempty"`
	TopTerms       []telemetry.TermCount             `json:"top_terms,omitempty"`
	ZeroResults    []string                          `json:"zero_result_queries,omitempty"`
	RecentSearches []catalog.SearchLogEntry          `json:"recent_searches,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and query statistics",
		Long: `Show the index state and local query telemetry:
  - records indexed and catalog coverage
  - query kind distribution (text, filter, mixed)
  - latency distribution
  - top query terms and zero-result queries
  - recent searches`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput, days, top)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days of telemetry to include")
	cmd.Flags().IntVar(&top, "top", 10, "Number of top terms and recent searches to show")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool, days, top int) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	total, err := a.store.Count(ctx)
	if err != nil {
		return err
	}
	engine := a.engine.Stats()
	res := StatsOutput{
		Engine:         engine,
		CatalogRecords: total,
		Coverage:       coverage(engine.TotalIndexed, total),
		Days:           days,
	}

	res.RecentSearches, err = a.store.RecentSearches(ctx, top)
	if err != nil {
		return err
	}
	// The engine counts only this process; the search log covers all runs.
	if res.Engine.TotalSearches, err = a.store.CountSearches(ctx); err != nil {
		return err
	}

	if a.metricsStore != nil {
		to := time.Now()
		from := to.AddDate(0, 0, -max(days-1, 0))
		fromKey, toKey := from.Format("2006-01-02"), to.Format("2006-01-02")

		if res.QueryKinds, err = a.metricsStore.GetKindCounts(fromKey, toKey); err != nil {
			return err
		}
		if res.Latency, err = a.metricsStore.GetLatencyCounts(fromKey, toKey); err != nil {
			return err
		}
		if res.TopTerms, err = a.metricsStore.GetTopTerms(top); err != nil {
			return err
		}
		if res.ZeroResults, err = a.metricsStore.GetZeroResultQueries(top); err != nil {
			return err
		}
	}

	if jsonOutput {
		return out.JSON(res)
	}
	printStats(out, res, a.metricsStore != nil)
	return nil
}

func printStats(out *output.Writer, res StatsOutput, telemetryOn bool) {
	out.Status("📦", "Index")
	out.Statusf("", "Records indexed:   %d of %d (%.1f%%)", res.Engine.TotalIndexed, res.CatalogRecords, res.Coverage)
	out.Statusf("", "Tokens:            %d (trie depth %d)", res.Engine.TrieTokens, res.Engine.TrieDepth)
	out.Statusf("", "Files with usage:  %d", res.Engine.InteractionCount)
	out.Statusf("", "Searches logged:   %d", res.Engine.TotalSearches)
	out.Newline()

	if !telemetryOn {
		out.Status("📊", "Telemetry is disabled")
	} else {
		out.Statusf("📊", "Queries (last %d days)", res.Days)
		out.Statusf("", "Kinds:     %s", formatCounts(res.QueryKinds))
		out.Statusf("", "Latency:   %s", formatCounts(res.Latency))
		terms := make([]string, len(res.TopTerms))
		for i, tc := range res.TopTerms {
			terms[i] = fmt.Sprintf("%s(%d)", tc.Term, tc.Count)
		}
		out.Statusf("", "Top terms: %s", orNone(strings.Join(terms, " ")))
		out.Statusf("", "No hits:   %s", orNone(strings.Join(res.ZeroResults, ", ")))
	}

	if len(res.RecentSearches) > 0 {
		out.Newline()
		out.Status("🕘", "Recent searches")
		for _, s := range res.RecentSearches {
			out.Statusf("", "%s  %-30q %d results", s.At.Local().Format("2006-01-02 15:04"), s.Query, s.ResultCount)
		}
	}
}

// formatCounts renders a count map as "k=v" pairs sorted by key.
func formatCounts[K ~string](m map[K]int64) string {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return orNone(strings.Join(parts, " "))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
