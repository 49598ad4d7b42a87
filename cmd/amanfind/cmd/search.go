package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	noFuzzy bool
	format  string // "text", "json"
	explain bool
}

// SearchOutput is the JSON output of `amanfind search`.
type SearchOutput struct {
	Query           string           `json:"query"`
	FiltersDetected string           `json:"filters_detected,omitempty"`
	Total           int              `json:"total"`
	Results         []*search.Result `json:"results"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long: `Search the catalog by name, tags, description and category words.

Filters can be mixed into the query:
  @type:image         record type
  @ext:pdf            extension
  @size:>10mb         larger than (< for smaller; kb, mb, gb)
  @date:>2024-01-01   uploaded after a date (< for before)`,
		Example: `  amanfind search vacation
  amanfind search "invoice @ext:pdf @date:>2024-01-01"
  amanfind search photos --limit 5 --explain
  amanfind search "vacaton" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, q, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.noFuzzy, "no-fuzzy", false, "Disable typo-tolerant matching")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show how the query was interpreted and scored")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, q string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.requireRecords(); err != nil {
		return err
	}

	limit := opts.limit
	if !cmd.Flags().Changed("limit") {
		limit = a.cfg.Search.DefaultLimit
	}

	results, err := a.engine.Search(ctx, q, search.SearchOptions{
		Limit:    limit,
		UseFuzzy: a.cfg.Search.FuzzyEnabled() && !opts.noFuzzy,
		Explain:  opts.explain,
	})
	if err != nil {
		return err
	}

	if err := a.store.LogSearch(ctx, q, len(results), time.Now()); err != nil {
		slog.Warn("failed to log search", slog.String("error", err.Error()))
	}
	slog.Info("search_complete",
		slog.String("query", q),
		slog.Int("limit", limit),
		slog.Int("results", len(results)))

	var filters string
	if f := a.engine.ParseQuery(q); f.HasConstraints() {
		filters = f.String()
	}

	if format == output.FormatJSON {
		if results == nil {
			results = []*search.Result{}
		}
		return out.JSON(SearchOutput{
			Query:           q,
			FiltersDetected: filters,
			Total:           len(results),
			Results:         results,
		})
	}

	if filters != "" && !opts.explain {
		out.Statusf("🔎", "Filters: %s", filters)
	}
	out.Results(results, opts.explain)
	return nil
}

func newSuggestCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest file names for a partial query",
		Example: `  amanfind suggest vac
  amanfind suggest rep --limit 10 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd.Context(), cmd, strings.Join(args, " "), limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of suggestions (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runSuggest(ctx context.Context, cmd *cobra.Command, prefix string, limit int, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !cmd.Flags().Changed("limit") {
		limit = a.cfg.Search.SuggestLimit
	}

	sugs, err := a.engine.Suggest(ctx, prefix, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if sugs == nil {
			sugs = []search.Suggestion{}
		}
		return out.JSON(sugs)
	}
	out.Suggestions(sugs)
	return nil
}
