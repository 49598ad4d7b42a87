package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanfind/internal/output"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear search history",
		Long: `Show recent searches. Use 'amanfind history clear' to forget all
learned ranking data: interactions, the search log and query telemetry.
Catalog records are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of searches to show")
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget interactions, search history and telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryClear(cmd.Context(), cmd)
		},
	}
}

func runHistory(ctx context.Context, cmd *cobra.Command, limit int) error {
	out := output.New(cmd.OutOrStdout())

	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.RecentSearches(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		out.Status("·", "No searches recorded")
		return nil
	}
	for _, e := range entries {
		out.Statusf("", "%s  %-30q %d results", e.At.Local().Format("2006-01-02 15:04"), e.Query, e.ResultCount)
	}
	return nil
}

func runHistoryClear(ctx context.Context, cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.engine.ClearHistory()
	if err := a.store.ClearHistory(ctx); err != nil {
		return err
	}

	ms := a.metricsStore
	if ms == nil {
		// Telemetry may be off now but have data from earlier runs.
		if ms, err = telemetry.NewSQLiteMetricsStore(a.store.DB()); err != nil {
			return err
		}
	}
	if err := ms.Clear(); err != nil {
		return err
	}

	slog.Info("history cleared", slog.String("catalog", a.store.Path()))
	out.Success("Cleared interactions, search history and query telemetry")
	return nil
}
