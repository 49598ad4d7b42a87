package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/config"
	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/search"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

// app is the state shared by the commands that search: the catalog, the
// records and interactions loaded from it, and an engine indexed over them.
type app struct {
	cfg          *config.Config
	store        *catalog.SQLiteStore
	records      *catalog.Memory
	interactions *interaction.Store
	engine       *search.Engine
	metrics      *telemetry.QueryMetrics
	metricsStore *telemetry.SQLiteMetricsStore
	logger       *slog.Logger
}

// loadConfig loads configuration for the working directory and applies the
// --catalog flag.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, apperrors.InternalError("cannot determine working directory", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, apperrors.ConfigError(err.Error(), err).
			WithSuggestion("Check the config with 'amanfind config show' or fix " + config.ProjectConfigName)
	}
	if catalogFlag != "" {
		cfg.Catalog.Path = catalogFlag
	}
	return cfg, nil
}

// openStore opens the configured catalog without building an index.
func openStore() (*config.Config, *catalog.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := catalog.OpenSQLite(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// openApp opens the catalog, restores learned interactions and builds the
// index.
func openApp(ctx context.Context) (*app, error) {
	cfg, store, err := openStore()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		store:        store,
		records:      catalog.NewMemory(),
		interactions: interaction.NewStore(),
		logger:       slog.Default(),
	}
	if err := a.init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	snaps, err := a.store.LoadInteractions(ctx)
	if err != nil {
		return err
	}
	a.interactions.Restore(snaps)

	if a.cfg.Telemetry.IsEnabled() {
		ms, err := telemetry.NewSQLiteMetricsStore(a.store.DB())
		if err != nil {
			return apperrors.InternalError("failed to open telemetry store", err)
		}
		a.metricsStore = ms
		mcfg := telemetry.DefaultQueryMetricsConfig()
		if a.cfg.Telemetry.HistoryCapacity > 0 {
			mcfg.HistoryCapacity = a.cfg.Telemetry.HistoryCapacity
		}
		if a.cfg.Telemetry.TopTerms > 0 {
			mcfg.TopTermsCapacity = a.cfg.Telemetry.TopTerms
		}
		a.metrics = telemetry.NewQueryMetricsWithConfig(ms, mcfg)
	}

	// Each process gets its own registry; nothing scrapes the CLI.
	collectors := telemetry.NewCollectors(prometheus.NewRegistry())

	a.engine, err = search.NewEngine(a.interactions, append(engineOptions(a.cfg),
		search.WithRecordSource(a.records),
		search.WithMetrics(a.metrics),
		search.WithCollectors(collectors),
		search.WithLogger(a.logger),
	)...)
	if err != nil {
		return apperrors.InternalError("failed to create search engine", err)
	}

	return a.reload(ctx)
}

// reload re-reads every record from the catalog and rebuilds the index.
func (a *app) reload(ctx context.Context) error {
	all, err := a.store.All(ctx)
	if err != nil {
		return err
	}
	a.records.Replace(all)
	if _, err := a.engine.Rebuild(ctx, all); err != nil {
		return apperrors.New(apperrors.ErrCodeIndexFailed, "failed to build search index", err)
	}
	return nil
}

// Close flushes telemetry and closes the catalog.
func (a *app) Close() error {
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Warn("failed to flush query metrics", slog.String("error", err.Error()))
		}
	}
	return a.store.Close()
}

// engineOptions converts configuration into engine options.
func engineOptions(cfg *config.Config) []search.EngineOption {
	ec := search.DefaultConfig()
	ec.MaxLimit = cfg.Search.MaxLimit
	ec.MaxDistance = cfg.Search.MaxDistance
	ec.Workers = cfg.Search.Workers

	opts := []search.EngineOption{
		search.WithConfig(ec),
		search.WithScorerWeights(weightsFromConfig(cfg.Scoring)),
	}
	if len(cfg.Synonyms) > 0 {
		opts = append(opts, search.WithExpander(
			search.NewSemanticExpander(search.WithCustomSynonyms(cfg.Synonyms))))
	}
	return opts
}

// weightsFromConfig overlays the non-zero scoring settings on the default
// weights.
func weightsFromConfig(s config.ScoringConfig) search.Weights {
	w := search.DefaultWeights()
	for _, f := range []struct {
		dst *float64
		v   float64
	}{
		{&w.Exact, s.Exact},
		{&w.Prefix, s.Prefix},
		{&w.Fuzzy, s.Fuzzy},
		{&w.Semantic, s.Semantic},
		{&w.Filter, s.Filter},
		{&w.NameExact, s.NameExact},
		{&w.NamePrefix, s.NamePrefix},
		{&w.NameContains, s.NameContains},
		{&w.View, s.View},
		{&w.Download, s.Download},
		{&w.Select, s.Select},
		{&w.RecencyPerDay, s.RecencyPoint},
		{&w.PriorQuery, s.PriorQuery},
	} {
		if f.v != 0 {
			*f.dst = f.v
		}
	}
	if s.RecencyDays > 0 {
		w.RecencyDays = s.RecencyDays
	}
	return w
}

// requireRecords returns a helpful error when the catalog is empty.
func (a *app) requireRecords() error {
	if a.records.Len() > 0 {
		return nil
	}
	return apperrors.New(apperrors.ErrCodeInvalidInput,
		fmt.Sprintf("catalog %s has no records", a.store.Path()), nil).
		WithSuggestion("Import records first: amanfind import records.json")
}
