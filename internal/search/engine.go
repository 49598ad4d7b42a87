package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/query"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
	"github.com/Aman-CERP/amanfind/internal/trie"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ErrNilRecord is returned when a nil record is indexed.
var ErrNilRecord = errors.New("nil record")

// entry is the projection of a record kept by the index for filtering,
// scoring and result display.
type entry struct {
	name       string
	typ        string
	ext        string
	size       int64
	uploadedAt string
	attrs      query.Attributes
}

func project(rec *catalog.FileRecord) *entry {
	ent := &entry{
		name:       rec.Name,
		typ:        rec.Type,
		ext:        rec.Extension,
		size:       rec.Size,
		uploadedAt: rec.UploadedAt,
		attrs: query.Attributes{
			Type:      rec.Type,
			Extension: rec.Extension,
			Size:      rec.Size,
		},
	}
	if t, ok := rec.UploadTime(); ok {
		ent.attrs.UploadedAt = &t
	}
	return ent
}

// snapshot is one generation of the index. IndexFile adds to the live
// snapshot; Rebuild builds a new one and swaps it in.
type snapshot struct {
	trie *trie.Trie

	mu      sync.RWMutex
	entries map[int64]*entry
	order   []int64 // first-index order
}

func newSnapshot() *snapshot {
	return &snapshot{
		trie:    trie.New(),
		entries: make(map[int64]*entry),
	}
}

// put stores the projection before the tokens so a search never finds an ID
// it cannot resolve.
func (s *snapshot) put(id int64, ent *entry, tokens []string) {
	s.mu.Lock()
	if _, ok := s.entries[id]; !ok {
		s.order = append(s.order, id)
	}
	s.entries[id] = ent
	s.mu.Unlock()

	for _, tok := range tokens {
		s.trie.Insert(tok, id)
	}
}

func (s *snapshot) lookup(id int64) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.entries[id]
	return ent, ok
}

func (s *snapshot) ids() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

func (s *snapshot) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Engine is the adaptive file search engine. It is safe for concurrent use:
// searches run in parallel, while indexing and rebuilds are serialized.
type Engine struct {
	index   atomic.Pointer[snapshot]
	writeMu sync.Mutex

	interactions *interaction.Store
	expander     *SemanticExpander
	weights      Weights
	scorer       *Scorer
	source       RecordSource
	metrics      *telemetry.QueryMetrics
	collectors   *telemetry.Collectors
	logger       *slog.Logger
	config       EngineConfig
	now          func() time.Time

	searches atomic.Int64
}

// Ensure Engine implements Searcher.
var _ Searcher = (*Engine)(nil)

// NewEngine creates an engine with an empty index that ranks with the usage
// signals in interactions.
func NewEngine(interactions *interaction.Store, opts ...EngineOption) (*Engine, error) {
	if interactions == nil {
		return nil, fmt.Errorf("%w: interaction store is required", ErrNilDependency)
	}

	e := &Engine{
		interactions: interactions,
		expander:     NewSemanticExpander(),
		weights:      DefaultWeights(),
		logger:       slog.Default(),
		config:       DefaultConfig(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.Workers <= 0 {
		e.config.Workers = runtime.GOMAXPROCS(0)
	}
	e.scorer = NewScorer(interactions, e.weights, e.now)
	e.index.Store(newSnapshot())
	return e, nil
}

// IndexFile adds rec to the live index. Indexing the same record again does
// not duplicate postings but does raise token frequencies.
func (e *Engine) IndexFile(rec *catalog.FileRecord) error {
	if rec == nil {
		return ErrNilRecord
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	idx := e.index.Load()
	idx.put(rec.ID, project(rec), IndexTokens(rec))
	e.collectors.SetIndexed(idx.len())
	return nil
}

// Rebuild replaces the whole index with one built from records and returns
// the number of distinct records indexed. Records are tokenized in parallel;
// the new index is published in one atomic swap, so concurrent searches see
// either the old or the new index, never a partial one. Nil records are
// skipped.
func (e *Engine) Rebuild(ctx context.Context, records []*catalog.FileRecord) (int, error) {
	start := time.Now()

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	tokens := make([][]string, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, rec := range records {
		if rec == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens[i] = IndexTokens(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("tokenize records: %w", err)
	}

	next := newSnapshot()
	skipped := 0
	for i, rec := range records {
		if rec == nil {
			skipped++
			continue
		}
		next.put(rec.ID, project(rec), tokens[i])
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e.index.Store(next)
	n := next.len()
	e.collectors.SetIndexed(n)
	e.collectors.ObserveRebuild()

	e.logger.Info("index rebuilt",
		slog.Int("records", n),
		slog.Int("skipped", skipped),
		slog.Int("tokens", next.trie.Tokens()),
		slog.Duration("duration", time.Since(start)))
	return n, nil
}

// plan is a parsed query ready for candidate generation.
type plan struct {
	filter       query.Filter
	terms        string // joined free-text terms, empty for filter-only queries
	implicitType string
}

// plan parses raw. A query that is nothing but a category word ("photos")
// becomes a type filter for that category.
func (e *Engine) plan(raw string) plan {
	f := query.Parse(raw)
	p := plan{filter: f, terms: f.JoinedTerms()}

	if p.terms != "" && f.Type == "" {
		if cat, ok := e.expander.Category(p.terms); ok {
			p.filter.Type = cat
			p.filter.Terms = nil
			p.implicitType = cat
			p.terms = ""
		}
	}
	return p
}

type candidate struct {
	id    int64
	match MatchType
}

// candidates collects matching IDs in discovery order: literal prefix
// matches (ascending ID), then matches found only through an expansion, then
// fuzzy-only matches. Each ID keeps the first, strongest match type.
func (e *Engine) candidates(ctx context.Context, idx *snapshot, p plan, useFuzzy bool) ([]candidate, []string, error) {
	if p.terms == "" {
		ids := idx.ids()
		out := make([]candidate, len(ids))
		for i, id := range ids {
			out[i] = candidate{id: id, match: MatchFilter}
		}
		return out, nil, nil
	}

	expansions := e.expander.Expand(p.terms)
	hits := make([][]int64, len(expansions)+1)

	g, gctx := errgroup.WithContext(ctx)
	for i, term := range expansions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits[i] = idx.trie.PrefixSearch(term)
			return nil
		})
	}
	if useFuzzy {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits[len(expansions)] = idx.trie.FuzzySearch(expansions[0], e.config.MaxDistance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []candidate
	seen := make(map[int64]bool)
	add := func(ids []int64, mt MatchType) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, candidate{id: id, match: mt})
			}
		}
	}
	add(hits[0], MatchExact)
	for _, h := range hits[1:len(expansions)] {
		add(h, MatchSemantic)
	}
	add(hits[len(expansions)], MatchFuzzy)

	return out, expansions[1:], nil
}

type scored struct {
	id        int64
	ent       *entry
	match     MatchType
	breakdown ScoreBreakdown
}

// Search returns up to opts.Limit results for raw, best first. Equal scores
// keep candidate discovery order. An empty query or a non-positive limit
// returns no results.
func (e *Engine) Search(ctx context.Context, raw string, opts SearchOptions) ([]*Result, error) {
	start := time.Now()

	if strings.TrimSpace(raw) == "" || opts.Limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.searches.Add(1)

	limit := opts.Limit
	if e.config.MaxLimit > 0 && limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}

	p := e.plan(raw)
	idx := e.index.Load()

	cands, expansions, err := e.candidates(ctx, idx, p, opts.UseFuzzy)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}

	ranked := make([]scored, 0, len(cands))
	for _, c := range cands {
		ent, ok := idx.lookup(c.id)
		if !ok || !p.filter.Matches(ent.attrs) {
			continue
		}
		ranked = append(ranked, scored{
			id:        c.id,
			ent:       ent,
			match:     c.match,
			breakdown: e.scorer.Breakdown(c.id, ent.name, p.terms, c.match),
		})
	}
	survivors := len(ranked)

	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.breakdown.Total, a.breakdown.Total)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]*Result, len(ranked))
	for i, s := range ranked {
		results[i] = e.toResult(s, opts.Explain)
	}

	if opts.Explain && len(results) > 0 {
		counts := make(map[MatchType]int)
		for _, c := range cands {
			counts[c.match]++
		}
		results[0].Explain = &ExplainData{
			Query:        raw,
			Filter:       p.filter,
			FilterText:   p.filter.String(),
			Terms:        p.terms,
			ImplicitType: p.implicitType,
			Expansions:   expansions,
			UseFuzzy:     opts.UseFuzzy,
			MaxDistance:  e.config.MaxDistance,
			Candidates:   counts,
			Survivors:    survivors,
		}
	}

	latency := time.Since(start)
	kind := queryKind(p)
	e.recordMetrics(raw, kind, len(results), latency)
	e.logger.Debug("search completed",
		slog.String("query", raw),
		slog.String("kind", string(kind)),
		slog.Int("candidates", len(cands)),
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	return results, nil
}

func (e *Engine) toResult(s scored, explain bool) *Result {
	r := &Result{
		ID:         s.id,
		Name:       s.ent.name,
		Type:       s.ent.typ,
		Extension:  s.ent.ext,
		Size:       s.ent.size,
		UploadedAt: s.ent.uploadedAt,
		Score:      s.breakdown.Total,
		MatchType:  s.match,
	}
	if e.source != nil {
		if rec, ok := e.source.Lookup(s.id); ok {
			r.Record = rec
		}
	}
	if explain {
		b := s.breakdown
		r.Breakdown = &b
	}
	return r
}

func queryKind(p plan) telemetry.QueryKind {
	switch {
	case p.terms == "":
		return telemetry.QueryKindFilter
	case p.filter.HasConstraints():
		return telemetry.QueryKindMixed
	default:
		return telemetry.QueryKindText
	}
}

// recordMetrics records query telemetry if collectors are configured.
func (e *Engine) recordMetrics(raw string, kind telemetry.QueryKind, results int, latency time.Duration) {
	e.collectors.ObserveSearch(kind, results, latency)
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       raw,
		Kind:        kind,
		ResultCount: results,
		Latency:     latency,
		Timestamp:   e.now(),
	})
}

// Suggest returns compact fuzzy results for autocomplete.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	results, err := e.Search(ctx, prefix, SearchOptions{Limit: limit, UseFuzzy: true})
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, len(results))
	for i, r := range results {
		out[i] = Suggestion{ID: r.ID, Name: r.Name, Type: r.Type, Score: r.Score, MatchType: r.MatchType}
	}
	return out, nil
}

// ParseQuery returns the filters detected in raw.
func (e *Engine) ParseQuery(raw string) query.Filter {
	return query.Parse(raw)
}

// RecordInteraction feeds a user interaction with record id back into
// ranking. IDs that are not indexed are accepted.
func (e *Engine) RecordInteraction(id int64, kind interaction.Kind, q string) error {
	if err := e.interactions.Record(id, kind, q); err != nil {
		return err
	}
	e.collectors.ObserveInteraction(string(kind))
	return nil
}

// ClearHistory forgets every interaction and the search history. The index
// is kept.
func (e *Engine) ClearHistory() {
	e.interactions.Clear()
	e.searches.Store(0)
	if e.metrics != nil {
		e.metrics.Reset()
	}
	e.logger.Info("search history cleared")
}

// Stats returns engine statistics.
func (e *Engine) Stats() Stats {
	idx := e.index.Load()
	return Stats{
		TotalIndexed:     idx.len(),
		TotalSearches:    e.searches.Load(),
		InteractionCount: e.interactions.Len(),
		TrieDepth:        idx.trie.Depth(),
		TrieTokens:       idx.trie.Tokens(),
	}
}
