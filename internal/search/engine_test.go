package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

// =============================================================================
// Helpers
// =============================================================================

var testNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func sampleRecords() []*catalog.FileRecord {
	return []*catalog.FileRecord{
		{ID: 1, Name: "vacation_photo.jpg", Type: "image", Extension: ".jpg", Size: 2 * 1024 * 1024, UploadedAt: "2024-03-10T08:00:00Z"},
		{ID: 2, Name: "vacation_video.mp4", Type: "video", Extension: "mp4", Size: 50 * 1024 * 1024, UploadedAt: "2024-05-01"},
		{ID: 3, Name: "report.pdf", Type: "document", Extension: "pdf", Size: 300 * 1024, UploadedAt: "2023-12-31T23:00:00Z", Tags: []string{"Finance"}},
	}
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *interaction.Store) {
	t.Helper()
	store := interaction.NewStore(interaction.WithClock(clock))
	e, err := NewEngine(store, append([]EngineOption{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	for _, rec := range sampleRecords() {
		require.NoError(t, e.IndexFile(rec))
	}
	return e, store
}

func ids(results []*Result) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func search(t *testing.T, e *Engine, q string, fuzzy bool) []*Result {
	t.Helper()
	results, err := e.Search(context.Background(), q, SearchOptions{Limit: 10, UseFuzzy: fuzzy})
	require.NoError(t, err)
	return results
}

// =============================================================================
// Construction
// =============================================================================

func TestNewEngine_NilInteractionStore(t *testing.T) {
	_, err := NewEngine(nil)
	require.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_IndexFile_NilRecord(t *testing.T) {
	e, _ := newTestEngine(t)
	require.ErrorIs(t, e.IndexFile(nil), ErrNilRecord)
}

// =============================================================================
// End-to-end ranking
// =============================================================================

func TestEngine_Search_LiteralTerm(t *testing.T) {
	e, _ := newTestEngine(t)

	results := search(t, e, "vacation", true)
	require.Equal(t, []int64{1, 2}, ids(results))
	for _, r := range results {
		assert.Equal(t, MatchExact, r.MatchType)
		assert.Equal(t, 130.0, r.Score) // exact + name prefix
	}
}

func TestEngine_Search_TypeFilterOnly(t *testing.T) {
	e, _ := newTestEngine(t)

	results := search(t, e, "@type:image", true)
	require.Equal(t, []int64{1}, ids(results))
	assert.Equal(t, MatchFilter, results[0].MatchType)
}

func TestEngine_Search_FuzzyTypo(t *testing.T) {
	e, _ := newTestEngine(t)

	results := search(t, e, "vaction", true)
	require.Equal(t, []int64{1, 2}, ids(results))
	assert.Equal(t, MatchFuzzy, results[0].MatchType)
	assert.Equal(t, 60.0, results[0].Score)

	assert.Empty(t, search(t, e, "vaction", false))
}

func TestEngine_Search_DownloadLiftsRecord(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordInteraction(2, interaction.KindView, ""))
	require.Equal(t, []int64{2, 1}, ids(search(t, e, "vacation", true)))

	require.NoError(t, e.RecordInteraction(1, interaction.KindDownload, ""))
	results := search(t, e, "vacation", true)
	require.Equal(t, []int64{1, 2}, ids(results))
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 130.0+5+21, results[0].Score)
}

func TestEngine_Search_SelectAddsExactlyTen(t *testing.T) {
	e, _ := newTestEngine(t)

	// A prior view fixes recency so only the selection counter changes.
	require.NoError(t, e.RecordInteraction(2, interaction.KindView, ""))
	before := scoreOf(t, search(t, e, "vacation", true), 2)

	require.NoError(t, e.RecordInteraction(2, interaction.KindSelect, ""))
	after := scoreOf(t, search(t, e, "vacation", true), 2)

	assert.Equal(t, before+10, after)
}

func scoreOf(t *testing.T, results []*Result, id int64) float64 {
	t.Helper()
	for _, r := range results {
		if r.ID == id {
			return r.Score
		}
	}
	t.Fatalf("record %d not in results", id)
	return 0
}

func TestEngine_Search_PriorQueryBonus(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordInteraction(3, interaction.KindView, "FINANCE"))
	results := search(t, e, "finance", false)
	require.Equal(t, []int64{3}, ids(results))
	// exact 100 + view 2 + recency 21 + prior query 15
	assert.Equal(t, 138.0, results[0].Score)
}

func TestEngine_Search_ImplicitTypeFromCategoryWord(t *testing.T) {
	e, _ := newTestEngine(t)

	results, err := e.Search(context.Background(), "Photos", SearchOptions{Limit: 10, Explain: true})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids(results))
	assert.Equal(t, MatchFilter, results[0].MatchType)
	require.NotNil(t, results[0].Explain)
	assert.Equal(t, "image", results[0].Explain.ImplicitType)
	assert.Empty(t, results[0].Explain.Terms)
}

func TestEngine_Search_SemanticExpansion(t *testing.T) {
	e, _ := newTestEngine(t)

	results := search(t, e, "picture @type:image", false)
	require.Equal(t, []int64{1}, ids(results))
	assert.Equal(t, MatchSemantic, results[0].MatchType)
	assert.Equal(t, 40.0, results[0].Score)
}

func TestEngine_Search_NeverDowngradesMatchType(t *testing.T) {
	e, _ := newTestEngine(t)

	// "photo" hits record 1 literally and again through the "image" expansion.
	results := search(t, e, "photo @type:image", true)
	require.Equal(t, []int64{1}, ids(results))
	assert.Equal(t, MatchExact, results[0].MatchType)
}

func TestEngine_Search_Filters(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		query string
		want  []int64
	}{
		{"vacation @ext:mp4", []int64{2}},
		{"vacation @size:>10mb", []int64{2}},
		{"vacation @size:<10mb", []int64{1}},
		{"@date:>2024-01-01", []int64{1, 2}},
		{"@date:<2024-01-01", []int64{3}},
		{"finance", []int64{3}},
		{"@ext:.PDF", []int64{3}},
		{"@size:abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(search(t, e, tt.query, false))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Search_TieBreakKeepsIndexOrder(t *testing.T) {
	store := interaction.NewStore()
	e, err := NewEngine(store)
	require.NoError(t, err)

	for _, id := range []int64{5, 3, 4} {
		require.NoError(t, e.IndexFile(&catalog.FileRecord{ID: id, Name: "notes.txt", Type: "document"}))
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, []int64{5, 3, 4}, ids(search(t, e, "@type:document", false)))
		assert.Equal(t, []int64{3, 4, 5}, ids(search(t, e, "notes", false)))
	}
}

func TestEngine_Search_EmptyAndLimit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, q := range []string{"", "   ", "\t\n"} {
		results, err := e.Search(ctx, q, SearchOptions{Limit: 10, UseFuzzy: true})
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	for _, limit := range []int{0, -3} {
		results, err := e.Search(ctx, "vacation", SearchOptions{Limit: limit})
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	results, err := e.Search(ctx, "vacation", SearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(results))

	assert.Equal(t, int64(1), e.Stats().TotalSearches)
}

func TestEngine_Search_MaxLimitCaps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLimit = 1
	e, _ := newTestEngine(t, WithConfig(cfg))

	results, err := e.Search(context.Background(), "vacation", SearchOptions{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEngine_Search_CancelledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, "vacation", SearchOptions{Limit: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Search_Explain(t *testing.T) {
	e, _ := newTestEngine(t)

	results, err := e.Search(context.Background(), "vacation @type:image", SearchOptions{Limit: 10, UseFuzzy: true, Explain: true})
	require.NoError(t, err)
	require.Len(t, results, 1)

	ex := results[0].Explain
	require.NotNil(t, ex)
	assert.Equal(t, "vacation", ex.Terms)
	assert.Equal(t, "image", ex.Filter.Type)
	assert.Equal(t, 2, ex.Candidates[MatchExact])
	assert.Equal(t, 1, ex.Survivors)
	assert.Equal(t, 2, ex.MaxDistance)

	require.NotNil(t, results[0].Breakdown)
	assert.Equal(t, 100.0, results[0].Breakdown.Base)
	assert.Equal(t, 30.0, results[0].Breakdown.Name)
}

func TestEngine_Search_HydratesFromRecordSource(t *testing.T) {
	src := catalog.NewMemory(sampleRecords()...)
	e, _ := newTestEngine(t, WithRecordSource(src))

	results := search(t, e, "report", false)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, []string{"Finance"}, results[0].Record.Tags)
	assert.Equal(t, "pdf", results[0].Extension)
}

// =============================================================================
// Rebuild and stats
// =============================================================================

func TestEngine_Rebuild_ReplacesIndex(t *testing.T) {
	e, _ := newTestEngine(t)

	n, err := e.Rebuild(context.Background(), []*catalog.FileRecord{
		{ID: 10, Name: "budget.xlsx", Type: "document"},
		nil,
		{ID: 11, Name: "song.mp3", Type: "audio"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Empty(t, search(t, e, "vacation", false))
	assert.Equal(t, []int64{10}, ids(search(t, e, "budget", false)))

	stats := e.Stats()
	assert.Equal(t, 2, stats.TotalIndexed)
	assert.Equal(t, len("budget.xlsx"), stats.TrieDepth)
}

func TestEngine_Rebuild_CancelledKeepsOldIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Rebuild(ctx, []*catalog.FileRecord{{ID: 10, Name: "budget.xlsx"}})
	require.Error(t, err)
	assert.Equal(t, 3, e.Stats().TotalIndexed)
}

func TestEngine_Stats(t *testing.T) {
	e, _ := newTestEngine(t)

	search(t, e, "vacation", true)
	search(t, e, "report", true)
	require.NoError(t, e.RecordInteraction(1, interaction.KindView, ""))
	require.NoError(t, e.RecordInteraction(99, interaction.KindSelect, ""))

	stats := e.Stats()
	assert.Equal(t, 3, stats.TotalIndexed)
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, 2, stats.InteractionCount)
	assert.Equal(t, len("vacation_photo.jpg"), stats.TrieDepth)
	assert.Positive(t, stats.TrieTokens)
}

func TestEngine_RecordInteraction_UnknownKind(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.RecordInteraction(1, interaction.Kind("share"), "")
	require.ErrorIs(t, err, interaction.ErrUnknownKind)
}

func TestEngine_ClearHistory(t *testing.T) {
	metrics := telemetry.NewQueryMetrics(nil)
	e, store := newTestEngine(t, WithMetrics(metrics))

	search(t, e, "vacation", true)
	require.NoError(t, e.RecordInteraction(1, interaction.KindDownload, "vacation"))

	e.ClearHistory()

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(0), e.Stats().TotalSearches)
	assert.Equal(t, int64(0), metrics.Snapshot().TotalQueries)
	assert.Equal(t, 3, e.Stats().TotalIndexed)
}

func TestEngine_Suggest(t *testing.T) {
	e, _ := newTestEngine(t)

	got, err := e.Suggest(context.Background(), "vac", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "vacation_photo.jpg", got[0].Name)
	assert.Equal(t, MatchExact, got[0].MatchType)
}

func TestEngine_ParseQuery(t *testing.T) {
	e, _ := newTestEngine(t)
	f := e.ParseQuery("report @type:document @ext:pdf")
	assert.Equal(t, "document", f.Type)
	assert.Equal(t, "pdf", f.Extension)
	assert.Equal(t, []string{"report"}, f.Terms)
}

// =============================================================================
// Telemetry
// =============================================================================

func TestEngine_RecordsMetrics(t *testing.T) {
	metrics := telemetry.NewQueryMetrics(nil)
	collectors := telemetry.NewCollectors(prometheus.NewRegistry())
	e, _ := newTestEngine(t, WithMetrics(metrics), WithCollectors(collectors))

	search(t, e, "vacation", true)
	search(t, e, "@type:image", true)
	search(t, e, "zebra @ext:png", true)
	require.NoError(t, e.RecordInteraction(1, interaction.KindView, ""))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, int64(1), snap.KindCounts[telemetry.QueryKindText])
	assert.Equal(t, int64(1), snap.KindCounts[telemetry.QueryKindFilter])
	assert.Equal(t, int64(1), snap.KindCounts[telemetry.QueryKindMixed])

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.Searches.WithLabelValues("text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.Interactions.WithLabelValues("view")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collectors.IndexedRecords))
}

// =============================================================================
// Concurrency
// =============================================================================

func TestEngine_ConcurrentSearchInteractRebuild(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				results, err := e.Search(ctx, "vacation", SearchOptions{Limit: 10, UseFuzzy: true})
				assert.NoError(t, err)
				assert.Len(t, results, 2)
				_ = e.RecordInteraction(1, interaction.KindView, "vacation")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := e.Rebuild(ctx, sampleRecords())
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Equal(t, 3, e.Stats().TotalIndexed)
}
