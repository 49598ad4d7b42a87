package telemetry

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)
	return store
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_KindCounts(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveKindCounts("2026-01-06", map[QueryKind]int64{
		QueryKindText:   10,
		QueryKindFilter: 5,
	}))
	require.NoError(t, store.SaveKindCounts("2026-01-06", map[QueryKind]int64{QueryKindText: 2}))
	require.NoError(t, store.SaveKindCounts("2026-01-07", map[QueryKind]int64{QueryKindMixed: 3}))
	require.NoError(t, store.SaveKindCounts("2026-02-01", map[QueryKind]int64{QueryKindMixed: 100}))

	got, err := store.GetKindCounts("2026-01-06", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, map[QueryKind]int64{
		QueryKindText:   12,
		QueryKindFilter: 5,
		QueryKindMixed:  3,
	}, got)
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-01-06", map[LatencyBucket]int64{BucketP1: 4, BucketSlow: 1}))
	require.NoError(t, store.SaveLatencyCounts("2026-01-06", map[LatencyBucket]int64{BucketP1: 1}))

	got, err := store.GetLatencyCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, map[LatencyBucket]int64{BucketP1: 5, BucketSlow: 1}, got)
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"beach": 3, "photo": 1, "zebra": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"photo": 4}))
	require.NoError(t, store.UpsertTermCounts(nil))

	got, err := store.GetTopTerms(2)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "photo", Count: 5}, {Term: "beach", Count: 3}}, got)
}

func TestSQLiteMetricsStore_ZeroResultQueriesBounded(t *testing.T) {
	store := setupTestStore(t)
	now := time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)

	for i := range zeroResultKeep + 5 {
		require.NoError(t, store.AddZeroResultQuery(fmt.Sprintf("q%d", i), now))
	}

	all, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, all, zeroResultKeep)
	assert.Equal(t, fmt.Sprintf("q%d", zeroResultKeep+4), all[0])

	newest, err := store.GetZeroResultQueries(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"q104", "q103"}, newest)
}

func TestSQLiteMetricsStore_Clear(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"beach": 1}))
	require.NoError(t, store.AddZeroResultQuery("nothing", time.Now()))
	require.NoError(t, store.Clear())

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Empty(t, terms)

	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Empty(t, zero)
}

func TestQueryMetrics_FlushToSQLite(t *testing.T) {
	store := setupTestStore(t)
	m := NewQueryMetrics(store)

	m.Record(QueryEvent{Query: "quarterly report", Kind: QueryKindText, ResultCount: 0, Timestamp: time.Now()})
	require.NoError(t, m.Close())

	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kinds[QueryKindText])

	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"quarterly report"}, zero)
}
