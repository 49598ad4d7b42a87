package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/interaction"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecords() []*FileRecord {
	return []*FileRecord{
		{
			ID: 2, Name: "vacation_video.mp4", Type: "video", Size: 5_000_000,
			UploadedAt: "2024-06-10T08:00:00Z", Extension: "mp4", MimeType: "video/mp4",
		},
		{
			ID: 1, Name: "vacation_photo.jpg", Type: "image", Size: 2048,
			UploadedAt: "2024-06-14T10:00:00Z", Tags: []string{"beach", "summer"},
			Extension: "jpg", Metadata: map[string]any{"camera": "x100"},
		},
	}
}

func TestRecord_UploadTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-06-14T10:00:00Z", time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC), true},
		{"2024-06-14T10:00:00.123456", time.Date(2024, 6, 14, 10, 0, 0, 123456000, time.UTC), true},
		{"2024-06-14 10:00:00", time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC), true},
		{"2024-06-14", time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"last tuesday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r := &FileRecord{UploadedAt: tt.in}
			got, ok := r.UploadTime()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := sampleRecords()[1]
	c := r.Clone()
	c.Tags[0] = "changed"
	c.Metadata["camera"] = "other"

	assert.Equal(t, "beach", r.Tags[0])
	assert.Equal(t, "x100", r.Metadata["camera"])
	assert.Nil(t, (*FileRecord)(nil).Clone())
}

func TestMemory(t *testing.T) {
	recs := sampleRecords()
	m := NewMemory(recs[0], nil, recs[1], &FileRecord{ID: 2, Name: "renamed.mp4"})

	assert.Equal(t, 2, m.Len())
	r, ok := m.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "renamed.mp4", r.Name)

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)
	assert.Equal(t, int64(1), all[1].ID)

	_, ok = m.Lookup(99)
	assert.False(t, ok)

	m.Replace([]*FileRecord{{ID: 7, Name: "new.txt"}})
	assert.Equal(t, 1, m.Len())
	_, ok = m.Lookup(2)
	assert.False(t, ok)
	_, ok = m.Lookup(7)
	assert.True(t, ok)
}

func TestSQLiteStore_Records(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n, err := s.PutAll(ctx, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords()[1], got)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Nil(t, all[1].Tags)
	assert.Nil(t, all[1].Metadata)

	// Re-importing replaces in place.
	require.NoError(t, s.Put(ctx, &FileRecord{ID: 1, Name: "beach.jpg", Type: "image"}))
	got, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "beach.jpg", got.Name)

	require.NoError(t, s.Delete(ctx, 2))
	require.NoError(t, s.Delete(ctx, 404))
	_, err = s.Get(ctx, 2)
	assert.Equal(t, apperrors.ErrCodeRecordNotFound, apperrors.GetCode(err))

	mem, err := s.LoadMemory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())
}

func TestSQLiteStore_PutAllRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tests := []struct {
		name string
		rec  *FileRecord
	}{
		{"nil", nil},
		{"zero id", &FileRecord{Name: "a.txt"}},
		{"blank name", &FileRecord{ID: 3, Name: "  "}},
		{"negative size", &FileRecord{ID: 3, Name: "a.txt", Size: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.PutAll(ctx, []*FileRecord{sampleRecords()[0], tt.rec})
			assert.Equal(t, apperrors.ErrCodeInvalidRecord, apperrors.GetCode(err))
		})
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteStore_Interactions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	live := interaction.NewStore(interaction.WithClock(func() time.Time { return now }))
	record := func(id int64, kind interaction.Kind, q string) {
		t.Helper()
		require.NoError(t, live.Record(id, kind, q))
		require.NoError(t, s.RecordInteraction(ctx, id, kind, q, now))
	}
	record(1, interaction.KindView, "Beach")
	record(1, interaction.KindDownload, "")
	record(1, interaction.KindView, "beach ")
	record(7, interaction.KindSelect, "notes")

	loaded, err := s.LoadInteractions(ctx)
	require.NoError(t, err)
	assert.Equal(t, live.Snapshots(), loaded)

	restored := interaction.NewStore()
	restored.Restore(loaded)
	e, ok := restored.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, int64(2), e.Views())
	assert.Equal(t, int64(1), e.Downloads())
	assert.True(t, e.HasQuery("beach"))
}

func TestSQLiteStore_RecordInteractionRejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)

	err := s.RecordInteraction(context.Background(), 1, interaction.Kind("share"), "", time.Now())
	require.ErrorIs(t, err, interaction.ErrUnknownKind)

	snaps, err := s.LoadInteractions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSQLiteStore_InteractionsFromTwoHandlesAccumulate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	// Both handles start from the same empty view before either writes.
	_, err = first.LoadInteractions(ctx)
	require.NoError(t, err)
	_, err = second.LoadInteractions(ctx)
	require.NoError(t, err)

	require.NoError(t, first.RecordInteraction(ctx, 3, interaction.KindDownload, "report", at))
	require.NoError(t, second.RecordInteraction(ctx, 3, interaction.KindDownload, "summary", at.Add(time.Minute)))

	snaps, err := first.LoadInteractions(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(2), snaps[0].Downloads)
	assert.Equal(t, []string{"report", "summary"}, snaps[0].PastQueries)
	require.NotNil(t, snaps[0].LastAccessed)
	assert.Equal(t, at.Add(time.Minute), *snaps[0].LastAccessed)
}

func TestSQLiteStore_InteractionAfterClearStartsFresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	stale, err := OpenSQLite(path)
	require.NoError(t, err)
	defer stale.Close()
	clearer, err := OpenSQLite(path)
	require.NoError(t, err)
	defer clearer.Close()

	for range 3 {
		require.NoError(t, stale.RecordInteraction(ctx, 1, interaction.KindView, "old", at))
	}
	// stale loaded its view before the clear and writes after it.
	before, err := stale.LoadInteractions(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, clearer.ClearHistory(ctx))
	require.NoError(t, stale.RecordInteraction(ctx, 1, interaction.KindSelect, "", at))

	snaps, err := clearer.LoadInteractions(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Zero(t, snaps[0].Views)
	assert.Equal(t, int64(1), snaps[0].Selections)
	assert.Empty(t, snaps[0].PastQueries)
}

func TestSQLiteStore_SearchLogAndClearHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	at := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	_, err := s.PutAll(ctx, sampleRecords())
	require.NoError(t, err)
	require.NoError(t, s.LogSearch(ctx, "vacation", 2, at))
	require.NoError(t, s.LogSearch(ctx, "@type:zip", 0, at.Add(time.Minute)))
	require.NoError(t, s.RecordInteraction(ctx, 1, interaction.KindView, "", at))

	recent, err := s.RecentSearches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, SearchLogEntry{Query: "@type:zip", ResultCount: 0, At: at.Add(time.Minute)}, recent[0])
	n, err := s.CountSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.ClearHistory(ctx))

	recent, err = s.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
	snaps, err := s.LoadInteractions(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteStore_IntegrityCheck(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutAll(context.Background(), sampleRecords())
	require.NoError(t, err)

	assert.NoError(t, s.IntegrityCheck(context.Background()))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.PutAll(ctx, sampleRecords())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	a := NewFileLock(path)
	b := NewFileLock(path)

	require.NoError(t, a.TryLock())
	assert.True(t, a.IsLocked())
	assert.Equal(t, path+".lock", a.Path())

	err := b.TryLock()
	assert.Equal(t, apperrors.ErrCodeCatalogLocked, apperrors.GetCode(err))
	assert.True(t, apperrors.IsRetryable(err))

	cfg := apperrors.DefaultRetryConfig()
	cfg.MaxRetries = 2
	cfg.InitialDelay = time.Millisecond
	err = b.Lock(context.Background(), cfg)
	assert.True(t, apperrors.IsRetryable(err))

	require.NoError(t, a.Unlock())
	require.NoError(t, a.Unlock())
	require.NoError(t, b.Lock(context.Background(), cfg))
	require.NoError(t, b.Unlock())
}

func TestSQLiteStore_WriteWaitsForLock(t *testing.T) {
	s := openTestStore(t)
	s.retry.MaxRetries = 1
	s.retry.InitialDelay = time.Millisecond

	other := NewFileLock(s.Path())
	require.NoError(t, other.TryLock())

	_, err := s.PutAll(context.Background(), sampleRecords())
	assert.Equal(t, apperrors.ErrCodeCatalogLocked, apperrors.GetCode(err))

	require.NoError(t, other.Unlock())
	_, err = s.PutAll(context.Background(), sampleRecords())
	assert.NoError(t, err)
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantIDs []int64
		errCode string
	}{
		{
			name:    "json list",
			path:    write("list.json", `[{"id": 1, "name": "a.txt"}, {"id": 2, "name": "b.txt", "tags": ["x"]}]`),
			wantIDs: []int64{1, 2},
		},
		{
			name:    "json wrapped",
			path:    write("wrapped.json", `{"files": [{"id": 5, "name": "c.pdf", "uploaded_at": "2024-01-01"}]}`),
			wantIDs: []int64{5},
		},
		{
			name: "yaml list",
			path: write("list.yaml", `
- id: 3
  name: report.pdf
  type: document
  uploaded_at: 2024-01-15T10:00:00Z
  tags: [finance]
`),
			wantIDs: []int64{3},
		},
		{
			name: "yml wrapped",
			path: write("wrapped.yml", `
files:
  - id: 4
    name: song.mp3
    metadata:
      artist: someone
`),
			wantIDs: []int64{4},
		},
		{
			name:    "unsupported extension",
			path:    write("records.csv", "id,name"),
			errCode: apperrors.ErrCodeImportFormat,
		},
		{
			name:    "malformed json",
			path:    write("bad.json", `[{"id": 1,`),
			errCode: apperrors.ErrCodeImportFormat,
		},
		{
			name:    "duplicate ids",
			path:    write("dup.json", `[{"id": 1, "name": "a"}, {"id": 1, "name": "b"}]`),
			errCode: apperrors.ErrCodeInvalidRecord,
		},
		{
			name:    "missing name",
			path:    write("noname.json", `[{"id": 1}]`),
			errCode: apperrors.ErrCodeInvalidRecord,
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "absent.json"),
			errCode: apperrors.ErrCodeFileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := LoadRecords(tt.path)
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, apperrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			ids := make([]int64, len(recs))
			for i, r := range recs {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDecodeRecords_YAMLKeepsTimestampText(t *testing.T) {
	recs, err := DecodeRecords([]byte("- id: 1\n  name: a.jpg\n  uploaded_at: 2024-01-15T10:00:00Z\n"), FormatYAML)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2024-01-15T10:00:00Z", recs[0].UploadedAt)
}
