package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/telemetry"
)

// SQLiteStore is the persistent catalog: file records, saved interaction
// signals and a log of executed searches. Writers take a cross-process
// FileLock so concurrent CLI invocations don't interleave imports.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	lock  *FileLock
	retry apperrors.RetryConfig
}

// SearchLogEntry is one executed search.
type SearchLogEntry struct {
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	At          time.Time `json:"at"`
}

// OpenSQLite opens (creating if needed) the catalog database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeFilePermission, "failed to create catalog directory", err).
			WithDetail("path", path)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalogOpen, "failed to open catalog", err).
			WithDetail("path", path)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, apperrors.New(apperrors.ErrCodeCatalogCorrupt, "failed to configure catalog", err).
				WithDetail("path", path).
				WithSuggestion("delete the catalog file and re-import your records")
		}
	}

	s := &SQLiteStore{
		db:    db,
		path:  path,
		lock:  NewFileLock(path),
		retry: apperrors.DefaultRetryConfig(),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		uploaded_at TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		extension TEXT NOT NULL DEFAULT '',
		mime_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS interactions (
		file_id INTEGER PRIMARY KEY,
		views INTEGER NOT NULL DEFAULT 0,
		downloads INTEGER NOT NULL DEFAULT 0,
		selections INTEGER NOT NULL DEFAULT 0,
		last_accessed TEXT,
		past_queries TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS search_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.New(apperrors.ErrCodeCatalogCorrupt, "failed to create catalog schema", err).
			WithDetail("path", s.path)
	}
	if err := telemetry.InitSchema(s.db); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCatalogCorrupt, err)
	}
	return nil
}

// DB returns the underlying connection, shared with the telemetry store.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// IntegrityCheck runs SQLite's quick_check over the catalog.
func (s *SQLiteStore) IntegrityCheck(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return fmt.Errorf("scan integrity check: %w", err)
		}
		if msg != "ok" {
			problems = append(problems, msg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if len(problems) > 0 {
		return apperrors.New(apperrors.ErrCodeCatalogCorrupt, strings.Join(problems, "; "), nil).
			WithDetail("path", s.path).
			WithSuggestion("delete the catalog file and re-import your records")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	_ = s.lock.Unlock()
	return s.db.Close()
}

// withWriteLock runs fn while holding the catalog FileLock.
func (s *SQLiteStore) withWriteLock(ctx context.Context, fn func() error) error {
	if err := s.lock.Lock(ctx, s.retry); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("catalog_unlock_failed", slog.String("error", err.Error()))
		}
	}()
	return fn()
}

// =============================================================================
// Records
// =============================================================================

// Validate checks the fields a record needs to be stored.
func Validate(r *FileRecord) error {
	switch {
	case r == nil:
		return apperrors.New(apperrors.ErrCodeInvalidRecord, "record is nil", nil)
	case r.ID <= 0:
		return apperrors.New(apperrors.ErrCodeInvalidRecord, fmt.Sprintf("record id must be positive, got %d", r.ID), nil)
	case strings.TrimSpace(r.Name) == "":
		return apperrors.New(apperrors.ErrCodeInvalidRecord, fmt.Sprintf("record %d has no name", r.ID), nil)
	case r.Size < 0:
		return apperrors.New(apperrors.ErrCodeInvalidRecord, fmt.Sprintf("record %d has negative size", r.ID), nil)
	}
	return nil
}

// PutAll inserts or replaces records in one transaction and returns how many
// were written. Every record is validated before anything is written.
func (s *SQLiteStore) PutAll(ctx context.Context, records []*FileRecord) (int, error) {
	for _, r := range records {
		if err := Validate(r); err != nil {
			return 0, err
		}
	}

	err := s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO files (id, name, type, size, uploaded_at, tags, extension, mime_type, description, category, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				size = excluded.size,
				uploaded_at = excluded.uploaded_at,
				tags = excluded.tags,
				extension = excluded.extension,
				mime_type = excluded.mime_type,
				description = excluded.description,
				category = excluded.category,
				metadata = excluded.metadata
		`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			tags, err := json.Marshal(nonNil(r.Tags))
			if err != nil {
				return fmt.Errorf("encode tags for record %d: %w", r.ID, err)
			}
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for record %d: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Type, r.Size, r.UploadedAt,
				string(tags), r.Extension, r.MimeType, r.Description, r.Category, string(meta)); err != nil {
				return fmt.Errorf("insert record %d: %w", r.ID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Put inserts or replaces one record.
func (s *SQLiteStore) Put(ctx context.Context, r *FileRecord) error {
	_, err := s.PutAll(ctx, []*FileRecord{r})
	return err
}

// Get returns the record with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, selectFiles+` WHERE id = ?`, id)
	r, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrCodeRecordNotFound, fmt.Sprintf("record %d not found", id), err)
	}
	return r, err
}

// All returns every record ordered by ID.
func (s *SQLiteStore) All(ctx context.Context) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectFiles+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Delete removes a record. Deleting an unknown ID is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	return s.withWriteLock(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}
		return nil
	})
}

// LoadMemory reads every record into a Memory for I/O-free hydration.
func (s *SQLiteStore) LoadMemory(ctx context.Context) (*Memory, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return NewMemory(records...), nil
}

const selectFiles = `SELECT id, name, type, size, uploaded_at, tags, extension, mime_type, description, category, metadata FROM files`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*FileRecord, error) {
	var r FileRecord
	var tags, meta string
	if err := row.Scan(&r.ID, &r.Name, &r.Type, &r.Size, &r.UploadedAt, &tags,
		&r.Extension, &r.MimeType, &r.Description, &r.Category, &meta); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalogCorrupt, fmt.Sprintf("record %d has invalid tags", r.ID), err)
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeCatalogCorrupt, fmt.Sprintf("record %d has invalid metadata", r.ID), err)
		}
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// =============================================================================
// Interactions
// =============================================================================

// RecordInteraction adds one interaction of kind for record id to the
// persisted signals. The counters are incremented in place and query is merged
// into the stored set, so concurrent writers never overwrite each other and a
// cleared history only gains the new interaction.
func (s *SQLiteStore) RecordInteraction(ctx context.Context, id int64, kind interaction.Kind, query string, at time.Time) error {
	var views, downloads, selections int64
	switch kind {
	case interaction.KindView:
		views = 1
	case interaction.KindDownload:
		downloads = 1
	case interaction.KindSelect:
		selections = 1
	default:
		return fmt.Errorf("%w: %q", interaction.ErrUnknownKind, kind)
	}

	return s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var stored string
		err = tx.QueryRowContext(ctx, `SELECT past_queries FROM interactions WHERE file_id = ?`, id).Scan(&stored)
		if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read interactions for %d: %w", id, err)
		}
		var queries []string
		if stored != "" {
			if err := json.Unmarshal([]byte(stored), &queries); err != nil {
				return apperrors.New(apperrors.ErrCodeCatalogCorrupt,
					fmt.Sprintf("interactions for %d have invalid past queries", id), err)
			}
		}
		if q := strings.ToLower(strings.TrimSpace(query)); q != "" && !slices.Contains(queries, q) {
			queries = append(queries, q)
			slices.Sort(queries)
		}
		encoded, err := json.Marshal(nonNil(queries))
		if err != nil {
			return fmt.Errorf("encode past queries for %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interactions (file_id, views, downloads, selections, last_accessed, past_queries)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(file_id) DO UPDATE SET
				views = views + excluded.views,
				downloads = downloads + excluded.downloads,
				selections = selections + excluded.selections,
				last_accessed = excluded.last_accessed,
				past_queries = excluded.past_queries
		`, id, views, downloads, selections, at.UTC().Format(time.RFC3339Nano), string(encoded)); err != nil {
			return fmt.Errorf("upsert interactions for %d: %w", id, err)
		}
		return tx.Commit()
	})
}

// LoadInteractions returns the persisted interaction signals ordered by ID.
func (s *SQLiteStore) LoadInteractions(ctx context.Context) ([]interaction.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, views, downloads, selections, last_accessed, past_queries
		FROM interactions
		ORDER BY file_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []interaction.Snapshot
	for rows.Next() {
		var snap interaction.Snapshot
		var last sql.NullString
		var queries string
		if err := rows.Scan(&snap.ID, &snap.Views, &snap.Downloads, &snap.Selections, &last, &queries); err != nil {
			return nil, fmt.Errorf("scan interactions: %w", err)
		}
		if last.Valid {
			t, err := time.Parse(time.RFC3339Nano, last.String)
			if err != nil {
				return nil, apperrors.New(apperrors.ErrCodeCatalogCorrupt, fmt.Sprintf("invalid last access for %d", snap.ID), err)
			}
			snap.LastAccessed = &t
		}
		if err := json.Unmarshal([]byte(queries), &snap.PastQueries); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeCatalogCorrupt, fmt.Sprintf("invalid past queries for %d", snap.ID), err)
		}
		if len(snap.PastQueries) == 0 {
			snap.PastQueries = nil
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// =============================================================================
// Search log
// =============================================================================

// LogSearch appends one executed search to the log.
func (s *SQLiteStore) LogSearch(ctx context.Context, query string, results int, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO search_log (query, result_count, at) VALUES (?, ?, ?)
	`, query, results, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("log search: %w", err)
	}
	return nil
}

// RecentSearches returns up to limit logged searches, newest first.
func (s *SQLiteStore) RecentSearches(ctx context.Context, limit int) ([]SearchLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, result_count, at FROM search_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query search log: %w", err)
	}
	defer rows.Close()

	var out []SearchLogEntry
	for rows.Next() {
		var e SearchLogEntry
		var at string
		if err := rows.Scan(&e.Query, &e.ResultCount, &at); err != nil {
			return nil, fmt.Errorf("scan search log: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountSearches returns the number of logged searches.
func (s *SQLiteStore) CountSearches(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count searches: %w", err)
	}
	return n, nil
}

// ClearHistory deletes persisted interactions and the search log. Records
// are kept.
func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	return s.withWriteLock(ctx, func() error {
		for _, table := range []string{"interactions", "search_log"} {
			if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
