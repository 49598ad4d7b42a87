// Package interaction tracks per-record usage signals (views, downloads,
// selections, last access and the queries that led to them) that feed
// result ranking.
package interaction

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Kind is the type of a recorded interaction.
type Kind string

const (
	KindView     Kind = "view"
	KindDownload Kind = "download"
	KindSelect   Kind = "select"
)

// ErrUnknownKind is returned for interaction kinds other than view, download and select.
var ErrUnknownKind = errors.New("unknown interaction kind")

// ParseKind validates s (case-insensitive) as an interaction kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindView, KindDownload, KindSelect:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Entry holds the usage signals of one record. Counters are updated
// atomically so scoring can read them while interactions are recorded; the
// query set is guarded by its own mutex.
type Entry struct {
	views      atomic.Int64
	downloads  atomic.Int64
	selections atomic.Int64
	lastAccess atomic.Int64 // unix nanoseconds, 0 = never

	mu      sync.RWMutex
	queries map[string]struct{}
}

func newEntry() *Entry {
	return &Entry{queries: make(map[string]struct{})}
}

// Views returns the number of recorded views.
func (e *Entry) Views() int64 { return e.views.Load() }

// Downloads returns the number of recorded downloads.
func (e *Entry) Downloads() int64 { return e.downloads.Load() }

// Selections returns the number of times the record was picked from results.
func (e *Entry) Selections() int64 { return e.selections.Load() }

// LastAccessed returns the time of the most recent interaction.
func (e *Entry) LastAccessed() (time.Time, bool) {
	ns := e.lastAccess.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns).UTC(), true
}

// HasQuery reports whether q (case-insensitive) previously led to an interaction.
func (e *Entry) HasQuery(q string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.queries[strings.ToLower(q)]
	return ok
}

func (e *Entry) addQuery(q string) {
	q = strings.ToLower(q)
	e.mu.Lock()
	e.queries[q] = struct{}{}
	e.mu.Unlock()
}

// Snapshot is a point-in-time copy of an Entry, used for display and persistence.
type Snapshot struct {
	ID           int64      `json:"id"`
	Views        int64      `json:"views"`
	Downloads    int64      `json:"downloads"`
	Selections   int64      `json:"selections"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	PastQueries  []string   `json:"past_queries,omitempty"`
}

func (e *Entry) snapshot(id int64) Snapshot {
	s := Snapshot{
		ID:         id,
		Views:      e.Views(),
		Downloads:  e.Downloads(),
		Selections: e.Selections(),
	}
	if t, ok := e.LastAccessed(); ok {
		s.LastAccessed = &t
	}
	e.mu.RLock()
	for q := range e.queries {
		s.PastQueries = append(s.PastQueries, q)
	}
	e.mu.RUnlock()
	slices.Sort(s.PastQueries)
	return s
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for last-access timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store maps record IDs to their entries. Entries are created on first
// interaction and live until Clear; IDs that are not indexed are accepted and
// kept.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[int64]*Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record counts one interaction of kind with record id. A non-empty query is
// remembered in lowercase so later identical queries get a ranking boost.
func (s *Store) Record(id int64, kind Kind, query string) error {
	switch kind {
	case KindView, KindDownload, KindSelect:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	e := s.entryFor(id)
	switch kind {
	case KindView:
		e.views.Add(1)
	case KindDownload:
		e.downloads.Add(1)
	case KindSelect:
		e.selections.Add(1)
	}
	e.lastAccess.Store(s.now().UnixNano())

	if q := strings.TrimSpace(query); q != "" {
		e.addQuery(q)
	}
	return nil
}

func (s *Store) entryFor(id int64) *Entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; ok {
		return e
	}
	e = newEntry()
	s.entries[id] = e
	return e
}

// Lookup returns the live entry for id. The entry must be treated as read-only.
func (s *Store) Lookup(id int64) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Get returns a snapshot of the entry for id.
func (s *Store) Get(id int64) (Snapshot, bool) {
	e, ok := s.Lookup(id)
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(id), true
}

// Len returns the number of records with at least one interaction.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[int64]*Entry)
	s.mu.Unlock()
}

// Snapshots returns a copy of every entry ordered by record ID.
func (s *Store) Snapshots() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, e.snapshot(id))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Restore replaces the entries for the given snapshots, typically after
// loading them from the catalog at startup.
func (s *Store) Restore(snaps []Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		e := newEntry()
		e.views.Store(snap.Views)
		e.downloads.Store(snap.Downloads)
		e.selections.Store(snap.Selections)
		if snap.LastAccessed != nil {
			e.lastAccess.Store(snap.LastAccessed.UnixNano())
		}
		for _, q := range snap.PastQueries {
			e.queries[strings.ToLower(q)] = struct{}{}
		}
		s.entries[snap.ID] = e
	}
}
