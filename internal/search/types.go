// Package search implements the adaptive file search engine: a token trie
// queried by exact prefix, bounded edit distance and category synonyms, with
// structured filters and ranking that learns from user interactions.
package search

import (
	"context"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/query"
)

// Searcher is the engine surface used by the CLI and other callers.
type Searcher interface {
	// IndexFile adds one record to the live index.
	IndexFile(rec *catalog.FileRecord) error

	// Rebuild replaces the index with one built from records.
	Rebuild(ctx context.Context, records []*catalog.FileRecord) (int, error)

	// Search returns ranked results for a raw query.
	Search(ctx context.Context, q string, opts SearchOptions) ([]*Result, error)

	// RecordInteraction feeds a usage signal back into ranking.
	RecordInteraction(id int64, kind interaction.Kind, q string) error

	// Stats returns engine statistics.
	Stats() Stats
}

// RecordSource resolves record IDs to full records for result hydration.
type RecordSource interface {
	Lookup(id int64) (*catalog.FileRecord, bool)
}

// MatchType says how a candidate was found.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchPrefix   MatchType = "prefix"
	MatchFuzzy    MatchType = "fuzzy"
	MatchSemantic MatchType = "semantic"
	MatchFilter   MatchType = "filter"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Zero or negative returns nothing.
	Limit int

	// UseFuzzy adds edit-distance matches for the literal search terms.
	UseFuzzy bool

	// Explain attaches ExplainData to the first result and a score
	// breakdown to every result.
	Explain bool
}

// Result is one ranked search hit.
type Result struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Extension  string    `json:"extension,omitempty"`
	Size       int64     `json:"size"`
	UploadedAt string    `json:"uploaded_at,omitempty"`
	Score      float64   `json:"search_score"`
	MatchType  MatchType `json:"match_type"`

	// Record is the full record when the engine has a RecordSource.
	Record *catalog.FileRecord `json:"record,omitempty"`

	// Breakdown itemises Score when explain mode is on.
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`

	// Explain is only set on the first result.
	Explain *ExplainData `json:"explain,omitempty"`
}

// ExplainData describes how a query was processed.
type ExplainData struct {
	Query        string       `json:"query"`
	Filter       query.Filter `json:"-"`
	FilterText   string       `json:"filter"`
	Terms        string       `json:"terms"`
	ImplicitType string       `json:"implicit_type,omitempty"`
	Expansions   []string     `json:"expansions,omitempty"`
	UseFuzzy     bool         `json:"use_fuzzy"`
	MaxDistance  int          `json:"max_distance"`

	// Candidate counts by match type, before filtering.
	Candidates map[MatchType]int `json:"candidates"`

	// Survivors is the number of candidates left after filtering.
	Survivors int `json:"survivors"`
}

// Suggestion is the compact form of a result used for autocomplete.
type Suggestion struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Score     float64   `json:"score"`
	MatchType MatchType `json:"match_type"`
}

// Stats describes the engine state.
type Stats struct {
	TotalIndexed     int   `json:"total_files_indexed"`
	TotalSearches    int64 `json:"total_searches"`
	InteractionCount int   `json:"unique_files_with_interactions"`
	TrieDepth        int   `json:"trie_depth"`
	TrieTokens       int   `json:"trie_tokens"`
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// MaxLimit caps SearchOptions.Limit (default: 100, 0 = no cap).
	MaxLimit int

	// MaxDistance is the edit-distance budget for fuzzy matching (default: 2).
	MaxDistance int

	// Workers bounds rebuild tokenization concurrency (default: GOMAXPROCS).
	Workers int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MaxLimit:    100,
		MaxDistance: 2,
	}
}
