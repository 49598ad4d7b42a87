package search

import (
	"strings"
)

// SemanticExpander maps a search term to the file categories it refers to.
//
// Example:
//
//	Input:  "Photos"
//	Output: ["photos", "image"]
type SemanticExpander struct {
	synonyms map[string][]string
}

// ExpanderOption configures the semantic expander.
type ExpanderOption func(*SemanticExpander)

// WithCustomSynonyms adds extra mappings on top of CategorySynonyms. Custom
// categories for an existing key are appended after the built-in ones.
func WithCustomSynonyms(synonyms map[string][]string) ExpanderOption {
	return func(e *SemanticExpander) {
		for k, v := range synonyms {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			for _, c := range v {
				if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
					e.synonyms[k] = append(e.synonyms[k], c)
				}
			}
		}
	}
}

// NewSemanticExpander creates an expander seeded with CategorySynonyms.
func NewSemanticExpander(opts ...ExpanderOption) *SemanticExpander {
	e := &SemanticExpander{synonyms: make(map[string][]string, len(CategorySynonyms))}
	for k, v := range CategorySynonyms {
		e.synonyms[k] = append([]string(nil), v...)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the lowercased term followed by its mapped categories, with
// duplicates removed. The term itself is always first.
func (e *SemanticExpander) Expand(term string) []string {
	term = strings.ToLower(term)
	out := []string{term}
	seen := map[string]bool{term: true}
	for _, syn := range e.synonyms[term] {
		if !seen[syn] {
			out = append(out, syn)
			seen[syn] = true
		}
	}
	return out
}

// Category returns the first category mapped to term, if any.
func (e *SemanticExpander) Category(term string) (string, bool) {
	syns := e.synonyms[strings.ToLower(term)]
	if len(syns) == 0 {
		return "", false
	}
	return syns[0], true
}

// IsKey reports whether term has any mapping.
func (e *SemanticExpander) IsKey(term string) bool {
	_, ok := e.synonyms[strings.ToLower(term)]
	return ok
}
