package search

import (
	"strings"
	"unicode"

	"github.com/Aman-CERP/amanfind/internal/catalog"
	"github.com/Aman-CERP/amanfind/internal/query"
)

// IndexTokens returns the lowercase tokens a record is indexed under, without
// duplicates and in a stable order:
//
//  1. each word of the name (runs of letters, digits and '_'), followed by
//     its snake_case and camelCase parts
//  2. the whole name with spaces removed
//  3. the type
//  4. the extension without dots
//  5. each tag
//
// Example: "Vacation_Photo.jpg" → vacation_photo, vacation, photo, jpg,
// vacation_photo.jpg, ...
func IndexTokens(rec *catalog.FileRecord) []string {
	if rec == nil {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}

	for _, w := range nameWords(rec.Name) {
		add(w)
		for _, part := range splitSubwords(w) {
			add(part)
		}
	}
	add(strings.ReplaceAll(rec.Name, " ", ""))
	add(rec.Type)
	add(query.NormalizeExtension(rec.Extension))
	for _, tag := range rec.Tags {
		add(tag)
	}
	return out
}

// nameWords splits s into runs of letters, digits and underscores.
func nameWords(s string) []string {
	var words []string
	var current strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

// splitSubwords splits a word on underscores and lower-to-upper case changes.
// A word with no boundaries yields nothing.
// Example: "tripReport_2024" → ["trip", "Report", "2024"]
func splitSubwords(word string) []string {
	var parts []string
	for _, seg := range strings.Split(word, "_") {
		if seg == "" {
			continue
		}
		var current strings.Builder
		prevLower := false
		for _, r := range seg {
			if prevLower && unicode.IsUpper(r) && current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			current.WriteRune(r)
			prevLower = unicode.IsLower(r)
		}
		if current.Len() > 0 {
			parts = append(parts, current.String())
		}
	}
	if len(parts) == 1 {
		return nil
	}
	return parts
}
