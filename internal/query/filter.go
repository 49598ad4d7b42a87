// Package query parses the structured filter tokens embedded in a search
// string (@type:, @ext:, @size:, @date:) and evaluates them against indexed
// file attributes.
package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the accepted @date: value format.
const DateLayout = "2006-01-02"

// Size units for @size: values.
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// Filter is the structured part of a query plus the remaining free-text terms.
// Empty strings and nil pointers mean "no constraint".
type Filter struct {
	Type      string
	Extension string
	SizeMin   *int64
	SizeMax   *int64
	DateFrom  *time.Time
	DateTo    *time.Time

	// Terms is the leftover query text split on whitespace, in original order.
	Terms []string
}

// Attributes is the subset of a file record that filters look at.
type Attributes struct {
	Type       string
	Extension  string
	Size       int64
	UploadedAt *time.Time
}

// filterToken matches each kind's value grammar, so trailing punctuation
// such as "@type:document," does not hide the filter. Values that match the
// grammar but fail validation (an impossible date, a size too large to
// represent) leave the whole token in the text.
var filterToken = regexp.MustCompile(`(?i)@(?:` +
	`type:(\w+)` +
	`|ext:\.?(\w+)` +
	`|size:([<>])?(\d+(?:\.\d*)?)(kb|mb|gb)?\b` +
	`|date:([<>])?(\d{4}-\d{2}-\d{2})\b)`)

// Submatch indexes into filterToken.
const (
	groupType = 1 + iota
	groupExt
	groupSizeOp
	groupSizeNum
	groupSizeUnit
	groupDateOp
	groupDate
)

// Parse extracts filters from raw. Tokens are applied left to right, so when
// a kind appears twice the later token wins. Every recognised token is
// removed from the text together with any punctuation glued to it;
// unrecognised or malformed ones stay as search terms.
func Parse(raw string) Filter {
	var f Filter

	var remaining strings.Builder
	last := 0
	for _, m := range filterToken.FindAllStringSubmatchIndex(raw, -1) {
		if !f.apply(raw, m) {
			continue
		}
		remaining.WriteString(trimGluedSuffix(raw[last:m[0]]))
		remaining.WriteByte(' ')
		last = m[1] + gluedPrefixLen(raw[m[1]:])
	}
	remaining.WriteString(raw[last:])

	f.Terms = strings.Fields(remaining.String())
	return f
}

// trimGluedSuffix drops a punctuation-only fragment directly before a token.
func trimGluedSuffix(s string) string {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	if tail := s[i+1:]; tail != "" && onlyPunct(tail) {
		return s[:i+1]
	}
	return s
}

// gluedPrefixLen is the length of a punctuation-only fragment directly after
// a token, or 0 when the fragment carries any other text.
func gluedPrefixLen(s string) int {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		end = len(s)
	}
	if end > 0 && onlyPunct(s[:end]) {
		return end
	}
	return 0
}

func onlyPunct(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPunct(r) }) < 0
}

// apply sets the filter for one matched token and reports whether its value
// was valid.
func (f *Filter) apply(raw string, m []int) bool {
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return raw[m[2*i]:m[2*i+1]]
	}

	switch {
	case m[2*groupType] >= 0:
		f.Type = strings.ToLower(group(groupType))
		return true

	case m[2*groupExt] >= 0:
		f.Extension = strings.ToLower(group(groupExt))
		return true

	case m[2*groupSizeNum] >= 0:
		n, err := strconv.ParseFloat(group(groupSizeNum), 64)
		if err != nil {
			return false
		}
		bytes := n * unitMultiplier(group(groupSizeUnit))
		if bytes >= math.MaxInt64 {
			return false
		}
		if group(groupSizeOp) == "<" {
			v := int64(math.Floor(bytes))
			f.SizeMax = &v
		} else {
			v := int64(math.Ceil(bytes))
			f.SizeMin = &v
		}
		return true

	case m[2*groupDate] >= 0:
		d, err := time.Parse(DateLayout, group(groupDate))
		if err != nil {
			return false
		}
		if group(groupDateOp) == "<" {
			f.DateTo = &d
		} else {
			f.DateFrom = &d
		}
		return true
	}
	return false
}

func unitMultiplier(unit string) float64 {
	switch strings.ToLower(unit) {
	case "mb":
		return MB
	case "gb":
		return GB
	default:
		return KB
	}
}

// HasConstraints reports whether any structured filter is set.
func (f Filter) HasConstraints() bool {
	return f.Type != "" || f.Extension != "" ||
		f.SizeMin != nil || f.SizeMax != nil ||
		f.DateFrom != nil || f.DateTo != nil
}

// JoinedTerms returns the free-text terms joined by single spaces.
func (f Filter) JoinedTerms() string {
	return strings.Join(f.Terms, " ")
}

// Matches reports whether attrs satisfy every set constraint.
// Records without an upload time are not excluded by date constraints.
func (f Filter) Matches(attrs Attributes) bool {
	if f.Type != "" && strings.ToLower(attrs.Type) != f.Type {
		return false
	}
	if f.Extension != "" && NormalizeExtension(attrs.Extension) != f.Extension {
		return false
	}
	if f.SizeMin != nil && attrs.Size < *f.SizeMin {
		return false
	}
	if f.SizeMax != nil && attrs.Size > *f.SizeMax {
		return false
	}
	if attrs.UploadedAt != nil {
		if f.DateFrom != nil && attrs.UploadedAt.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && attrs.UploadedAt.After(*f.DateTo) {
			return false
		}
	}
	return true
}

// NormalizeExtension lowercases ext and strips every dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.ReplaceAll(ext, ".", ""))
}

// String renders the filter for display, terms first.
func (f Filter) String() string {
	parts := append([]string(nil), f.Terms...)
	if f.Type != "" {
		parts = append(parts, "type:"+f.Type)
	}
	if f.Extension != "" {
		parts = append(parts, "ext:"+f.Extension)
	}
	if f.SizeMin != nil {
		parts = append(parts, fmt.Sprintf("size>=%dB", *f.SizeMin))
	}
	if f.SizeMax != nil {
		parts = append(parts, fmt.Sprintf("size<=%dB", *f.SizeMax))
	}
	if f.DateFrom != nil {
		parts = append(parts, "from:"+f.DateFrom.Format(DateLayout))
	}
	if f.DateTo != nil {
		parts = append(parts, "to:"+f.DateTo.Format(DateLayout))
	}
	return strings.Join(parts, " ")
}
