// Package catalog is the record store that feeds the search engine: file
// metadata records, persisted interaction signals and the search log.
package catalog

import (
	"strings"
	"time"
)

// FileRecord is the metadata of one stored file.
type FileRecord struct {
	ID          int64          `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	Size        int64          `json:"size" yaml:"size"`
	UploadedAt  string         `json:"uploaded_at,omitempty" yaml:"uploaded_at,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Extension   string         `json:"extension,omitempty" yaml:"extension,omitempty"`
	MimeType    string         `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string         `json:"category,omitempty" yaml:"category,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// uploadLayouts are the ISO-8601 forms accepted for UploadedAt. Layouts
// without a zone are read as UTC.
var uploadLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UploadTime parses UploadedAt. It reports false when the field is empty or
// not a recognised ISO-8601 timestamp.
func (r *FileRecord) UploadTime() (time.Time, bool) {
	return ParseTimestamp(r.UploadedAt)
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range uploadLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy of r.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
