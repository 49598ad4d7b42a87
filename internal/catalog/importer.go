package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
)

// Format is an import file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the import format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeImportFormat,
			fmt.Sprintf("unsupported import file %q", filepath.Base(path)), nil).
			WithSuggestion("use a .json, .yaml or .yml file")
	}
}

// recordFile is the wrapped document form: {"files": [...]}.
type recordFile struct {
	Files []*FileRecord `json:"files" yaml:"files"`
}

// LoadRecords reads records from a JSON or YAML file. The document may be a
// list of records or an object with a "files" list. Every record is
// validated.
func LoadRecords(path string) ([]*FileRecord, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.ErrCodeFileNotFound, fmt.Sprintf("import file %s not found", path), err)
		}
		return nil, apperrors.New(apperrors.ErrCodeFilePermission, fmt.Sprintf("cannot read %s", path), err)
	}

	records, err := DecodeRecords(data, format)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeRecords parses records in the given format and validates them.
func DecodeRecords(data []byte, format Format) ([]*FileRecord, error) {
	var records []*FileRecord
	var err error

	switch format {
	case FormatJSON:
		records, err = decodeJSON(data)
	case FormatYAML:
		records, err = decodeYAML(data)
	default:
		return nil, apperrors.New(apperrors.ErrCodeImportFormat, fmt.Sprintf("unknown format %q", format), nil)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeImportFormat, fmt.Sprintf("invalid %s document", format), err)
	}

	seen := make(map[int64]bool, len(records))
	for i, r := range records {
		if err := Validate(r); err != nil {
			if ae, ok := apperrors.As(err); ok {
				ae.WithDetail("index", fmt.Sprint(i))
			}
			return nil, err
		}
		if seen[r.ID] {
			return nil, apperrors.New(apperrors.ErrCodeInvalidRecord, fmt.Sprintf("duplicate record id %d", r.ID), nil).
				WithDetail("index", fmt.Sprint(i))
		}
		seen[r.ID] = true
	}
	return records, nil
}

func decodeJSON(data []byte) ([]*FileRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []*FileRecord
		err := json.Unmarshal(trimmed, &records)
		return records, err
	}
	var doc recordFile
	err := json.Unmarshal(trimmed, &doc)
	return doc.Files, err
}

func decodeYAML(data []byte) ([]*FileRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []*FileRecord
		err := root.Decode(&records)
		return records, err
	}
	var doc recordFile
	err := root.Decode(&doc)
	return doc.Files, err
}
