package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// JSONImporter handles .json name lists: either an array of strings or an
// array of objects with "name" and optional "popularity" fields.
type JSONImporter struct{}

// CanHandle returns true for the .json extension.
func (j *JSONImporter) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

type jsonPerson struct {
	Name       string `json:"name"`
	Popularity int64  `json:"popularity"`
}

// Import parses a JSON file into raw person records.
func (j *JSONImporter) Import(ctx context.Context, path string) ([]RawPerson, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parsing JSON %s: expected a top-level array: %w", path, err)
	}

	var people []RawPerson
	for i, entry := range entries {
		p := RawPerson{SourceFile: absPath, SourceLine: i + 1}

		var name string
		if err := json.Unmarshal(entry, &name); err == nil {
			p.Name = strings.TrimSpace(name)
			people = append(people, p)
			continue
		}

		var obj jsonPerson
		if err := json.Unmarshal(entry, &obj); err != nil {
			return nil, fmt.Errorf("parsing JSON %s entry %d: %w", path, i, err)
		}
		p.Name = strings.TrimSpace(obj.Name)
		p.Popularity = obj.Popularity
		people = append(people, p)
	}

	return people, nil
}
