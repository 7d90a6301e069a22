package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CSVImporter handles .csv and .tsv files.
// The first row is a header; a "name" column is required, a "popularity"
// column is optional. Header matching is case-insensitive.
type CSVImporter struct{}

// CanHandle returns true for CSV/TSV file extensions.
func (c *CSVImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".tsv"
}

// Import parses a CSV file into raw person records.
func (c *CSVImporter) Import(ctx context.Context, path string) ([]RawPerson, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	// Auto-detect TSV
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		reader.Comma = '\t'
	}

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}

	if len(records) < 2 {
		// Need at least headers + one row
		return nil, nil
	}

	nameIdx, popIdx := -1, -1
	for i, h := range records[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "person_name", "full_name":
			nameIdx = i
		case "popularity", "count", "weight":
			popIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s: no name column in header %v", path, records[0])
	}

	var people []RawPerson
	for i, row := range records[1:] {
		if nameIdx >= len(row) {
			continue
		}
		p := RawPerson{
			Name:       strings.TrimSpace(row[nameIdx]),
			SourceFile: absPath,
			SourceLine: i + 2, // 1-indexed, skip header row
		}
		if popIdx >= 0 && popIdx < len(row) {
			if n, err := strconv.ParseInt(strings.TrimSpace(row[popIdx]), 10, 64); err == nil {
				p.Popularity = n
			}
		}
		people = append(people, p)
	}

	return people, nil
}
