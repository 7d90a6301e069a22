// Package ingest loads person records into the directory.
// It parses CSV/TSV and JSON name lists, computes the normalized comparison
// columns through internal/normalize, and writes records in batches.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/hurttlocker/roster/internal/normalize"
	"github.com/hurttlocker/roster/internal/store"
)

// DefaultBatchSize is how many records one insert transaction carries.
const DefaultBatchSize = 500

// RawPerson is a parsed record ready for storage.
type RawPerson struct {
	Name       string // display name as found in the source
	Popularity int64  // occurrence count or editorial weight; 0 when absent
	SourceFile string
	SourceLine int // 1-indexed
}

// Importer handles a specific file format.
type Importer interface {
	// CanHandle returns true if this importer supports the given file path.
	CanHandle(path string) bool

	// Import parses the file and returns raw records.
	Import(ctx context.Context, path string) ([]RawPerson, error)
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	RowsScanned  int
	PersonsAdded int
	RowsSkipped  int
	Errors       []ImportError
}

// Add merges another ImportResult into this one.
func (r *ImportResult) Add(other *ImportResult) {
	r.RowsScanned += other.RowsScanned
	r.PersonsAdded += other.PersonsAdded
	r.RowsSkipped += other.RowsSkipped
	r.Errors = append(r.Errors, other.Errors...)
}

// ImportError records a non-fatal error during import.
type ImportError struct {
	File    string
	Line    int
	Message string
}

// ImportOptions configures an import operation.
type ImportOptions struct {
	DryRun    bool
	BatchSize int // default DefaultBatchSize
}

// Engine routes files to importers and writes the results.
type Engine struct {
	dir       store.Directory
	importers []Importer
}

// NewEngine creates an import engine with the built-in format importers.
func NewEngine(dir store.Directory) *Engine {
	return &Engine{
		dir:       dir,
		importers: []Importer{&CSVImporter{}, &JSONImporter{}},
	}
}

// ImportFile parses one file and stores its records. Rows whose name
// normalizes to the empty string are skipped, not errors: a record no
// query form can ever reach has no business in the directory.
func (e *Engine) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	var imp Importer
	for _, candidate := range e.importers {
		if candidate.CanHandle(path) {
			imp = candidate
			break
		}
	}
	if imp == nil {
		return nil, fmt.Errorf("no importer for %s", path)
	}

	raws, err := imp.Import(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	result := &ImportResult{RowsScanned: len(raws)}
	batch := make([]*store.Person, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 || opts.DryRun {
			batch = batch[:0]
			return nil
		}
		if _, err := e.dir.AddPersonBatch(ctx, batch); err != nil {
			return fmt.Errorf("storing batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, raw := range raws {
		name := strings.TrimSpace(raw.Name)
		if normalize.Name(name) == "" {
			result.RowsSkipped++
			result.Errors = append(result.Errors, ImportError{
				File:    raw.SourceFile,
				Line:    raw.SourceLine,
				Message: fmt.Sprintf("name %q normalizes to empty", raw.Name),
			})
			continue
		}
		batch = append(batch, &store.Person{Name: name, Popularity: raw.Popularity})
		result.PersonsAdded++
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	return result, nil
}

// FormatImportResult renders a human-readable summary.
func FormatImportResult(r *ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rows scanned:  %d\n", r.RowsScanned)
	fmt.Fprintf(&b, "Persons added: %d\n", r.PersonsAdded)
	fmt.Fprintf(&b, "Rows skipped:  %d\n", r.RowsSkipped)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s:%d: %s\n", e.File, e.Line, e.Message)
	}
	return b.String()
}
