// Package store provides the SQLite + FTS5 directory layer for roster.
//
// A directory is a single table of person records carrying, alongside the
// display name, two precomputed comparison columns: the normalized name
// (name_norm) and the prefix key (name_key, normalized with spaces removed).
// Retrieval compares those columns byte-for-byte against the query forms
// produced by internal/normalize, so both sides must be built by the same
// code path.
//
// The table and column names are configurable through Schema so the
// resolution pipeline stays schema-agnostic; identifiers are validated once
// at open and are never mixed with query values (values always bind as
// parameters).
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.roster/roster.db"

// ErrUnavailable marks connection-level store failures. Strategy-level
// query errors are contained by the retrieval cascade; errors matching
// this sentinel abort the whole pipeline.
var ErrUnavailable = errors.New("store unavailable")

// Person is a single directory record. Retrieval returns read-only
// snapshots; nothing in the pipeline mutates them.
type Person struct {
	ID         int64
	Name       string
	NameNorm   string
	NameKey    string
	Popularity int64
}

// Schema names the table and columns the directory queries target.
type Schema struct {
	Table   string
	IDCol   string
	NameCol string
	NormCol string
	KeyCol  string
	PopCol  string
}

// DefaultSchema returns the schema roster creates for its own databases.
func DefaultSchema() Schema {
	return Schema{
		Table:   "persons",
		IDCol:   "id",
		NameCol: "name",
		NormCol: "name_norm",
		KeyCol:  "name_key",
		PopCol:  "popularity",
	}
}

// ftsTable is the name of the FTS5 shadow table for this schema.
func (sc Schema) ftsTable() string {
	return sc.Table + "_fts"
}

// DirectoryStats holds observability statistics about the directory.
type DirectoryStats struct {
	PersonCount int64
	FullText    bool
	DBSizeBytes int64
}

// Directory is the storage contract the resolution pipeline runs against.
type Directory interface {
	// Writes
	AddPerson(ctx context.Context, p *Person) (int64, error)
	AddPersonBatch(ctx context.Context, people []*Person) ([]int64, error)

	// Reads
	GetPerson(ctx context.Context, id int64) (*Person, error)
	FindExact(ctx context.Context, nameNorm string) (*Person, error)
	QueryPrefix(ctx context.Context, keyPrefix string, limit int) ([]Person, error)
	QueryFullText(ctx context.Context, booleanQuery string, limit int) ([]Person, error)
	QuerySubstring(ctx context.Context, substr string, limit int) ([]Person, error)

	// SupportsFullText reports whether QueryFullText is callable.
	// Checked once at open, like the comparison-column check.
	SupportsFullText() bool

	Stats(ctx context.Context) (*DirectoryStats, error)
	Close() error
}

// SQLiteDirectory implements Directory using SQLite + FTS5.
type SQLiteDirectory struct {
	db       *sql.DB
	dbPath   string
	schema   Schema
	fullText bool
}

// DirectoryConfig holds configuration for Open.
type DirectoryConfig struct {
	DBPath string
	Schema Schema
}

// Open creates or opens a SQLite-backed Directory.
// Pass ":memory:" for in-memory databases (testing).
func Open(cfg DirectoryConfig) (*SQLiteDirectory, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}
	if cfg.Schema == (Schema{}) {
		cfg.Schema = DefaultSchema()
	}

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w (%v)", ErrUnavailable, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	d := &SQLiteDirectory{
		db:     db,
		dbPath: cfg.DBPath,
		schema: cfg.Schema,
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := d.validateSchema(); err != nil {
		db.Close()
		return nil, err
	}

	d.fullText = d.probeFullText()

	return d, nil
}

// SupportsFullText reports whether the FTS5 shadow table exists.
func (d *SQLiteDirectory) SupportsFullText() bool {
	return d.fullText
}

// Close closes the database connection.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

// IsFatal reports whether a retrieval error must abort the whole pipeline
// instead of being contained at the strategy boundary.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
