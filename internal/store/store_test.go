package store

import (
	"context"
	"testing"
)

// newTestDirectory creates an in-memory directory for testing.
func newTestDirectory(t *testing.T) *SQLiteDirectory {
	t.Helper()
	d, err := Open(DirectoryConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test directory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen(t *testing.T) {
	d := newTestDirectory(t)

	for _, table := range []string{"persons", "persons_fts"} {
		var name string
		err := d.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	if !d.SupportsFullText() {
		t.Error("expected full-text support on a fresh directory")
	}
}

func TestOpenCustomSchema(t *testing.T) {
	sc := Schema{
		Table:   "players",
		IDCol:   "player_id",
		NameCol: "display_name",
		NormCol: "display_norm",
		KeyCol:  "display_key",
		PopCol:  "rank_points",
	}
	d, err := Open(DirectoryConfig{DBPath: ":memory:", Schema: sc})
	if err != nil {
		t.Fatalf("Open with custom schema: %v", err)
	}
	defer d.Close()

	id, err := d.AddPerson(context.Background(), &Person{Name: "Serena Williams", Popularity: 9})
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}

	hit, err := d.FindExact(context.Background(), "serena williams")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if hit == nil || hit.ID != id {
		t.Fatalf("expected exact hit with id %d, got %+v", id, hit)
	}
}

func TestOpenMalformedSchema(t *testing.T) {
	// An identifier with a space breaks the DDL; malformed configuration
	// must fail at open, not at first query.
	sc := DefaultSchema()
	sc.NormCol = "no such column"
	_, err := Open(DirectoryConfig{DBPath: ":memory:", Schema: sc})
	if err == nil {
		t.Fatal("expected error for malformed schema, got nil")
	}
}

func TestWALMode(t *testing.T) {
	d := newTestDirectory(t)

	var mode string
	d.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	// In-memory databases report "memory"; WAL applies to file-based ones.
	if mode != "memory" && mode != "wal" {
		t.Errorf("expected journal_mode 'wal' or 'memory', got %q", mode)
	}
}
