package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func seedTestPeople(t *testing.T, d *SQLiteDirectory, people ...Person) {
	t.Helper()
	batch := make([]*Person, 0, len(people))
	for i := range people {
		batch = append(batch, &people[i])
	}
	if _, err := d.AddPersonBatch(context.Background(), batch); err != nil {
		t.Fatalf("seeding people: %v", err)
	}
}

func TestAddPersonComputesComparisonForms(t *testing.T) {
	d := newTestDirectory(t)

	p := &Person{Name: "Élodie  O'Brien", Popularity: 3}
	id, err := d.AddPerson(context.Background(), p)
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}

	if p.NameNorm != "elodie obrien" {
		t.Errorf("NameNorm = %q, want %q", p.NameNorm, "elodie obrien")
	}
	if p.NameKey != "elodieobrien" {
		t.Errorf("NameKey = %q, want %q", p.NameKey, "elodieobrien")
	}

	got, err := d.GetPerson(context.Background(), id)
	if err != nil {
		t.Fatalf("GetPerson: %v", err)
	}
	if got == nil || got.Name != "Élodie  O'Brien" || got.NameNorm != p.NameNorm || got.Popularity != 3 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestAddPersonRejectsEmpty(t *testing.T) {
	d := newTestDirectory(t)

	if _, err := d.AddPerson(context.Background(), &Person{Name: ""}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := d.AddPerson(context.Background(), &Person{Name: "!!!"}); err == nil {
		t.Error("expected error for name normalizing to empty")
	}
}

func TestFindExact(t *testing.T) {
	d := newTestDirectory(t)
	seedTestPeople(t, d,
		Person{Name: "John Smith", Popularity: 10},
		Person{Name: "Jane Smith", Popularity: 20},
	)

	hit, err := d.FindExact(context.Background(), "john smith")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if hit == nil || hit.Name != "John Smith" {
		t.Fatalf("expected John Smith, got %+v", hit)
	}

	miss, err := d.FindExact(context.Background(), "john smyth")
	if err != nil {
		t.Fatalf("FindExact miss: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil for miss, got %+v", miss)
	}
}

func TestFindExactPrefersPopular(t *testing.T) {
	d := newTestDirectory(t)
	// Two distinct display names sharing one normalized form.
	seedTestPeople(t, d,
		Person{Name: "John   Smith", Popularity: 2},
		Person{Name: "John Smith", Popularity: 50},
	)

	hit, err := d.FindExact(context.Background(), "john smith")
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if hit == nil || hit.Popularity != 50 {
		t.Fatalf("expected the popular record, got %+v", hit)
	}
}

func TestQueryPrefix(t *testing.T) {
	d := newTestDirectory(t)
	seedTestPeople(t, d,
		Person{Name: "John Smith"},
		Person{Name: "John Smythe"},
		Person{Name: "Jane Smith"},
	)

	rows, err := d.QueryPrefix(context.Background(), "johnsm", 100)
	if err != nil {
		t.Fatalf("QueryPrefix: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows for prefix johnsm, got %d", len(rows))
	}

	limited, err := d.QueryPrefix(context.Background(), "j", 1)
	if err != nil {
		t.Fatalf("QueryPrefix limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d rows", len(limited))
	}
}

func TestQueryFullText(t *testing.T) {
	d := newTestDirectory(t)
	if !d.SupportsFullText() {
		t.Skip("FTS5 not available")
	}
	seedTestPeople(t, d,
		Person{Name: "John Smith"},
		Person{Name: "Jane Smith"},
		Person{Name: "Wei Zhang"},
	)

	rows, err := d.QueryFullText(context.Background(), "smit*", 100)
	if err != nil {
		t.Fatalf("QueryFullText: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows for smit*, got %d", len(rows))
	}

	// All terms are required: jane* AND smith* excludes John.
	rows, err = d.QueryFullText(context.Background(), "jane* smith*", 100)
	if err != nil {
		t.Fatalf("QueryFullText: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Jane Smith" {
		t.Fatalf("expected only Jane Smith, got %+v", rows)
	}
}

func TestQueryFullTextMalformed(t *testing.T) {
	d := newTestDirectory(t)
	if !d.SupportsFullText() {
		t.Skip("FTS5 not available")
	}
	seedTestPeople(t, d, Person{Name: "John Smith"})

	// Unbalanced quote is an FTS5 syntax error; the cascade contains it,
	// so it must be a plain error, not a fatal one.
	_, err := d.QueryFullText(context.Background(), `"john`, 10)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if IsFatal(err) {
		t.Errorf("FTS syntax error should not be fatal: %v", err)
	}
}

func TestQuerySubstring(t *testing.T) {
	d := newTestDirectory(t)
	seedTestPeople(t, d,
		Person{Name: "John Smith"},
		Person{Name: "Johnny Smithson"},
		Person{Name: "Wei Zhang"},
	)

	rows, err := d.QuerySubstring(context.Background(), "smith", 100)
	if err != nil {
		t.Fatalf("QuerySubstring: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows containing 'smith', got %d", len(rows))
	}

	// Matches anywhere, not just at a token boundary.
	rows, err = d.QuerySubstring(context.Background(), "mithso", 100)
	if err != nil {
		t.Fatalf("QuerySubstring: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Johnny Smithson" {
		t.Fatalf("expected only Johnny Smithson, got %+v", rows)
	}
}

func TestStats(t *testing.T) {
	d := newTestDirectory(t)
	seedTestPeople(t, d,
		Person{Name: "John Smith"},
		Person{Name: "Jane Smith"},
	)

	stats, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.PersonCount != 2 {
		t.Errorf("PersonCount = %d, want 2", stats.PersonCount)
	}
	if stats.FullText != d.SupportsFullText() {
		t.Error("Stats.FullText disagrees with SupportsFullText")
	}
}

func TestAddPersonBatch(t *testing.T) {
	d := newTestDirectory(t)

	batch := make([]*Person, 0, 10)
	for i := 0; i < 10; i++ {
		batch = append(batch, &Person{Name: fmt.Sprintf("Person Number%d", i)})
	}
	ids, err := d.AddPersonBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("AddPersonBatch: %v", err)
	}
	if len(ids) != 10 {
		t.Fatalf("expected 10 ids, got %d", len(ids))
	}

	stats, _ := d.Stats(context.Background())
	if stats.PersonCount != 10 {
		t.Errorf("PersonCount = %d, want 10", stats.PersonCount)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(fmt.Errorf("wrap: %w", ErrUnavailable)) {
		t.Error("wrapped ErrUnavailable should be fatal")
	}
	if !IsFatal(context.Canceled) {
		t.Error("context.Canceled should be fatal")
	}
	if IsFatal(errors.New("fts5: syntax error")) {
		t.Error("plain query errors should not be fatal")
	}
	if IsFatal(nil) {
		t.Error("nil should not be fatal")
	}
}
