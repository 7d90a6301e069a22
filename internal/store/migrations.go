package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrate creates the directory table, its FTS5 shadow table, and the sync
// triggers if they don't exist. Identifiers come from the validated Schema,
// never from query values.
func (d *SQLiteDirectory) migrate() error {
	sc := d.schema

	// Directory table. name_norm and name_key are written by the
	// importer using internal/normalize; they are the only columns
	// retrieval compares against.
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s          INTEGER PRIMARY KEY AUTOINCREMENT,
		%s          TEXT NOT NULL,
		%s          TEXT NOT NULL,
		%s          TEXT NOT NULL,
		%s          INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		deleted_at  DATETIME
	)`, sc.Table, sc.IDCol, sc.NameCol, sc.NormCol, sc.KeyCol, sc.PopCol)
	if _, err := d.db.Exec(createTable); err != nil {
		return fmt.Errorf("executing DDL: %w", err)
	}

	// Adopted tables may predate soft deletion; every read filters on
	// deleted_at and the FTS triggers reference it.
	if err := d.ensureDeletedAt(); err != nil {
		return err
	}

	statements := []string{
		// Prefix lookups walk this index; exact-match probes use the norm index.
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`,
			sc.Table, sc.KeyCol, sc.Table, sc.KeyCol),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)`,
			sc.Table, sc.NormCol, sc.Table, sc.NormCol),

		// FTS5 index over the normalized name only. unicode61 without
		// stemming: names are not prose, "smithe" must not stem to "smith".
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(
			%s,
			content=%s,
			content_rowid=%s,
			tokenize='unicode61'
		)`, sc.ftsTable(), sc.NormCol, sc.Table, sc.IDCol),

		// FTS sync triggers
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN
			INSERT INTO %s(rowid, %s) VALUES (new.%s, new.%s);
		END`, sc.Table, sc.Table, sc.ftsTable(), sc.NormCol, sc.IDCol, sc.NormCol),

		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.%s, old.%s);
		END`, sc.Table, sc.Table, sc.ftsTable(), sc.ftsTable(), sc.NormCol, sc.IDCol, sc.NormCol),

		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_au AFTER UPDATE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.%s, old.%s);
			INSERT INTO %s(rowid, %s)
				SELECT new.%s, new.%s WHERE new.deleted_at IS NULL;
		END`, sc.Table, sc.Table,
			sc.ftsTable(), sc.ftsTable(), sc.NormCol, sc.IDCol, sc.NormCol,
			sc.ftsTable(), sc.NormCol, sc.IDCol, sc.NormCol),
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			// FTS5 may be compiled out of the linked SQLite. The directory
			// still works; the full-text strategy is just unavailable.
			if strings.Contains(stmt, "USING fts5") || strings.Contains(stmt, "TRIGGER") {
				if isNoFTS5(err) {
					continue
				}
			}
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	return nil
}

// ensureDeletedAt adds the deleted_at column to tables that lack it.
func (d *SQLiteDirectory) ensureDeletedAt() error {
	var n int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = 'deleted_at'",
		d.schema.Table,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("introspecting table %q: %w", d.schema.Table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := d.db.Exec(
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN deleted_at DATETIME", d.schema.Table),
	); err != nil {
		return fmt.Errorf("adding deleted_at to %q: %w", d.schema.Table, err)
	}
	return nil
}

// validateSchema checks that every configured column exists on the target
// table. A missing table or column is malformed configuration and fatal.
func (d *SQLiteDirectory) validateSchema() error {
	sc := d.schema

	cols := map[string]bool{}
	rows, err := d.db.Query("SELECT name FROM pragma_table_info(?)", sc.Table)
	if err != nil {
		return fmt.Errorf("introspecting table %q: %w", sc.Table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning table info: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(cols) == 0 {
		return fmt.Errorf("table %q does not exist", sc.Table)
	}

	for _, c := range []string{sc.IDCol, sc.NameCol, sc.NormCol, sc.KeyCol, sc.PopCol} {
		if !cols[c] {
			return fmt.Errorf("table %q is missing column %q", sc.Table, c)
		}
	}
	return nil
}

// probeFullText reports whether the FTS5 shadow table is present.
func (d *SQLiteDirectory) probeFullText() bool {
	var name string
	err := d.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		d.schema.ftsTable(),
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	return err == nil
}

func isNoFTS5(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such module: fts5") ||
		strings.Contains(msg, "no such table") && strings.Contains(msg, "_fts")
}
