package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hurttlocker/roster/internal/normalize"
)

// AddPerson inserts a directory record. NameNorm and NameKey are computed
// from Name when empty, which keeps the comparison columns aligned with the
// query-side normalizer by construction. Returns the new record ID.
func (d *SQLiteDirectory) AddPerson(ctx context.Context, p *Person) (int64, error) {
	if p.Name == "" {
		return 0, fmt.Errorf("person name cannot be empty")
	}
	if p.NameNorm == "" {
		p.NameNorm = normalize.Name(p.Name)
	}
	if p.NameKey == "" {
		p.NameKey = normalize.Key(p.Name)
	}
	if p.NameNorm == "" {
		return 0, fmt.Errorf("person name %q normalizes to empty", p.Name)
	}

	sc := d.schema
	result, err := d.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)`,
			sc.Table, sc.NameCol, sc.NormCol, sc.KeyCol, sc.PopCol),
		p.Name, p.NameNorm, p.NameKey, p.Popularity,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting person: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	p.ID = id
	return id, nil
}

// AddPersonBatch inserts records inside a single transaction.
func (d *SQLiteDirectory) AddPersonBatch(ctx context.Context, people []*Person) ([]int64, error) {
	if len(people) == 0 {
		return nil, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch: %w", err)
	}
	defer tx.Rollback()

	sc := d.schema
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES (?, ?, ?, ?)`,
			sc.Table, sc.NameCol, sc.NormCol, sc.KeyCol, sc.PopCol))
	if err != nil {
		return nil, fmt.Errorf("preparing batch insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(people))
	for _, p := range people {
		if p.Name == "" {
			return nil, fmt.Errorf("person name cannot be empty")
		}
		if p.NameNorm == "" {
			p.NameNorm = normalize.Name(p.Name)
		}
		if p.NameKey == "" {
			p.NameKey = normalize.Key(p.Name)
		}
		if p.NameNorm == "" {
			return nil, fmt.Errorf("person name %q normalizes to empty", p.Name)
		}
		res, err := stmt.ExecContext(ctx, p.Name, p.NameNorm, p.NameKey, p.Popularity)
		if err != nil {
			return nil, fmt.Errorf("inserting person %q: %w", p.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting last insert id: %w", err)
		}
		p.ID = id
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return ids, nil
}

// selectCols is the projection every read query shares.
func (d *SQLiteDirectory) selectCols() string {
	sc := d.schema
	return fmt.Sprintf("%s, %s, %s, %s, %s", sc.IDCol, sc.NameCol, sc.NormCol, sc.KeyCol, sc.PopCol)
}

// GetPerson retrieves a record by ID. Returns nil if not found or soft-deleted.
func (d *SQLiteDirectory) GetPerson(ctx context.Context, id int64) (*Person, error) {
	sc := d.schema
	p := &Person{}
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND deleted_at IS NULL`,
			d.selectCols(), sc.Table, sc.IDCol),
		id,
	).Scan(&p.ID, &p.Name, &p.NameNorm, &p.NameKey, &p.Popularity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person %d: %w", id, err)
	}
	return p, nil
}

// FindExact returns the record whose normalized name equals nameNorm, or
// nil when there is none. Ties on the normalized form go to the most
// popular record so repeated probes are deterministic.
func (d *SQLiteDirectory) FindExact(ctx context.Context, nameNorm string) (*Person, error) {
	sc := d.schema
	p := &Person{}
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE %s = ? AND deleted_at IS NULL
		 ORDER BY %s DESC, %s ASC
		 LIMIT 1`,
			d.selectCols(), sc.Table, sc.NormCol, sc.PopCol, sc.IDCol),
		nameNorm,
	).Scan(&p.ID, &p.Name, &p.NameNorm, &p.NameKey, &p.Popularity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact probe: %w", err)
	}
	return p, nil
}

// QueryPrefix returns records whose prefix key starts with keyPrefix,
// bounded by limit. Index-friendly: LIKE with a trailing %% walks the
// key index.
func (d *SQLiteDirectory) QueryPrefix(ctx context.Context, keyPrefix string, limit int) ([]Person, error) {
	sc := d.schema
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE %s LIKE ? || '%%' AND deleted_at IS NULL
		 LIMIT ?`,
			d.selectCols(), sc.Table, sc.KeyCol),
		keyPrefix, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("prefix query: %w", err)
	}
	return scanPeople(rows)
}

// QueryFullText runs an FTS5 boolean query against the normalized-name
// index, bounded by limit. Callers must check SupportsFullText first.
func (d *SQLiteDirectory) QueryFullText(ctx context.Context, booleanQuery string, limit int) ([]Person, error) {
	if !d.fullText {
		return nil, fmt.Errorf("full-text index not available on %s", d.schema.ftsTable())
	}

	sc := d.schema
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s f
		 JOIN %s p ON f.rowid = p.%s
		 WHERE %s MATCH ? AND p.deleted_at IS NULL
		 LIMIT ?`,
			prefixCols(d.selectCols(), "p"), sc.ftsTable(), sc.Table, sc.IDCol, sc.ftsTable()),
		booleanQuery, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	return scanPeople(rows)
}

// QuerySubstring returns records whose normalized name contains substr
// anywhere. Full scan; last resort only.
func (d *SQLiteDirectory) QuerySubstring(ctx context.Context, substr string, limit int) ([]Person, error) {
	sc := d.schema
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE %s LIKE '%%' || ? || '%%' AND deleted_at IS NULL
		 LIMIT ?`,
			d.selectCols(), sc.Table, sc.NormCol),
		substr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("substring query: %w", err)
	}
	return scanPeople(rows)
}

// Stats returns current directory statistics.
func (d *SQLiteDirectory) Stats(ctx context.Context) (*DirectoryStats, error) {
	sc := d.schema
	stats := &DirectoryStats{FullText: d.fullText}

	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL", sc.Table),
	).Scan(&stats.PersonCount)
	if err != nil {
		return nil, fmt.Errorf("counting persons: %w", err)
	}

	// DB size only works for file-based databases.
	if d.dbPath != ":memory:" {
		var pageCount, pageSize int64
		d.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
		d.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.DBSizeBytes = pageCount * pageSize
	}

	return stats, nil
}

func scanPeople(rows *sql.Rows) ([]Person, error) {
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.NameNorm, &p.NameKey, &p.Popularity); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}

// prefixCols qualifies a comma-separated column list with a table alias.
func prefixCols(cols, alias string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
