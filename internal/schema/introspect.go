package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/koustreak/blindsight/internal/database"
	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/result"
)

// Introspector implements Reader over a database.DB. Identifiers come from
// the database itself and are quoted with the engine's profile.
type Introspector struct {
	db      database.DB
	profile *dialect.Profile
	columns string // query listing a table's columns, one bind parameter
}

// NewIntrospector returns a Reader for db, which speaks driver.
func NewIntrospector(db database.DB, driver database.Driver) (*Introspector, error) {
	d, err := database.ParseDriver(string(driver))
	if err != nil {
		return nil, err
	}
	switch d {
	case database.DriverPostgres:
		return &Introspector{db: db, profile: dialect.PostgreSQL, columns: `
			SELECT column_name
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY column_name`}, nil
	case database.DriverMySQL:
		return &Introspector{db: db, profile: dialect.MySQL, columns: `
			SELECT column_name
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY column_name`}, nil
	default:
		return &Introspector{db: db, profile: dialect.SQLite, columns: `
			SELECT name FROM pragma_table_info(?) ORDER BY name`}, nil
	}
}

// Profile is the dialect the database speaks.
func (i *Introspector) Profile() *dialect.Profile {
	return i.profile
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	return i.db.ListTables(ctx)
}

func (i *Introspector) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := i.db.Query(ctx, i.columns, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s not found or has no columns", table)
	}
	return cols, nil
}

func (i *Introspector) ReadRows(ctx context.Context, table string, columns []string, limit int) ([]result.Row, error) {
	if len(columns) == 0 || limit <= 0 {
		return nil, nil
	}
	q := i.profile.SelectRows(table, columns) + fmt.Sprintf(" LIMIT %d", limit)
	rows, err := i.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", table, err)
	}
	defer rows.Close()

	var out []result.Row
	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for k := range cells {
		dest[k] = &cells[k]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(result.Row, len(columns))
		for k, c := range columns {
			row[c] = cells[k].String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (i *Introspector) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := i.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+i.profile.QuoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return n, nil
}
