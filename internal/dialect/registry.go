package dialect

import (
	"strings"

	"github.com/koustreak/blindsight/internal/errs"
)

const (
	limitPaging = " LIMIT 1 OFFSET %d"
	fetchPaging = " OFFSET %d ROWS FETCH NEXT 1 ROWS ONLY"
	lengthOf    = "LENGTH((%s))"
)

var (
	MySQL = &Profile{
		Kind:        KindMySQL,
		Name:        "MySQL",
		Fingerprint: "CONNECTION_ID()=CONNECTION_ID()",
		TablesFrom:  "information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'",
		TableName:   "table_name",
		ColumnsFrom: "information_schema.columns WHERE table_name = %s AND table_schema = DATABASE()",
		ColumnName:  "column_name",
		LengthOf:    lengthOf,
		SubstrFunc:  "SUBSTRING",
		CodeFunc:    "ASCII",
		Paging:      limitPaging,
		QuoteOpen:   "`",
		QuoteClose:  "`",
		SortKey:     "CAST(%s AS BINARY)",
	}

	PostgreSQL = &Profile{
		Kind:           KindPostgreSQL,
		Name:           "PostgreSQL",
		Fingerprint:    "PG_BACKEND_PID()>0",
		TablesFrom:     "information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'",
		TableName:      "table_name",
		ColumnsFrom:    "information_schema.columns WHERE table_name = %s AND table_schema = current_schema()",
		ColumnName:     "column_name",
		LengthOf:       lengthOf,
		SubstrFunc:     "SUBSTRING",
		CodeFunc:       "ASCII",
		Paging:         limitPaging,
		QuoteOpen:      `"`,
		QuoteClose:     `"`,
		TextCast:       "CAST(%s AS TEXT)",
		LiteralCompare: true,
	}

	MSSQL = &Profile{
		Kind:        KindMSSQL,
		Name:        "MS SQL Server",
		Fingerprint: "LEN(DB_NAME())>0",
		TablesFrom:  "information_schema.tables WHERE table_schema = SCHEMA_NAME() AND table_type = 'BASE TABLE'",
		TableName:   "table_name",
		ColumnsFrom: "information_schema.columns WHERE table_name = %s AND table_schema = SCHEMA_NAME()",
		ColumnName:  "column_name",
		LengthOf:    "LEN((%s)+'x')-1", // LEN ignores trailing spaces
		SubstrFunc:  "SUBSTRING",
		CodeFunc:    "ASCII",
		Paging:      fetchPaging,
		QuoteOpen:   "[",
		QuoteClose:  "]",
		TextCast:    "CAST(%s AS NVARCHAR(4000))",
		SortKey:     "%s COLLATE Latin1_General_BIN2",
	}

	Oracle = &Profile{
		Kind:        KindOracle,
		Name:        "Oracle",
		Fingerprint: "LENGTH(SYS_CONTEXT('USERENV','DB_NAME'))>0",
		TablesFrom:  "user_tables",
		TableName:   "table_name",
		ColumnsFrom: "user_tab_columns WHERE table_name = %s",
		ColumnName:  "column_name",
		LengthOf:    lengthOf,
		SubstrFunc:  "SUBSTR",
		CodeFunc:    "ASCII",
		Paging:      fetchPaging,
		QuoteOpen:   `"`,
		QuoteClose:  `"`,
	}

	SQLite = &Profile{
		Kind:        KindSQLite,
		Name:        "SQLite",
		Fingerprint: "sqlite_version()=sqlite_version()",
		TablesFrom:  "sqlite_master WHERE type = 'table' AND SUBSTR(name, 1, 7) <> 'sqlite_'",
		TableName:   "name",
		ColumnsFrom: "pragma_table_info(%s)",
		ColumnName:  "name",
		LengthOf:    lengthOf,
		SubstrFunc:  "SUBSTR",
		CodeFunc:    "UNICODE",
		Paging:      limitPaging,
		QuoteOpen:   `"`,
		QuoteClose:  `"`,
	}
)

// Registry is the ordered set of supported engines. Detection is
// first-match-wins in this order.
var Registry = []*Profile{MySQL, PostgreSQL, MSSQL, Oracle, SQLite}

// Lookup finds a profile by kind or display name, case-insensitively.
func Lookup(name string) (*Profile, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range Registry {
		if string(p.Kind) == want || strings.ToLower(p.Name) == want {
			return p, nil
		}
	}
	return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown dialect %q", name)
}

// Select resolves a list of names into profiles, keeping the given order.
// An empty list selects the whole registry.
func Select(names []string) ([]*Profile, error) {
	if len(names) == 0 {
		return Registry, nil
	}
	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		p, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
