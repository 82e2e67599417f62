// Package dialect describes each supported database engine as plain data and
// builds the query text the enumerators need from it.
//
// A Profile never branches on its own kind: every engine difference (function
// names, paging form, identifier quoting, the text cast, the character
// comparison form) is a field. The enumerators are therefore dialect-agnostic.
package dialect

import (
	"fmt"
	"strings"
)

// Kind identifies the database engine.
type Kind string

const (
	KindMySQL      Kind = "mysql"
	KindPostgreSQL Kind = "postgresql"
	KindMSSQL      Kind = "mssql"
	KindOracle     Kind = "oracle"
	KindSQLite     Kind = "sqlite"
)

// Profile is an immutable record of one engine's query fragments.
type Profile struct {
	Kind Kind
	Name string // display name, e.g. "MySQL"

	// Fingerprint is a condition that only this engine evaluates to true.
	// On any other engine it errors or is false, which the target reports
	// the same way.
	Fingerprint string

	// TablesFrom is a FROM source listing the current schema's tables and
	// TableName the column holding each name.
	TablesFrom string
	TableName  string

	// ColumnsFrom is a FROM source listing a table's columns. Its single %s
	// receives the table name as a quoted string literal.
	ColumnsFrom string
	ColumnName  string

	// LengthOf measures the text %s in characters, trailing spaces
	// included.
	LengthOf string

	SubstrFunc string // SUBSTRING, SUBSTR
	CodeFunc   string // ASCII, UNICODE

	// Paging selects the row at offset %d of an ordered query.
	Paging string

	// QuoteOpen and QuoteClose delimit identifiers.
	QuoteOpen  string
	QuoteClose string

	// TextCast normalises a column to text before measuring it; %s is the
	// quoted column. Empty when the engine converts implicitly.
	TextCast string

	// SortKey wraps a text column (%s) in ORDER BY so that values differing
	// only in case never tie. Empty when the default collation is binary.
	SortKey string

	// LiteralCompare selects substring = 'c' instead of code point = n when
	// resolving characters.
	LiteralCompare bool
}

func (p *Profile) String() string {
	return p.Name
}

// --- enumeration queries ---
//
// Each returns a scalar SELECT. Resolvers wrap it in parentheses, so the
// result is usable both as "(SELECT ...) > n" and "LENGTH((SELECT ...))".

// TableCount counts the tables of the current schema.
func (p *Profile) TableCount() string {
	return "SELECT COUNT(*) FROM " + p.TablesFrom
}

// TableAt selects the table name at offset in name order.
func (p *Profile) TableAt(offset int) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		p.TableName, p.TablesFrom, p.TableName) + p.page(offset)
}

// ColumnCount counts the columns of table.
func (p *Profile) ColumnCount(table string) string {
	return "SELECT COUNT(*) FROM " + p.columnsFrom(table)
}

// ColumnAt selects the column name of table at offset in name order.
func (p *Profile) ColumnAt(table string, offset int) string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		p.ColumnName, p.columnsFrom(table), p.ColumnName) + p.page(offset)
}

// RowCount counts the rows of table.
func (p *Profile) RowCount(table string) string {
	return "SELECT COUNT(*) FROM " + p.QuoteIdent(table)
}

// CellAt selects column of the row at offset. Rows are ordered by every
// discovered column, in discovery order, so that all cells of one offset
// belong to the same row.
func (p *Profile) CellAt(table, column string, order []string, offset int) string {
	keys := make([]string, 0, len(order))
	for _, c := range order {
		keys = append(keys, p.sortKey(c))
	}
	if len(keys) == 0 {
		keys = append(keys, p.sortKey(column))
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		p.textOf(column), p.QuoteIdent(table), strings.Join(keys, ", ")) + p.page(offset)
}

// SelectRows is a plain multi-row query returning every column of table as
// text, in the same order CellAt pages through. Used to read ground truth
// when the database is directly reachable.
func (p *Profile) SelectRows(table string, columns []string) string {
	cols := make([]string, 0, len(columns))
	keys := make([]string, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, p.textOf(c))
		keys = append(keys, p.sortKey(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), p.QuoteIdent(table), strings.Join(keys, ", "))
}

// --- conditions ---

// Greater is the numeric probe "(expr) > n".
func (p *Profile) Greater(expr string, n int) string {
	return fmt.Sprintf("(%s) > %d", expr, n)
}

// Length measures expr in characters.
func (p *Profile) Length(expr string) string {
	return fmt.Sprintf(p.LengthOf, expr)
}

// CharAt extracts the 1-based position of expr.
func (p *Profile) CharAt(expr string, pos int) string {
	return fmt.Sprintf("%s((%s), %d, 1)", p.SubstrFunc, expr, pos)
}

// CodePoint is the numeric code of a single-character expression.
func (p *Profile) CodePoint(charExpr string) string {
	return fmt.Sprintf("%s(%s)", p.CodeFunc, charExpr)
}

// CharEquals tests whether position pos of expr is c, using the profile's
// comparison form.
func (p *Profile) CharEquals(expr string, pos int, c rune) string {
	if p.LiteralCompare {
		return fmt.Sprintf("%s = %s", p.CharAt(expr, pos), QuoteLiteral(string(c)))
	}
	return fmt.Sprintf("%s = %d", p.CodePoint(p.CharAt(expr, pos)), c)
}

// QuoteIdent delimits an identifier, doubling any closing delimiter inside it.
func (p *Profile) QuoteIdent(name string) string {
	return p.QuoteOpen + strings.ReplaceAll(name, p.QuoteClose, p.QuoteClose+p.QuoteClose) + p.QuoteClose
}

// QuoteLiteral renders s as a SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *Profile) columnsFrom(table string) string {
	return fmt.Sprintf(p.ColumnsFrom, QuoteLiteral(table))
}

func (p *Profile) page(offset int) string {
	return fmt.Sprintf(p.Paging, offset)
}

func (p *Profile) textOf(column string) string {
	quoted := p.QuoteIdent(column)
	if p.TextCast == "" {
		return quoted
	}
	return fmt.Sprintf(p.TextCast, quoted)
}

func (p *Profile) sortKey(column string) string {
	if p.SortKey == "" {
		return p.textOf(column)
	}
	return fmt.Sprintf(p.SortKey, p.textOf(column))
}
